package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"tg-giveaway-bot/internal/adapters/repo"
	"tg-giveaway-bot/internal/adapters/telegram"
	"tg-giveaway-bot/internal/domain"
	"tg-giveaway-bot/internal/infra/cache"
	"tg-giveaway-bot/internal/infra/config"
	"tg-giveaway-bot/internal/infra/db"
	"tg-giveaway-bot/internal/infra/log"
	"tg-giveaway-bot/internal/infra/metrics"
	"tg-giveaway-bot/internal/infra/queue"
	"tg-giveaway-bot/internal/usecase/lifecycle"
)

// Планировщик завершает просроченные розыгрыши отдельно от бота.
// Бот в этом случае запускается с LIFECYCLE_IN_PROCESS=false.
func main() {
	cfg := config.Load()
	logger := log.Component(log.NewLogger(cfg.AppEnv), "scheduler")
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.PGDSN == "" {
		logger.Fatal().Msg("scheduler: PG_DSN обязателен")
	}
	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: нет подключения к БД")
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("scheduler: не удалось применить миграции")
	}
	store := repo.NewPostgres(pool)

	var events domain.EventPublisher = queue.NopPublisher{}
	switch {
	case cfg.Rabbit.URL != "":
		pub, err := queue.NewRabbitPublisher(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			logger.Fatal().Err(err).Msg("scheduler: нет подключения к RabbitMQ")
		}
		defer pub.Close()
		events = pub
	case cfg.RedisAddr != "":
		client, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal().Err(err).Msg("scheduler: нет подключения к Redis")
		}
		defer client.Close()
		events = queue.NewRedisEventQueue(client, "giveaway:events", 1000)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: не удалось создать бота")
	}
	tg := telegram.NewClient(botAPI, botAPI.Self.ID)
	service := lifecycle.NewService(store, store, store, tg, events, logger, cfg.Location())

	metrics.StartServer(ctx, logger, cfg.MetricsAddr)
	service.Run(ctx, cfg.Lifecycle.Interval)
	logger.Info().Msg("scheduler остановлен")
}
