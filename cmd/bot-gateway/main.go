package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
	_ "time/tzdata"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tg-giveaway-bot/internal/adapters/bot"
	"tg-giveaway-bot/internal/adapters/repo"
	"tg-giveaway-bot/internal/adapters/state"
	"tg-giveaway-bot/internal/adapters/telegram"
	"tg-giveaway-bot/internal/domain"
	"tg-giveaway-bot/internal/infra/cache"
	"tg-giveaway-bot/internal/infra/config"
	"tg-giveaway-bot/internal/infra/db"
	httpserver "tg-giveaway-bot/internal/infra/http"
	"tg-giveaway-bot/internal/infra/log"
	"tg-giveaway-bot/internal/infra/metrics"
	"tg-giveaway-bot/internal/infra/queue"
	"tg-giveaway-bot/internal/usecase/eligibility"
	"tg-giveaway-bot/internal/usecase/giveaways"
	"tg-giveaway-bot/internal/usecase/lifecycle"
	"tg-giveaway-bot/internal/usecase/participation"
	"tg-giveaway-bot/internal/usecase/settings"
)

const (
	webhookPath = "/bot/webhook"
	updateTTL   = 10 * time.Minute
	eventsKey   = "giveaway:events"
	eventsLimit = 1000
)

type storage interface {
	domain.GiveawayRepo
	domain.ChannelRepo
	domain.ParticipantRepo
	domain.SettingsRepo
}

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage
	if cfg.PGDSN != "" {
		pool, err := db.Connect(cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("не удалось применить миграции")
		}
		store = repo.NewPostgres(pool)
	} else {
		logger.Warn().Msg("PG_DSN не задан, данные хранятся в памяти процесса")
		store = repo.NewMemory()
	}

	var kv domain.Cache = cache.NewMemory()
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		client, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к Redis")
		}
		defer client.Close()
		redisClient = client
		kv = cache.NewRedis(client)
	}

	var events domain.EventPublisher = queue.NopPublisher{}
	switch {
	case cfg.Rabbit.URL != "":
		pub, err := queue.NewRabbitPublisher(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к RabbitMQ")
		}
		defer pub.Close()
		events = pub
	case redisClient != nil:
		events = queue.NewRedisEventQueue(redisClient, eventsKey, eventsLimit)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	logger.Info().Str("username", botAPI.Self.UserName).Msg("бот авторизован")

	loc := cfg.Location()
	tg := telegram.NewClient(botAPI, botAPI.Self.ID)
	keywords := settings.NewService(store, cfg.DefaultKeyword)
	giveawayService := giveaways.NewService(store, store, store, keywords, tg, tg, cfg.IsAdmin, log.Component(logger, "giveaways"), loc)
	participationService := participation.NewService(store, store, store, keywords, eligibility.NewChecker(tg, log.Component(logger, "eligibility")), log.Component(logger, "participation"))
	lifecycleService := lifecycle.NewService(store, store, store, tg, events, log.Component(logger, "lifecycle"), loc)

	h := bot.NewHandler(botAPI, log.Component(logger, "bot"), bot.Deps{
		Giveaways:     giveawayService,
		Participation: participationService,
		Lifecycle:     lifecycleService,
		Settings:      keywords,
		States:        state.NewStore(kv, cfg.StateTTL),
		IsAdmin:       cfg.IsAdmin,
		OpenCreation:  len(cfg.Telegram.AdminIDs) == 0,
		Location:      loc,
	})

	if _, err := botAPI.Request(tgbotapi.NewSetMyCommands(bot.Commands()...)); err != nil {
		logger.Warn().Err(err).Msg("не удалось установить команды бота")
	}

	handle := func(ctx context.Context, upd tgbotapi.Update) {
		err := kv.Once(ctx, "upd:"+strconv.Itoa(upd.UpdateID), updateTTL, func() error {
			h.HandleUpdate(ctx, upd)
			return nil
		})
		if err != nil {
			logger.Error().Err(err).Int("update", upd.UpdateID).Msg("не удалось обработать апдейт")
		}
	}

	if cfg.Lifecycle.InProcess {
		go lifecycleService.Run(ctx, cfg.Lifecycle.Interval)
	}

	srv := httpserver.NewServer(logger)
	if cfg.Telegram.WebhookURL != "" {
		if err := setWebhook(botAPI, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			logger.Fatal().Err(err).Msg("не удалось установить webhook")
		}
		srv.Router.With(httpserver.WebhookSecretMiddleware(cfg.Telegram.WebhookSecret)).Post(webhookPath, func(w http.ResponseWriter, r *http.Request) {
			var update tgbotapi.Update
			if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			handle(r.Context(), update)
			w.WriteHeader(http.StatusOK)
		})
		logger.Info().Str("url", cfg.Telegram.WebhookURL).Msg("режим webhook")
	} else {
		if _, err := botAPI.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			logger.Warn().Err(err).Msg("не удалось снять webhook")
		}
		go poll(ctx, botAPI, cfg.Telegram.PollTimeout, logger, handle)
	}

	go func() {
		if err := srv.Start(cfg.HTTPAddr); err != nil {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("остановка бота")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("ошибка остановки HTTP сервера")
	}
}

// setWebhook регистрирует webhook вместе с секретом, который Telegram пришлёт в заголовке.
func setWebhook(api *tgbotapi.BotAPI, url, secret string) error {
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	_, err := api.MakeRequest("setWebhook", params)
	return err
}

func poll(ctx context.Context, api *tgbotapi.BotAPI, timeout int, logger zerolog.Logger, handle func(context.Context, tgbotapi.Update)) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	updates := api.GetUpdatesChan(u)
	logger.Info().Msg("режим long polling")
	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			handle(ctx, upd)
		}
	}
}
