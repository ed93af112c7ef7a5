package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	ParticipationAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "participation_attempts_total",
		Help: "Попытки участия в розыгрышах по источнику и результату",
	}, []string{"source", "outcome"})

	SubscriptionChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_checks_total",
		Help: "Проверки подписки на каналы по статусу",
	}, []string{"status"})

	GiveawaysFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "giveaways_finished_total",
		Help: "Завершённые розыгрыши по причине",
	}, []string{"reason"})

	WinnersSelected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "winners_selected_total",
		Help: "Количество выбранных победителей",
	})

	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		NetworkRequestDuration,
		NetworkRequestTotal,
		ParticipationAttempts,
		SubscriptionChecks,
		GiveawaysFinished,
		WinnersSelected,
		BotSendErrors,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncParticipation учитывает попытку участия.
func IncParticipation(source, outcome string) {
	ParticipationAttempts.WithLabelValues(source, outcome).Inc()
}

// IncSubscriptionCheck учитывает проверку подписки. Пустой статус означает ошибку запроса.
func IncSubscriptionCheck(status string) {
	if status == "" {
		status = "error"
	}
	SubscriptionChecks.WithLabelValues(status).Inc()
}

// ObserveFinished учитывает завершение розыгрыша и число победителей.
func ObserveFinished(reason string, winners int) {
	GiveawaysFinished.WithLabelValues(reason).Inc()
	if winners > 0 {
		WinnersSelected.Add(float64(winners))
	}
}
