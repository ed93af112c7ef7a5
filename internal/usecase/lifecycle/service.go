package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tg-giveaway-bot/internal/domain"
	"tg-giveaway-bot/internal/infra/metrics"
	"tg-giveaway-bot/internal/usecase/winners"
)

// Reason описывает причину завершения розыгрыша.
type Reason string

const (
	ReasonExpired Reason = "expired"
	ReasonEarly   Reason = "early"
)

var (
	// ErrAlreadyFinished возвращается при повторном завершении. Это не ошибка состояния, а no-op.
	ErrAlreadyFinished = errors.New("розыгрыш уже завершён или не запущен")
	ErrUnknownReason   = errors.New("неизвестная причина завершения")
)

// Result описывает итог завершения розыгрыша.
type Result struct {
	Giveaway     domain.Giveaway
	Participants []domain.Participant
	Winners      []domain.Winner
	// Announced считает каналы, в которые ушли результаты.
	Announced int
}

// SelectFunc выбирает победителей.
type SelectFunc func(participants []domain.Participant, count int) ([]domain.Winner, error)

// Service завершает розыгрыши и объявляет победителей.
type Service struct {
	giveaways    domain.GiveawayRepo
	channels     domain.ChannelRepo
	participants domain.ParticipantRepo
	publisher    domain.Publisher
	events       domain.EventPublisher
	log          zerolog.Logger
	loc          *time.Location
	now          func() time.Time
	selectFn     SelectFunc
}

// NewService создаёт контроллер жизненного цикла.
func NewService(giveaways domain.GiveawayRepo, channels domain.ChannelRepo, participants domain.ParticipantRepo, publisher domain.Publisher, events domain.EventPublisher, log zerolog.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		giveaways:    giveaways,
		channels:     channels,
		participants: participants,
		publisher:    publisher,
		events:       events,
		log:          log,
		loc:          loc,
		now:          time.Now,
		selectFn:     winners.Select,
	}
}

// Finish завершает активный розыгрыш. Повторный вызов возвращает ErrAlreadyFinished.
func (s *Service) Finish(ctx context.Context, token string, reason Reason) (Result, error) {
	if reason != ReasonExpired && reason != ReasonEarly {
		return Result{}, ErrUnknownReason
	}
	current, err := s.giveaways.GetGiveaway(ctx, token)
	if err != nil {
		return Result{}, fmt.Errorf("чтение розыгрыша: %w", err)
	}
	if !current.RunStatus {
		return Result{}, ErrAlreadyFinished
	}
	// Участники и победители определяются до снятия run_status, чтобы сбой чтения оставлял розыгрыш активным.
	participants, err := s.participants.ListParticipants(ctx, token)
	if err != nil {
		return Result{}, fmt.Errorf("чтение участников: %w", err)
	}
	picked, err := s.selectFn(participants, current.WinnersCount)
	if err != nil {
		return Result{}, fmt.Errorf("выбор победителей: %w", err)
	}

	finishedAt := s.now()
	g, err := s.giveaways.MarkFinished(ctx, token, reason == ReasonEarly, finishedAt)
	if errors.Is(err, domain.ErrNotModified) {
		return Result{}, ErrAlreadyFinished
	}
	if err != nil {
		return Result{}, fmt.Errorf("завершение розыгрыша: %w", err)
	}
	logger := s.log.With().Str("giveaway", token).Str("reason", string(reason)).Logger()

	res := Result{Giveaway: g, Participants: participants, Winners: picked}
	metrics.ObserveFinished(string(reason), len(picked))

	channels, err := s.channels.ListChannels(ctx, token)
	if err != nil {
		logger.Error().Err(err).Msg("не удалось получить каналы для объявления результатов")
	}
	text := FormatResults(res, finishedAt.In(s.loc))
	for _, ch := range channels {
		if err := s.publisher.SendHTML(ctx, ch.ChannelID, text); err != nil {
			logger.Warn().Err(err).Int64("channel", ch.ChannelID).Msg("не удалось отправить результаты в канал")
			continue
		}
		res.Announced++
	}

	event := domain.FinishedEvent{
		Token:        g.Token,
		Name:         g.Name,
		OwnerID:      g.OwnerID,
		Early:        g.EarlyFinish,
		Participants: len(participants),
		WinnerIDs:    make([]int64, 0, len(picked)),
		FinishedAt:   finishedAt.UTC(),
	}
	for _, w := range picked {
		event.WinnerIDs = append(event.WinnerIDs, w.Participant.UserID)
	}
	if s.events != nil {
		if err := s.events.PublishFinished(ctx, event); err != nil {
			logger.Warn().Err(err).Msg("не удалось опубликовать событие завершения")
		}
	}

	logger.Info().Int("participants", len(participants)).Int("winners", len(picked)).Int("announced", res.Announced).Msg("розыгрыш завершён")
	return res, nil
}

// ProcessExpired завершает все активные розыгрыши с наступившим временем окончания.
func (s *Service) ProcessExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.giveaways.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("выборка истёкших розыгрышей: %w", err)
	}
	finished := 0
	for _, g := range expired {
		if ctx.Err() != nil {
			return finished, ctx.Err()
		}
		if _, err := s.Finish(ctx, g.Token, ReasonExpired); err != nil {
			if errors.Is(err, ErrAlreadyFinished) {
				continue
			}
			s.log.Error().Err(err).Str("giveaway", g.Token).Msg("не удалось завершить розыгрыш")
			continue
		}
		finished++
	}
	return finished, nil
}

// Run проверяет истёкшие розыгрыши с заданным интервалом до отмены контекста.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.log.Info().Dur("interval", interval).Msg("мониторинг розыгрышей запущен")
	for {
		if _, err := s.ProcessExpired(ctx, s.now()); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error().Err(err).Msg("ошибка проверки истёкших розыгрышей")
		}
		select {
		case <-ctx.Done():
			s.log.Info().Msg("мониторинг розыгрышей остановлен")
			return
		case <-ticker.C:
		}
	}
}
