package participation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"tg-giveaway-bot/internal/domain"
	"tg-giveaway-bot/internal/infra/metrics"
	"tg-giveaway-bot/internal/usecase/eligibility"
)

// Outcome описывает результат попытки участия.
type Outcome string

const (
	OutcomeWrongThread   Outcome = "wrong_thread"
	OutcomeInactive      Outcome = "inactive"
	OutcomeNoKeyword     Outcome = "no_keyword"
	OutcomeNotSubscribed Outcome = "not_subscribed"
	OutcomeAlreadyJoined Outcome = "already_joined"
	OutcomeJoined        Outcome = "joined"
)

const (
	sourceComment = "comment"
	sourceButton  = "button"
)

// Eligibility проверяет подписку на все каналы розыгрыша.
type Eligibility interface {
	CheckAll(ctx context.Context, channels []domain.Channel, userID int64) (eligibility.Eligibility, error)
}

// KeywordSource возвращает актуальное ключевое слово участия.
type KeywordSource interface {
	Keyword(ctx context.Context) (string, error)
}

// CommentInput описывает сообщение в группе обсуждения.
type CommentInput struct {
	GroupID int64
	// PostID равен ID поста канала, на который отвечает сообщение, или 0.
	PostID int
	Text   string
	User   domain.TelegramUser
}

// Result возвращает исход и данные для ответа пользователю.
type Result struct {
	Outcome  Outcome
	Giveaway domain.Giveaway
	// Failed содержит первый канал без подписки при OutcomeNotSubscribed.
	Failed domain.Channel
}

// Service регистрирует участников.
type Service struct {
	giveaways    domain.GiveawayRepo
	channels     domain.ChannelRepo
	participants domain.ParticipantRepo
	keywords     KeywordSource
	eligibility  Eligibility
	log          zerolog.Logger
}

// NewService создаёт сервис участия.
func NewService(giveaways domain.GiveawayRepo, channels domain.ChannelRepo, participants domain.ParticipantRepo, keywords KeywordSource, elig Eligibility, log zerolog.Logger) *Service {
	return &Service{
		giveaways:    giveaways,
		channels:     channels,
		participants: participants,
		keywords:     keywords,
		eligibility:  elig,
		log:          log,
	}
}

// JoinByComment обрабатывает комментарий с ключевым словом под постом розыгрыша.
func (s *Service) JoinByComment(ctx context.Context, in CommentInput) (Result, error) {
	res, err := s.joinByComment(ctx, in)
	s.count(sourceComment, res, err)
	return res, err
}

func (s *Service) joinByComment(ctx context.Context, in CommentInput) (Result, error) {
	if in.PostID == 0 {
		return Result{Outcome: OutcomeWrongThread}, nil
	}
	ch, err := s.channels.FindByDiscussionPost(ctx, in.GroupID, in.PostID)
	if errors.Is(err, domain.ErrChannelNotFound) {
		return Result{Outcome: OutcomeWrongThread}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("поиск поста розыгрыша: %w", err)
	}
	// Ключевое слово проверяется раньше статуса: обычные комментарии под завершённым розыгрышем остаются без ответа.
	keyword, err := s.keywords.Keyword(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("чтение ключевого слова: %w", err)
	}
	if !MatchKeyword(in.Text, keyword) {
		if strings.TrimSpace(keyword) == "" {
			s.log.Warn().Str("giveaway", ch.GiveawayToken).Msg("ключевое слово не задано, участие по комментариям отключено")
		}
		return Result{Outcome: OutcomeNoKeyword}, nil
	}
	g, err := s.activeGiveaway(ctx, ch.GiveawayToken, domain.GiveawayTypeComments)
	if err != nil || !g.RunStatus {
		return Result{Outcome: OutcomeInactive, Giveaway: g}, err
	}
	return s.register(ctx, g, in.User)
}

// JoinByButton обрабатывает нажатие кнопки «Участвовать».
func (s *Service) JoinByButton(ctx context.Context, token string, user domain.TelegramUser) (Result, error) {
	res, err := s.joinByButton(ctx, token, user)
	s.count(sourceButton, res, err)
	return res, err
}

func (s *Service) joinByButton(ctx context.Context, token string, user domain.TelegramUser) (Result, error) {
	g, err := s.activeGiveaway(ctx, token, domain.GiveawayTypeButton)
	if err != nil || !g.RunStatus {
		return Result{Outcome: OutcomeInactive, Giveaway: g}, err
	}
	return s.register(ctx, g, user)
}

// activeGiveaway возвращает розыгрыш нужного типа. RunStatus=false означает, что участие закрыто.
func (s *Service) activeGiveaway(ctx context.Context, token string, kind domain.GiveawayType) (domain.Giveaway, error) {
	g, err := s.giveaways.GetGiveaway(ctx, token)
	if errors.Is(err, domain.ErrGiveawayNotFound) {
		return domain.Giveaway{}, nil
	}
	if err != nil {
		return domain.Giveaway{}, fmt.Errorf("чтение розыгрыша: %w", err)
	}
	if g.Type != kind {
		g.RunStatus = false
	}
	return g, nil
}

func (s *Service) register(ctx context.Context, g domain.Giveaway, user domain.TelegramUser) (Result, error) {
	channels, err := s.channels.ListChannels(ctx, g.Token)
	if err != nil {
		return Result{}, fmt.Errorf("чтение каналов розыгрыша: %w", err)
	}
	elig, err := s.eligibility.CheckAll(ctx, channels, user.ID)
	if errors.Is(err, eligibility.ErrNoChannels) {
		return Result{Outcome: OutcomeInactive, Giveaway: g}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if !elig.Eligible {
		return Result{Outcome: OutcomeNotSubscribed, Giveaway: g, Failed: elig.Failed}, nil
	}
	joined, err := s.participants.IsParticipant(ctx, g.Token, user.ID)
	if err != nil {
		return Result{}, fmt.Errorf("проверка участника: %w", err)
	}
	if joined {
		return Result{Outcome: OutcomeAlreadyJoined, Giveaway: g}, nil
	}
	added, err := s.participants.AddParticipant(ctx, domain.Participant{
		GiveawayToken: g.Token,
		UserID:        user.ID,
		Username:      user.Username,
		FirstName:     user.FirstName,
	})
	if err != nil {
		return Result{}, fmt.Errorf("сохранение участника: %w", err)
	}
	if added {
		s.log.Info().Str("giveaway", g.Token).Int64("user", user.ID).Msg("новый участник")
		return Result{Outcome: OutcomeJoined, Giveaway: g}, nil
	}
	// Вставка не прошла: либо параллельная регистрация, либо розыгрыш уже завершён.
	joined, err = s.participants.IsParticipant(ctx, g.Token, user.ID)
	if err != nil {
		return Result{}, fmt.Errorf("проверка участника: %w", err)
	}
	if joined {
		return Result{Outcome: OutcomeAlreadyJoined, Giveaway: g}, nil
	}
	return Result{Outcome: OutcomeInactive, Giveaway: g}, nil
}

func (s *Service) count(source string, res Result, err error) {
	outcome := string(res.Outcome)
	if err != nil {
		outcome = "error"
	}
	metrics.IncParticipation(source, outcome)
}
