package giveaways

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-giveaway-bot/internal/domain"
)

const (
	MaxNameLength = 128
	MaxWinners    = 100
)

var (
	ErrNameInvalid       = errors.New("название должно быть непустым и не длиннее 128 символов")
	ErrTypeInvalid       = errors.New("неизвестный тип розыгрыша")
	ErrWinnersInvalid    = errors.New("количество победителей должно быть от 1 до 100")
	ErrEndsAtInPast      = errors.New("время окончания должно быть в будущем")
	ErrForbidden         = errors.New("нет прав на управление розыгрышем")
	ErrChannelRefInvalid = errors.New("некорректная ссылка на канал")
	ErrNotChannel        = errors.New("чат не является каналом")
	ErrBotNotAdmin       = errors.New("бот не является администратором канала")
	ErrNoDiscussion      = errors.New("у канала нет группы обсуждения")
	ErrNoChannels        = errors.New("к розыгрышу не привязан ни один канал")
	ErrNotDraft          = errors.New("розыгрыш уже опубликован или завершён")
)

var aliasRegex = regexp.MustCompile(`(?i)^(?:@|https?://t\.me/|t\.me/)?([a-z0-9_]{5,})$`)

// ParseChannelRef приводит ввод администратора к username канала или числовому ID.
func ParseChannelRef(input string) (string, error) {
	trim := strings.TrimSpace(input)
	if id, err := strconv.ParseInt(trim, 10, 64); err == nil && id < 0 {
		return trim, nil
	}
	matches := aliasRegex.FindStringSubmatch(trim)
	if len(matches) < 2 {
		return "", ErrChannelRefInvalid
	}
	return strings.ToLower(matches[1]), nil
}

// KeywordSource возвращает актуальное ключевое слово участия.
type KeywordSource interface {
	Keyword(ctx context.Context) (string, error)
}

// CreateParams содержит данные нового розыгрыша.
type CreateParams struct {
	Name         string
	Description  string
	Type         domain.GiveawayType
	OwnerID      int64
	WinnersCount int
	EndsAt       time.Time
}

// Service управляет розыгрышами администратора.
type Service struct {
	giveaways    domain.GiveawayRepo
	channels     domain.ChannelRepo
	participants domain.ParticipantRepo
	keywords     KeywordSource
	chats        domain.ChatResolver
	publisher    domain.Publisher
	admins       func(userID int64) bool
	log          zerolog.Logger
	now          func() time.Time
	loc          *time.Location
}

// NewService создаёт сервис. isAdmin проверяет глобальный список администраторов.
func NewService(giveaways domain.GiveawayRepo, channels domain.ChannelRepo, participants domain.ParticipantRepo, keywords KeywordSource, chats domain.ChatResolver, publisher domain.Publisher, isAdmin func(int64) bool, log zerolog.Logger, loc *time.Location) *Service {
	if isAdmin == nil {
		isAdmin = func(int64) bool { return false }
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		giveaways:    giveaways,
		channels:     channels,
		participants: participants,
		keywords:     keywords,
		chats:        chats,
		publisher:    publisher,
		admins:       isAdmin,
		log:          log,
		now:          time.Now,
		loc:          loc,
	}
}

// NewToken возвращает непрозрачный токен для callback data.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Validate проверяет параметры розыгрыша.
func Validate(p CreateParams, now time.Time) error {
	name := strings.TrimSpace(p.Name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return ErrNameInvalid
	}
	if !p.Type.Valid() {
		return ErrTypeInvalid
	}
	if p.WinnersCount < 1 || p.WinnersCount > MaxWinners {
		return ErrWinnersInvalid
	}
	if !p.EndsAt.After(now) {
		return ErrEndsAtInPast
	}
	return nil
}

// Create сохраняет черновик розыгрыша.
func (s *Service) Create(ctx context.Context, p CreateParams) (domain.Giveaway, error) {
	if err := Validate(p, s.now()); err != nil {
		return domain.Giveaway{}, err
	}
	g, err := s.giveaways.CreateGiveaway(ctx, domain.Giveaway{
		Token:        NewToken(),
		Name:         strings.TrimSpace(p.Name),
		Description:  strings.TrimSpace(p.Description),
		Type:         p.Type,
		OwnerID:      p.OwnerID,
		WinnersCount: p.WinnersCount,
		EndsAt:       p.EndsAt,
	})
	if err != nil {
		return domain.Giveaway{}, fmt.Errorf("сохранение розыгрыша: %w", err)
	}
	s.log.Info().Str("giveaway", g.Token).Int64("owner", g.OwnerID).Str("type", string(g.Type)).Msg("создан розыгрыш")
	return g, nil
}

// CanManage сообщает, может ли пользователь управлять розыгрышем.
func (s *Service) CanManage(g domain.Giveaway, userID int64) bool {
	return g.OwnerID == userID || s.admins(userID)
}

// Get возвращает розыгрыш.
func (s *Service) Get(ctx context.Context, token string) (domain.Giveaway, error) {
	return s.giveaways.GetGiveaway(ctx, token)
}

// GetManaged возвращает розыгрыш, если пользователь может им управлять.
func (s *Service) GetManaged(ctx context.Context, token string, userID int64) (domain.Giveaway, error) {
	g, err := s.giveaways.GetGiveaway(ctx, token)
	if err != nil {
		return domain.Giveaway{}, err
	}
	if !s.CanManage(g, userID) {
		return domain.Giveaway{}, ErrForbidden
	}
	return g, nil
}

// List возвращает розыгрыши пользователя. Администраторы видят все.
func (s *Service) List(ctx context.Context, userID int64) ([]domain.Giveaway, error) {
	return s.giveaways.ListGiveaways(ctx, userID, s.admins(userID))
}

// AttachChannel привязывает канал к черновику розыгрыша.
func (s *Service) AttachChannel(ctx context.Context, token string, userID int64, ref string) (domain.Channel, error) {
	g, err := s.GetManaged(ctx, token, userID)
	if err != nil {
		return domain.Channel{}, err
	}
	if !g.IsDraft() {
		return domain.Channel{}, ErrNotDraft
	}
	parsed, err := ParseChannelRef(ref)
	if err != nil {
		return domain.Channel{}, err
	}
	info, err := s.chats.ResolveChat(ctx, parsed)
	if err != nil {
		return domain.Channel{}, fmt.Errorf("получение канала: %w", err)
	}
	if info.Type != "channel" {
		return domain.Channel{}, ErrNotChannel
	}
	status, err := s.chats.BotStatus(ctx, info.ID)
	if err != nil {
		return domain.Channel{}, fmt.Errorf("проверка прав бота: %w", err)
	}
	if status != "administrator" && status != "creator" {
		return domain.Channel{}, ErrBotNotAdmin
	}
	if g.Type == domain.GiveawayTypeComments && info.LinkedChatID == 0 {
		return domain.Channel{}, ErrNoDiscussion
	}
	ch, err := s.channels.AddChannel(ctx, domain.Channel{
		ChannelID:     info.ID,
		Title:         info.Title,
		Username:      info.Username,
		OwnerID:       userID,
		GiveawayToken: g.Token,
		GroupID:       info.LinkedChatID,
	})
	if err != nil {
		return domain.Channel{}, fmt.Errorf("сохранение канала: %w", err)
	}
	return ch, nil
}

// Publish размещает пост во всех каналах и запускает розыгрыш.
func (s *Service) Publish(ctx context.Context, token string, userID int64) (domain.Giveaway, int, error) {
	g, err := s.GetManaged(ctx, token, userID)
	if err != nil {
		return domain.Giveaway{}, 0, err
	}
	if !g.IsDraft() {
		return domain.Giveaway{}, 0, ErrNotDraft
	}
	if !g.EndsAt.After(s.now()) {
		return domain.Giveaway{}, 0, ErrEndsAtInPast
	}
	channels, err := s.channels.ListChannels(ctx, token)
	if err != nil {
		return domain.Giveaway{}, 0, fmt.Errorf("чтение каналов: %w", err)
	}
	if len(channels) == 0 {
		return domain.Giveaway{}, 0, ErrNoChannels
	}
	keyword := ""
	if g.Type == domain.GiveawayTypeComments {
		if keyword, err = s.keywords.Keyword(ctx); err != nil {
			return domain.Giveaway{}, 0, fmt.Errorf("чтение ключевого слова: %w", err)
		}
	}
	text := FormatPost(g, channels, keyword, s.loc)
	joinToken := ""
	if g.Type == domain.GiveawayTypeButton {
		joinToken = g.Token
	}

	published := 0
	for _, ch := range channels {
		postID, err := s.publisher.PublishGiveaway(ctx, ch.ChannelID, text, joinToken)
		if err != nil {
			s.log.Warn().Err(err).Str("giveaway", token).Int64("channel", ch.ChannelID).Msg("не удалось опубликовать пост")
			continue
		}
		published++
		// Пост уже виден в канале, поэтому ошибка сохранения не останавливает запуск.
		if err := s.channels.SetPost(ctx, ch.ID, ch.GroupID, postID); err != nil {
			s.log.Error().Err(err).Str("giveaway", token).Int64("channel", ch.ChannelID).Int("post", postID).Msg("не удалось сохранить ID поста")
		}
	}
	if published == 0 {
		return domain.Giveaway{}, 0, errors.New("пост не удалось опубликовать ни в одном канале")
	}
	if err := s.giveaways.Activate(ctx, token); err != nil {
		if errors.Is(err, domain.ErrNotModified) {
			return domain.Giveaway{}, published, ErrNotDraft
		}
		return domain.Giveaway{}, published, fmt.Errorf("запуск розыгрыша: %w", err)
	}
	g.RunStatus = true
	s.log.Info().Str("giveaway", token).Int("channels", published).Msg("розыгрыш опубликован")
	return g, published, nil
}

// Stats возвращает сводку по розыгрышу.
func (s *Service) Stats(ctx context.Context, token string, userID int64) (domain.GiveawayStats, error) {
	g, err := s.GetManaged(ctx, token, userID)
	if err != nil {
		return domain.GiveawayStats{}, err
	}
	channels, err := s.channels.ListChannels(ctx, token)
	if err != nil {
		return domain.GiveawayStats{}, fmt.Errorf("чтение каналов: %w", err)
	}
	count, err := s.participants.CountParticipants(ctx, token)
	if err != nil {
		return domain.GiveawayStats{}, fmt.Errorf("подсчёт участников: %w", err)
	}
	return domain.GiveawayStats{Giveaway: g, Channels: channels, Participants: count}, nil
}
