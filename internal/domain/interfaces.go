package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrGiveawayNotFound возвращается, когда розыгрыш с указанным токеном не найден.
	ErrGiveawayNotFound = errors.New("giveaway not found")
	// ErrChannelNotFound возвращается, когда канал не привязан к розыгрышу.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrNotModified возвращается, когда условное обновление не затронуло ни одной строки.
	ErrNotModified = errors.New("not modified")
)

// GiveawayRepo управляет розыгрышами.
type GiveawayRepo interface {
	CreateGiveaway(ctx context.Context, g Giveaway) (Giveaway, error)
	GetGiveaway(ctx context.Context, token string) (Giveaway, error)
	ListGiveaways(ctx context.Context, ownerID int64, all bool) ([]Giveaway, error)
	ListExpired(ctx context.Context, now time.Time) ([]Giveaway, error)
	// Activate переводит черновик в активное состояние.
	Activate(ctx context.Context, token string) error
	// MarkFinished атомарно снимает run_status. Возвращает ErrNotModified,
	// если розыгрыш уже не активен.
	MarkFinished(ctx context.Context, token string, early bool, at time.Time) (Giveaway, error)
}

// ChannelRepo управляет каналами розыгрышей.
type ChannelRepo interface {
	AddChannel(ctx context.Context, ch Channel) (Channel, error)
	ListChannels(ctx context.Context, token string) ([]Channel, error)
	FindByDiscussionPost(ctx context.Context, groupID int64, postID int) (Channel, error)
	SetPost(ctx context.Context, id int64, groupID int64, postID int) error
}

// ParticipantRepo хранит списки участников.
type ParticipantRepo interface {
	// AddParticipant возвращает false, если пользователь уже участвует.
	AddParticipant(ctx context.Context, p Participant) (bool, error)
	IsParticipant(ctx context.Context, token string, userID int64) (bool, error)
	ListParticipants(ctx context.Context, token string) ([]Participant, error)
	CountParticipants(ctx context.Context, token string) (int, error)
}

// SettingsRepo хранит настройки бота.
type SettingsRepo interface {
	GetSettings(ctx context.Context) (BotSettings, error)
	SetParticipationKeyword(ctx context.Context, keyword string) error
}

// MemberLookup возвращает статус пользователя в чате (getChatMember).
type MemberLookup interface {
	MemberStatus(ctx context.Context, chatID, userID int64) (string, error)
}

// ChatInfo описывает канал по данным getChat.
type ChatInfo struct {
	ID           int64
	Title        string
	Username     string
	Type         string
	LinkedChatID int64
}

// ChatResolver возвращает сведения о чате и о правах бота в нём.
type ChatResolver interface {
	ResolveChat(ctx context.Context, ref string) (ChatInfo, error)
	BotStatus(ctx context.Context, chatID int64) (string, error)
}

// Publisher отправляет сообщения в каналы.
type Publisher interface {
	// PublishGiveaway размещает пост розыгрыша и возвращает ID сообщения.
	// Непустой joinToken добавляет под пост кнопку участия.
	PublishGiveaway(ctx context.Context, chatID int64, text, joinToken string) (int, error)
	SendHTML(ctx context.Context, chatID int64, text string) error
}

// FinishedEvent описывает завершение розыгрыша для внешних потребителей.
type FinishedEvent struct {
	Token        string    `json:"token"`
	Name         string    `json:"name"`
	OwnerID      int64     `json:"owner_id"`
	Early        bool      `json:"early"`
	Participants int       `json:"participants"`
	WinnerIDs    []int64   `json:"winner_ids"`
	FinishedAt   time.Time `json:"finished_at"`
}

// EventPublisher публикует доменные события.
type EventPublisher interface {
	PublishFinished(ctx context.Context, event FinishedEvent) error
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, key string) error
}
