package domain

import "time"

// GiveawayType описывает способ участия в розыгрыше.
type GiveawayType string

const (
	// GiveawayTypeButton означает участие по кнопке под постом в канале.
	GiveawayTypeButton GiveawayType = "button"
	// GiveawayTypeComments означает участие комментарием с ключевым словом в группе обсуждения.
	GiveawayTypeComments GiveawayType = "comments"
)

// Valid сообщает, поддерживается ли тип розыгрыша.
func (t GiveawayType) Valid() bool {
	return t == GiveawayTypeButton || t == GiveawayTypeComments
}

// DefaultParticipationKeyword используется, если настройки ещё не сохранены.
const DefaultParticipationKeyword = "Участвую"

// Giveaway описывает розыгрыш.
type Giveaway struct {
	Token        string
	Name         string
	Description  string
	Type         GiveawayType
	OwnerID      int64
	WinnersCount int
	EndsAt       time.Time
	RunStatus    bool
	EarlyFinish  bool
	CreatedAt    time.Time
	FinishedAt   *time.Time
}

// IsDraft сообщает, что розыгрыш создан, но ещё не опубликован.
func (g Giveaway) IsDraft() bool {
	return !g.RunStatus && g.FinishedAt == nil
}

// IsFinished сообщает, что розыгрыш завершён.
func (g Giveaway) IsFinished() bool {
	return g.FinishedAt != nil
}

// Expired проверяет, наступило ли время окончания.
func (g Giveaway) Expired(now time.Time) bool {
	return !g.EndsAt.After(now)
}

// Channel описывает канал, подписка на который обязательна для участия.
type Channel struct {
	ID            int64
	ChannelID     int64
	Title         string
	Username      string
	OwnerID       int64
	GiveawayToken string
	// GroupID и PostID заполняются после публикации: группа обсуждения и пост в канале.
	GroupID int64
	PostID  int
}

// DisplayName возвращает человекочитаемое имя канала.
func (c Channel) DisplayName() string {
	switch {
	case c.Title != "":
		return c.Title
	case c.Username != "":
		return "@" + c.Username
	default:
		return "канал"
	}
}

// Participant описывает участника розыгрыша.
type Participant struct {
	Seq           int64
	GiveawayToken string
	UserID        int64
	Username      string
	FirstName     string
	JoinedAt      time.Time
}

// Winner описывает победителя с его местом.
type Winner struct {
	Participant Participant
	Place       int
}

// BotSettings хранит глобальные настройки бота.
type BotSettings struct {
	ParticipationKeyword string
	UpdatedAt            time.Time
}

// TelegramUser содержит данные пользователя из апдейта.
type TelegramUser struct {
	ID        int64
	Username  string
	FirstName string
}

// GiveawayStats содержит сводку по розыгрышу.
type GiveawayStats struct {
	Giveaway     Giveaway
	Channels     []Channel
	Participants int
}
