package eligibility

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"tg-giveaway-bot/internal/domain"
	"tg-giveaway-bot/internal/infra/metrics"
)

// ErrNoChannels возвращается, если у розыгрыша нет ни одного канала.
var ErrNoChannels = errors.New("у розыгрыша нет каналов для проверки подписки")

// IsSubscribedStatus сообщает, считается ли статус getChatMember подпиской.
func IsSubscribedStatus(status string) bool {
	switch status {
	case "member", "administrator", "creator":
		return true
	default:
		return false
	}
}

// Eligibility описывает итог проверки подписок. Failed заполнен, когда Eligible=false.
type Eligibility struct {
	Eligible bool
	Failed   domain.Channel
}

// Checker проверяет подписку пользователя на каналы розыгрыша.
type Checker struct {
	members domain.MemberLookup
	log     zerolog.Logger
}

// NewChecker создаёт проверку подписки.
func NewChecker(members domain.MemberLookup, log zerolog.Logger) *Checker {
	return &Checker{members: members, log: log}
}

// CheckChannel выполняет один запрос getChatMember. Ошибка API означает отсутствие подписки.
func (c *Checker) CheckChannel(ctx context.Context, channelID, userID int64) bool {
	status, err := c.members.MemberStatus(ctx, channelID, userID)
	if err != nil {
		metrics.IncSubscriptionCheck("")
		c.log.Warn().Err(err).Int64("channel", channelID).Int64("user", userID).Msg("не удалось проверить подписку")
		return false
	}
	metrics.IncSubscriptionCheck(status)
	return IsSubscribedStatus(status)
}

// CheckAll требует подписку на все каналы и останавливается на первом отрицательном ответе.
func (c *Checker) CheckAll(ctx context.Context, channels []domain.Channel, userID int64) (Eligibility, error) {
	if len(channels) == 0 {
		c.log.Warn().Int64("user", userID).Msg("нет каналов для проверки подписки, участие отключено")
		return Eligibility{}, ErrNoChannels
	}
	for _, ch := range channels {
		if !c.CheckChannel(ctx, ch.ChannelID, userID) {
			return Eligibility{Failed: ch}, nil
		}
	}
	return Eligibility{Eligible: true}, nil
}
