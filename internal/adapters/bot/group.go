package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-giveaway-bot/internal/domain"
	"tg-giveaway-bot/internal/usecase/participation"
)

func telegramUser(u *tgbotapi.User) domain.TelegramUser {
	return domain.TelegramUser{ID: u.ID, Username: u.UserName, FirstName: u.FirstName}
}

// discussionPostID возвращает ID поста канала, если сообщение отвечает на его автопересылку в группу обсуждения.
func discussionPostID(msg *tgbotapi.Message) int {
	reply := msg.ReplyToMessage
	if reply == nil || reply.ForwardFromChat == nil || reply.ForwardFromMessageID == 0 {
		return 0
	}
	return reply.ForwardFromMessageID
}

func (h *Handler) handleGroupMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	res, err := h.participation.JoinByComment(ctx, participation.CommentInput{
		GroupID: msg.Chat.ID,
		PostID:  discussionPostID(msg),
		Text:    text,
		User:    telegramUser(msg.From),
	})
	if err != nil {
		h.log.Error().Err(err).Int64("chat", msg.Chat.ID).Int64("user", msg.From.ID).Msg("ошибка регистрации по комментарию")
		return
	}
	switch res.Outcome {
	case participation.OutcomeJoined:
		h.replyTo(msg, joinedText(res.Giveaway))
	case participation.OutcomeAlreadyJoined:
		h.replyTo(msg, alreadyJoinedText())
	case participation.OutcomeNotSubscribed:
		h.replyTo(msg, notSubscribedText(res.Failed))
	case participation.OutcomeInactive:
		if res.Giveaway.Token != "" {
			h.replyTo(msg, inactiveText())
		}
	}
}

func (h *Handler) handleJoinButton(ctx context.Context, cb *tgbotapi.CallbackQuery, token string) {
	res, err := h.participation.JoinByButton(ctx, token, telegramUser(cb.From))
	if err != nil {
		h.log.Error().Err(err).Str("giveaway", token).Int64("user", cb.From.ID).Msg("ошибка регистрации по кнопке")
		h.answer(cb.ID, textInternalError, true)
		return
	}
	switch res.Outcome {
	case participation.OutcomeJoined:
		h.answer(cb.ID, joinedText(res.Giveaway), true)
	case participation.OutcomeAlreadyJoined:
		h.answer(cb.ID, alreadyJoinedText(), true)
	case participation.OutcomeNotSubscribed:
		h.answer(cb.ID, notSubscribedText(res.Failed), true)
	default:
		h.answer(cb.ID, inactiveText(), true)
	}
}
