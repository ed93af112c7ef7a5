package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-giveaway-bot/internal/adapters/state"
	"tg-giveaway-bot/internal/domain"
	"tg-giveaway-bot/internal/usecase/giveaways"
	"tg-giveaway-bot/internal/usecase/lifecycle"
)

var withArg = map[string]bool{
	cbJoin:          true,
	cbType:          true,
	cbAttach:        true,
	cbPublish:       true,
	cbStats:         true,
	cbEarlyFinish:   true,
	cbConfirmFinish: true,
	cbCancelFinish:  true,
}

var withoutArg = map[string]bool{
	cbChangeKeyword: true,
	cbCancelKeyword: true,
	cbMenu:          true,
	cbMyGiveaways:   true,
	cbNewGiveaway:   true,
}

// parseCallback разбирает callback data вида action или action:arg.
func parseCallback(raw string) (action, arg string, ok bool) {
	if raw == "" || len(raw) > callbackDataMaxSize {
		return "", "", false
	}
	action, arg, hasArg := strings.Cut(raw, ":")
	if !hasArg {
		return action, "", withoutArg[action]
	}
	if !withArg[action] || !validArg(arg) {
		return "", "", false
	}
	return action, arg, true
}

func validArg(arg string) bool {
	if arg == "" {
		return false
	}
	for _, r := range arg {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil {
		h.answer(cb.ID, textNoUser, false)
		return
	}
	action, arg, ok := parseCallback(cb.Data)
	if !ok {
		h.log.Debug().Str("data", cb.Data).Msg("некорректный callback")
		h.answer(cb.ID, textBadCallback, false)
		return
	}
	if action == cbJoin {
		h.handleJoinButton(ctx, cb, arg)
		return
	}
	if cb.Message == nil || cb.Message.Chat == nil || !cb.Message.Chat.IsPrivate() {
		h.answer(cb.ID, textBadCallback, false)
		return
	}
	chatID := cb.Message.Chat.ID
	userID := cb.From.ID

	switch action {
	case cbMenu:
		h.answer(cb.ID, "", false)
		h.reply(chatID, startText(h.isAdmin(userID)), mainKeyboard(h.isAdmin(userID)))
	case cbMyGiveaways:
		h.answer(cb.ID, "", false)
		h.handleList(ctx, chatID, userID)
	case cbNewGiveaway:
		h.answer(cb.ID, "", false)
		h.startCreate(ctx, chatID, userID)
	case cbType:
		if !h.onType(ctx, chatID, userID, domain.GiveawayType(arg)) {
			h.answer(cb.ID, textBadCallback, false)
			return
		}
		h.answer(cb.ID, "", false)
	case cbAttach:
		h.answer(cb.ID, "", false)
		h.startAttach(ctx, chatID, userID, arg)
	case cbPublish:
		h.answer(cb.ID, "", false)
		h.handlePublish(ctx, chatID, userID, arg)
	case cbStats:
		h.answer(cb.ID, "", false)
		h.handleStats(ctx, chatID, userID, arg)
	case cbEarlyFinish:
		h.answer(cb.ID, "", false)
		h.handleEarlyFinishRequest(ctx, chatID, userID, arg)
	case cbConfirmFinish:
		h.answer(cb.ID, "", false)
		h.handleEarlyFinishConfirm(ctx, chatID, userID, arg)
	case cbCancelFinish:
		h.dropPending(userID)
		h.answer(cb.ID, textFinishCancelled, false)
		h.reply(chatID, textFinishCancelled, nil)
	case cbChangeKeyword:
		if !h.isAdmin(userID) {
			h.answer(cb.ID, textAdminOnly, true)
			return
		}
		h.answer(cb.ID, "", false)
		if h.setState(ctx, chatID, userID, state.UserState{Step: state.StepChangeKeyword}) {
			h.reply(chatID, textEnterKeyword, cancelKeywordKeyboard())
		}
	case cbCancelKeyword:
		h.clearState(ctx, userID)
		h.answer(cb.ID, textKeywordCancelled, false)
		h.reply(chatID, textKeywordCancelled, mainKeyboard(h.isAdmin(userID)))
	}
}

func (h *Handler) startAttach(ctx context.Context, chatID, userID int64, token string) {
	g, err := h.giveawayUC.GetManaged(ctx, token, userID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	if !g.IsDraft() {
		h.replyError(chatID, giveaways.ErrNotDraft)
		return
	}
	if h.setState(ctx, chatID, userID, state.UserState{Step: state.StepAttachChannel, Token: token}) {
		h.reply(chatID, textEnterChannel, nil)
	}
}

func (h *Handler) handlePublish(ctx context.Context, chatID, userID int64, token string) {
	g, n, err := h.giveawayUC.Publish(ctx, token, userID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.reply(chatID, publishedText(g, n), statsKeyboard(g))
}

func (h *Handler) handleStats(ctx context.Context, chatID, userID int64, token string) {
	st, err := h.giveawayUC.Stats(ctx, token, userID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.reply(chatID, giveaways.FormatStats(st, h.loc), statsKeyboard(st.Giveaway))
}

func (h *Handler) handleEarlyFinishRequest(ctx context.Context, chatID, userID int64, token string) {
	st, err := h.giveawayUC.Stats(ctx, token, userID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	switch {
	case st.Giveaway.IsFinished():
		h.reply(chatID, textAlreadyFinished, nil)
		return
	case !st.Giveaway.RunStatus:
		h.reply(chatID, textNotActive, nil)
		return
	}
	h.mu.Lock()
	h.pendingFinish[userID] = pendingFinish{token: token, at: h.now()}
	h.mu.Unlock()
	h.reply(chatID, confirmFinishText(st.Giveaway, st.Participants), confirmFinishKeyboard(token))
}

func (h *Handler) handleEarlyFinishConfirm(ctx context.Context, chatID, userID int64, token string) {
	h.mu.Lock()
	pending, ok := h.pendingFinish[userID]
	if ok && (pending.token != token || h.now().Sub(pending.at) > confirmTTL) {
		ok = false
	}
	delete(h.pendingFinish, userID)
	h.mu.Unlock()
	if !ok {
		h.reply(chatID, textConfirmExpired, nil)
		return
	}
	if _, err := h.giveawayUC.GetManaged(ctx, token, userID); err != nil {
		h.replyError(chatID, err)
		return
	}
	res, err := h.lifecycleUC.Finish(ctx, token, lifecycle.ReasonEarly)
	if errors.Is(err, lifecycle.ErrAlreadyFinished) {
		h.reply(chatID, textAlreadyFinished, nil)
		return
	}
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.log.Info().Str("giveaway", token).Int64("user", userID).Msg("розыгрыш завершён досрочно")
	h.reply(chatID, finishedText(res.Giveaway, len(res.Participants), len(res.Winners), res.Announced)+"\n\n"+lifecycle.FormatResults(res, h.now().In(h.loc)), mainKeyboard(h.isAdmin(userID)))
}

func (h *Handler) dropPending(userID int64) {
	h.mu.Lock()
	delete(h.pendingFinish, userID)
	h.mu.Unlock()
}
