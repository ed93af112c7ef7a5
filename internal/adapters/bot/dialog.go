package bot

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"tg-giveaway-bot/internal/adapters/state"
	"tg-giveaway-bot/internal/domain"
	"tg-giveaway-bot/internal/usecase/giveaways"
)

func (h *Handler) startCreate(ctx context.Context, chatID, userID int64) {
	if !h.canCreate(userID) {
		h.reply(chatID, textAdminOnly, nil)
		return
	}
	if h.setState(ctx, chatID, userID, state.UserState{Step: state.StepCreateName}) {
		h.reply(chatID, textEnterName, nil)
	}
}

func (h *Handler) handleDialogInput(ctx context.Context, chatID, userID int64, text string) {
	st, err := h.states.Get(ctx, userID)
	if err != nil {
		h.log.Warn().Err(err).Int64("user", userID).Msg("не удалось прочитать состояние диалога")
		h.reply(chatID, textInternalError, nil)
		return
	}
	switch st.Step {
	case state.StepCreateName:
		h.onName(ctx, chatID, userID, st, text)
	case state.StepCreateType:
		h.reply(chatID, textChooseTypeButton, typeKeyboard())
	case state.StepCreateWinners:
		h.onWinners(ctx, chatID, userID, st, text)
	case state.StepCreateEndsAt:
		h.onEndsAt(ctx, chatID, userID, st, text)
	case state.StepAttachChannel:
		h.onChannel(ctx, chatID, userID, st, text)
	case state.StepChangeKeyword:
		h.onKeyword(ctx, chatID, userID, text)
	default:
		h.reply(chatID, textUnknownCommand, mainKeyboard(h.isAdmin(userID)))
	}
}

func (h *Handler) onName(ctx context.Context, chatID, userID int64, st state.UserState, text string) {
	name := strings.TrimSpace(text)
	if name == "" || utf8.RuneCountInString(name) > giveaways.MaxNameLength {
		h.replyError(chatID, giveaways.ErrNameInvalid)
		return
	}
	st.Step = state.StepCreateType
	st.Draft.Name = name
	if h.setState(ctx, chatID, userID, st) {
		h.reply(chatID, textChooseType, typeKeyboard())
	}
}

func (h *Handler) onType(ctx context.Context, chatID, userID int64, kind domain.GiveawayType) bool {
	st, err := h.states.Get(ctx, userID)
	if err != nil || st.Step != state.StepCreateType || !kind.Valid() {
		return false
	}
	st.Step = state.StepCreateWinners
	st.Draft.Type = kind
	if h.setState(ctx, chatID, userID, st) {
		h.reply(chatID, "Тип: "+giveaways.TypeLabel(kind)+"\n\n"+textEnterWinners, nil)
	}
	return true
}

func (h *Handler) onWinners(ctx context.Context, chatID, userID int64, st state.UserState, text string) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > giveaways.MaxWinners {
		h.reply(chatID, textBadWinners, nil)
		return
	}
	st.Step = state.StepCreateEndsAt
	st.Draft.Winners = n
	if h.setState(ctx, chatID, userID, st) {
		h.reply(chatID, textEnterEndsAt, nil)
	}
}

func (h *Handler) onEndsAt(ctx context.Context, chatID, userID int64, st state.UserState, text string) {
	endsAt, err := giveaways.ParseEndsAt(text, h.loc)
	if err != nil {
		h.reply(chatID, textBadEndsAt, nil)
		return
	}
	g, err := h.giveawayUC.Create(ctx, giveaways.CreateParams{
		Name:         st.Draft.Name,
		Type:         st.Draft.Type,
		OwnerID:      userID,
		WinnersCount: st.Draft.Winners,
		EndsAt:       endsAt,
	})
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	next := state.UserState{Step: state.StepAttachChannel, Token: g.Token}
	if h.setState(ctx, chatID, userID, next) {
		h.reply(chatID, createdText(g)+"\n\n"+textEnterChannel, nil)
	}
}

func (h *Handler) onChannel(ctx context.Context, chatID, userID int64, st state.UserState, text string) {
	ch, err := h.giveawayUC.AttachChannel(ctx, st.Token, userID, text)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.clearState(ctx, userID)
	h.reply(chatID, channelAttachedText(ch), draftKeyboard(st.Token))
}

func (h *Handler) onKeyword(ctx context.Context, chatID, userID int64, text string) {
	if !h.isAdmin(userID) {
		h.clearState(ctx, userID)
		h.reply(chatID, textAdminOnly, nil)
		return
	}
	kw, err := h.settingsUC.SetKeyword(ctx, text)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.clearState(ctx, userID)
	h.log.Info().Int64("user", userID).Str("keyword", kw).Msg("ключевое слово изменено")
	h.reply(chatID, keywordSavedText(kw), mainKeyboard(true))
}
