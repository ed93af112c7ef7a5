package bot

import (
	"context"
	"errors"
	"html"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-giveaway-bot/internal/adapters/state"
	"tg-giveaway-bot/internal/adapters/telegram"
	"tg-giveaway-bot/internal/domain"
	"tg-giveaway-bot/internal/infra/metrics"
	"tg-giveaway-bot/internal/usecase/giveaways"
	"tg-giveaway-bot/internal/usecase/lifecycle"
	"tg-giveaway-bot/internal/usecase/participation"
	"tg-giveaway-bot/internal/usecase/settings"
)

// confirmTTL ограничивает время жизни запроса на досрочное завершение.
const confirmTTL = 5 * time.Minute

// Sender описывает методы Bot API, которые использует обработчик.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Deps собирает зависимости обработчика.
type Deps struct {
	Giveaways     *giveaways.Service
	Participation *participation.Service
	Lifecycle     *lifecycle.Service
	Settings      *settings.Service
	States        *state.Store
	// IsAdmin проверяет глобальный список администраторов.
	IsAdmin func(userID int64) bool
	// OpenCreation разрешает создавать розыгрыши всем пользователям, когда список администраторов пуст.
	OpenCreation bool
	Location     *time.Location
}

type pendingFinish struct {
	token string
	at    time.Time
}

// Handler обслуживает апдейты бота.
type Handler struct {
	bot           Sender
	log           zerolog.Logger
	giveawayUC    *giveaways.Service
	participation *participation.Service
	lifecycleUC   *lifecycle.Service
	settingsUC    *settings.Service
	states        *state.Store
	isAdmin       func(int64) bool
	openCreation  bool
	loc           *time.Location
	now           func() time.Time

	mu            sync.Mutex
	pendingFinish map[int64]pendingFinish
}

// NewHandler создаёт обработчик.
func NewHandler(bot Sender, log zerolog.Logger, deps Deps) *Handler {
	isAdmin := deps.IsAdmin
	if isAdmin == nil {
		isAdmin = func(int64) bool { return false }
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		bot:           bot,
		log:           log,
		giveawayUC:    deps.Giveaways,
		participation: deps.Participation,
		lifecycleUC:   deps.Lifecycle,
		settingsUC:    deps.Settings,
		states:        deps.States,
		isAdmin:       isAdmin,
		openCreation:  deps.OpenCreation,
		loc:           loc,
		now:           time.Now,
		pendingFinish: make(map[int64]pendingFinish),
	}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil:
		if upd.Message.Chat != nil && (upd.Message.Chat.IsGroup() || upd.Message.Chat.IsSuperGroup()) {
			h.handleGroupMessage(ctx, upd.Message)
			return
		}
		if upd.Message.Chat != nil && upd.Message.Chat.IsPrivate() {
			h.handleMessage(ctx, upd.Message)
		}
	case upd.CallbackQuery != nil:
		h.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (h *Handler) canCreate(userID int64) bool {
	return h.isAdmin(userID) || h.openCreation
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		h.reply(msg.Chat.ID, textNoUser, nil)
		return
	}
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		h.handleDialogInput(ctx, msg.Chat.ID, msg.From.ID, text)
		return
	}
	userID := msg.From.ID
	switch command(text) {
	case "/start":
		h.clearState(ctx, userID)
		h.reply(msg.Chat.ID, startText(h.isAdmin(userID)), mainKeyboard(h.isAdmin(userID)))
	case "/help":
		h.reply(msg.Chat.ID, helpText(), mainKeyboard(h.isAdmin(userID)))
	case "/new":
		h.startCreate(ctx, msg.Chat.ID, userID)
	case "/giveaways":
		h.handleList(ctx, msg.Chat.ID, userID)
	case "/keyword":
		h.handleKeyword(ctx, msg.Chat.ID, userID)
	case "/cancel":
		h.handleCancel(ctx, msg.Chat.ID, userID)
	default:
		h.reply(msg.Chat.ID, textUnknownCommand, nil)
	}
}

// command возвращает команду без аргументов и упоминания бота.
func command(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	cmd := fields[0]
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}

func (h *Handler) handleCancel(ctx context.Context, chatID, userID int64) {
	st, err := h.states.Get(ctx, userID)
	if err != nil {
		h.log.Warn().Err(err).Int64("user", userID).Msg("не удалось прочитать состояние диалога")
	}
	h.clearState(ctx, userID)
	if st.Step == state.StepNone {
		h.reply(chatID, textNothingToCancel, mainKeyboard(h.isAdmin(userID)))
		return
	}
	h.reply(chatID, textCancelled, mainKeyboard(h.isAdmin(userID)))
}

func (h *Handler) handleList(ctx context.Context, chatID, userID int64) {
	items, err := h.giveawayUC.List(ctx, userID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	if len(items) == 0 {
		h.reply(chatID, textNoGiveaways, mainKeyboard(h.isAdmin(userID)))
		return
	}
	var b strings.Builder
	b.WriteString("📋 <b>Розыгрыши</b>\n\n")
	for i, g := range items {
		b.WriteString(strconv.Itoa(i+1) + ". " + html.EscapeString(g.Name) + " — " + giveaways.StatusLabel(g) + "\n")
	}
	h.reply(chatID, b.String(), listKeyboard(items))
}

func (h *Handler) handleKeyword(ctx context.Context, chatID, userID int64) {
	if !h.isAdmin(userID) {
		h.reply(chatID, textAdminOnly, nil)
		return
	}
	kw, err := h.settingsUC.Keyword(ctx)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	h.reply(chatID, keywordText(kw), keywordKeyboard())
}

func (h *Handler) clearState(ctx context.Context, userID int64) {
	if err := h.states.Clear(ctx, userID); err != nil {
		h.log.Warn().Err(err).Int64("user", userID).Msg("не удалось сбросить состояние диалога")
	}
}

func (h *Handler) setState(ctx context.Context, chatID, userID int64, st state.UserState) bool {
	if err := h.states.Set(ctx, userID, st); err != nil {
		h.log.Error().Err(err).Int64("user", userID).Msg("не удалось сохранить состояние диалога")
		h.reply(chatID, textInternalError, nil)
		return false
	}
	return true
}

// replyError переводит ошибку сценария в сообщение пользователю.
func (h *Handler) replyError(chatID int64, err error) {
	if msg, ok := userMessage(err); ok {
		h.reply(chatID, "❌ "+msg, nil)
		return
	}
	h.log.Error().Err(err).Int64("chat", chatID).Msg("ошибка обработки запроса")
	h.reply(chatID, textInternalError, nil)
}

var userErrors = []error{
	giveaways.ErrNameInvalid,
	giveaways.ErrTypeInvalid,
	giveaways.ErrWinnersInvalid,
	giveaways.ErrEndsAtInPast,
	giveaways.ErrForbidden,
	giveaways.ErrChannelRefInvalid,
	giveaways.ErrNotChannel,
	giveaways.ErrBotNotAdmin,
	giveaways.ErrNoDiscussion,
	giveaways.ErrNoChannels,
	giveaways.ErrNotDraft,
	settings.ErrKeywordInvalid,
	lifecycle.ErrAlreadyFinished,
}

func userMessage(err error) (string, bool) {
	if errors.Is(err, domain.ErrGiveawayNotFound) {
		return textNotFound, true
	}
	for _, known := range userErrors {
		if errors.Is(err, known) {
			return known.Error(), true
		}
	}
	return "", false
}

func (h *Handler) reply(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	parts := telegram.SplitMessage(text)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if i == len(parts)-1 && keyboard != nil {
			msg.ReplyMarkup = keyboard
		}
		start := time.Now()
		_, err := h.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			metrics.BotSendErrors.Inc()
			h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось отправить сообщение")
			return
		}
	}
}

// replyTo отвечает на сообщение в группе простым текстом.
func (h *Handler) replyTo(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	start := time.Now()
	_, err := h.bot.Send(out)
	metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(msg.Chat.ID, 10), start, err)
	if err != nil {
		metrics.BotSendErrors.Inc()
		h.log.Warn().Err(err).Int64("chat", msg.Chat.ID).Msg("не удалось ответить в группе")
	}
}

func (h *Handler) answer(callbackID, text string, alert bool) {
	cfg := tgbotapi.NewCallback(callbackID, text)
	cfg.ShowAlert = alert
	start := time.Now()
	_, err := h.bot.Request(cfg)
	metrics.ObserveNetworkRequest("telegram_bot", "answer_callback", "callback", start, err)
	if err != nil {
		h.log.Warn().Err(err).Msg("не удалось ответить на callback")
	}
}
