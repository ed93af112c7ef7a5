package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-giveaway-bot/internal/adapters/repo"
	"tg-giveaway-bot/internal/adapters/state"
	"tg-giveaway-bot/internal/domain"
	"tg-giveaway-bot/internal/infra/cache"
	"tg-giveaway-bot/internal/infra/queue"
	"tg-giveaway-bot/internal/usecase/eligibility"
	"tg-giveaway-bot/internal/usecase/giveaways"
	"tg-giveaway-bot/internal/usecase/lifecycle"
	"tg-giveaway-bot/internal/usecase/participation"
	"tg-giveaway-bot/internal/usecase/settings"
)

const (
	adminID     = int64(1)
	userID      = int64(7)
	channelID   = int64(-1001)
	discussion  = int64(-2001)
	channelPost = 10
)

type sentMessage struct {
	chatID  int64
	text    string
	replyTo int
}

type stubSender struct {
	mu       sync.Mutex
	messages []sentMessage
	answers  []tgbotapi.CallbackConfig
}

func (s *stubSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.messages = append(s.messages, sentMessage{chatID: msg.ChatID, text: msg.Text, replyTo: msg.ReplyToMessageID})
	}
	return tgbotapi.Message{}, nil
}

func (s *stubSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		s.answers = append(s.answers, cb)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (s *stubSender) lastText(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.messages)
	return s.messages[len(s.messages)-1].text
}

func (s *stubSender) lastAnswer(t *testing.T) tgbotapi.CallbackConfig {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.answers)
	return s.answers[len(s.answers)-1]
}

type stubTelegram struct {
	mu     sync.Mutex
	nextID int
	sent   []int64
}

func (s *stubTelegram) ResolveChat(_ context.Context, ref string) (domain.ChatInfo, error) {
	return domain.ChatInfo{ID: channelID, Title: "Новости", Username: ref, Type: "channel", LinkedChatID: discussion}, nil
}

func (s *stubTelegram) BotStatus(context.Context, int64) (string, error) { return "administrator", nil }

func (s *stubTelegram) MemberStatus(context.Context, int64, int64) (string, error) {
	return "member", nil
}

func (s *stubTelegram) PublishGiveaway(context.Context, int64, string, string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID += channelPost
	return s.nextID, nil
}

func (s *stubTelegram) SendHTML(_ context.Context, chatID int64, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, chatID)
	return nil
}

type fixture struct {
	handler *Handler
	sender  *stubSender
	store   *repo.Memory
	tg      *stubTelegram
}

func newFixture() fixture {
	store := repo.NewMemory()
	tg := &stubTelegram{}
	sender := &stubSender{}
	log := zerolog.Nop()
	isAdmin := func(id int64) bool { return id == adminID }
	keywords := settings.NewService(store, domain.DefaultParticipationKeyword)

	h := NewHandler(sender, log, Deps{
		Giveaways:     giveaways.NewService(store, store, store, keywords, tg, tg, isAdmin, log, time.UTC),
		Participation: participation.NewService(store, store, store, keywords, eligibility.NewChecker(tg, log), log),
		Lifecycle:     lifecycle.NewService(store, store, store, tg, queue.NopPublisher{}, log, time.UTC),
		Settings:      keywords,
		States:        state.NewStore(cache.NewMemory(), time.Hour),
		IsAdmin:       isAdmin,
		Location:      time.UTC,
	})
	return fixture{handler: h, sender: sender, store: store, tg: tg}
}

func privateMessage(from int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, FirstName: "Ivan"},
		Chat:      &tgbotapi.Chat{ID: from, Type: "private"},
		Text:      text,
	}}
}

func callback(from int64, payload string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: from, Type: "private"}},
		Data:    payload,
	}}
}

func comment(from int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 55,
		From:      &tgbotapi.User{ID: from, UserName: "winner"},
		Chat:      &tgbotapi.Chat{ID: discussion, Type: "supergroup"},
		Text:      text,
		ReplyToMessage: &tgbotapi.Message{
			MessageID:            3,
			ForwardFromChat:      &tgbotapi.Chat{ID: channelID, Type: "channel"},
			ForwardFromMessageID: channelPost,
		},
	}}
}

// publishComments проводит админа через весь диалог создания и публикует розыгрыш.
func (f fixture) publishComments(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	f.handler.HandleUpdate(ctx, privateMessage(adminID, "/new"))
	assert.Equal(t, textEnterName, f.sender.lastText(t))
	f.handler.HandleUpdate(ctx, privateMessage(adminID, "iPhone 17"))
	assert.Equal(t, textChooseType, f.sender.lastText(t))
	f.handler.HandleUpdate(ctx, callback(adminID, "type:comments"))
	assert.Contains(t, f.sender.lastText(t), textEnterWinners)
	f.handler.HandleUpdate(ctx, privateMessage(adminID, "2"))
	assert.Equal(t, textEnterEndsAt, f.sender.lastText(t))
	f.handler.HandleUpdate(ctx, privateMessage(adminID, "01.01.2099 12:00"))
	assert.Contains(t, f.sender.lastText(t), textEnterChannel)
	f.handler.HandleUpdate(ctx, privateMessage(adminID, "@news_channel"))

	items, err := f.store.ListGiveaways(ctx, adminID, true)
	require.NoError(t, err)
	require.Len(t, items, 1)
	token := items[0].Token
	assert.Equal(t, 2, items[0].WinnersCount)

	f.handler.HandleUpdate(ctx, callback(adminID, "publish:"+token))
	g, err := f.store.GetGiveaway(ctx, token)
	require.NoError(t, err)
	require.True(t, g.RunStatus)
	return token
}

func TestParseCallback(t *testing.T) {
	cases := []struct {
		raw    string
		action string
		arg    string
		ok     bool
	}{
		{"join:abc123", cbJoin, "abc123", true},
		{"menu", cbMenu, "", true},
		{"confirm_early_finish:deadbeef", cbConfirmFinish, "deadbeef", true},
		{"join", "", "", false},
		{"menu:extra", "", "", false},
		{"join:", "", "", false},
		{"join:a b", "", "", false},
		{"unknown:abc", "", "", false},
		{"stats:" + strings.Repeat("a", 64), "", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		action, arg, ok := parseCallback(tc.raw)
		assert.Equal(t, tc.ok, ok, tc.raw)
		if tc.ok {
			assert.Equal(t, tc.action, action, tc.raw)
			assert.Equal(t, tc.arg, arg, tc.raw)
		}
	}
}

func TestCommand(t *testing.T) {
	assert.Equal(t, "/start", command("/start"))
	assert.Equal(t, "/new", command("/NEW@giveaway_bot extra"))
	assert.Equal(t, "", command("   "))
}

func TestCreateRequiresAdmin(t *testing.T) {
	f := newFixture()
	f.handler.HandleUpdate(context.Background(), privateMessage(userID, "/new"))
	assert.Equal(t, textAdminOnly, f.sender.lastText(t))
}

func TestCommentJoinAndEarlyFinish(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	token := f.publishComments(t)

	f.handler.HandleUpdate(ctx, comment(userID, "Участвую!"))
	assert.Contains(t, f.sender.lastText(t), "Вы участвуете")
	f.handler.HandleUpdate(ctx, comment(userID, "участвую"))
	assert.Equal(t, alreadyJoinedText(), f.sender.lastText(t))

	before := len(f.sender.messages)
	f.handler.HandleUpdate(ctx, comment(userID+1, "просто комментарий"))
	assert.Len(t, f.sender.messages, before)

	count, err := f.store.CountParticipants(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	f.handler.HandleUpdate(ctx, callback(adminID, "confirm_early_finish:"+token))
	assert.Equal(t, textConfirmExpired, f.sender.lastText(t))

	f.handler.HandleUpdate(ctx, callback(adminID, "early_finish:"+token))
	assert.Contains(t, f.sender.lastText(t), "iPhone 17")
	f.handler.HandleUpdate(ctx, callback(adminID, "confirm_early_finish:"+token))
	assert.Contains(t, f.sender.lastText(t), "завершён")

	g, err := f.store.GetGiveaway(ctx, token)
	require.NoError(t, err)
	assert.True(t, g.IsFinished())
	assert.True(t, g.EarlyFinish)
	assert.Equal(t, []int64{channelID}, f.tg.sent)

	before = len(f.sender.messages)
	f.handler.HandleUpdate(ctx, comment(userID+2, "поздравляю победителей"))
	assert.Len(t, f.sender.messages, before)

	f.handler.HandleUpdate(ctx, comment(userID+2, "участвую"))
	assert.Equal(t, inactiveText(), f.sender.lastText(t))
}

func TestEarlyFinishConfirmationExpires(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	token := f.publishComments(t)

	now := time.Now()
	f.handler.now = func() time.Time { return now }
	f.handler.HandleUpdate(ctx, callback(adminID, "early_finish:"+token))
	f.handler.now = func() time.Time { return now.Add(confirmTTL + time.Second) }
	f.handler.HandleUpdate(ctx, callback(adminID, "confirm_early_finish:"+token))
	assert.Equal(t, textConfirmExpired, f.sender.lastText(t))

	g, err := f.store.GetGiveaway(ctx, token)
	require.NoError(t, err)
	assert.True(t, g.RunStatus)
}

func TestEarlyFinishForbiddenForStranger(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	token := f.publishComments(t)

	f.handler.HandleUpdate(ctx, callback(userID, "early_finish:"+token))
	assert.Contains(t, f.sender.lastText(t), giveaways.ErrForbidden.Error())
}

func TestMalformedCallback(t *testing.T) {
	f := newFixture()
	f.handler.HandleUpdate(context.Background(), callback(adminID, "publish:../../etc"))
	assert.Equal(t, textBadCallback, f.sender.lastAnswer(t).Text)
	assert.Empty(t, f.sender.messages)
}

func TestKeywordChangeAdminOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.handler.HandleUpdate(ctx, callback(userID, cbChangeKeyword))
	assert.Equal(t, textAdminOnly, f.sender.lastAnswer(t).Text)

	f.handler.HandleUpdate(ctx, callback(adminID, cbChangeKeyword))
	assert.Equal(t, textEnterKeyword, f.sender.lastText(t))
	f.handler.HandleUpdate(ctx, privateMessage(adminID, "  Хочу  "))
	kw, err := f.handler.settingsUC.Keyword(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Хочу", kw)
}

func TestCancelWithoutDialog(t *testing.T) {
	f := newFixture()
	f.handler.HandleUpdate(context.Background(), privateMessage(adminID, "/cancel"))
	assert.Equal(t, textNothingToCancel, f.sender.lastText(t))
}
