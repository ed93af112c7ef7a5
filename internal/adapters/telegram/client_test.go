package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAPI struct {
	sent      []tgbotapi.MessageConfig
	sendErr   error
	chatCfg   tgbotapi.ChatInfoConfig
	chat      tgbotapi.Chat
	memberCfg tgbotapi.GetChatMemberConfig
	member    tgbotapi.ChatMember
	memberErr error
	nextMsgID int
}

func (s *stubAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if s.sendErr != nil {
		return tgbotapi.Message{}, s.sendErr
	}
	msg, ok := c.(tgbotapi.MessageConfig)
	if ok {
		s.sent = append(s.sent, msg)
	}
	s.nextMsgID++
	return tgbotapi.Message{MessageID: s.nextMsgID}, nil
}

func (s *stubAPI) GetChat(cfg tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	s.chatCfg = cfg
	return s.chat, nil
}

func (s *stubAPI) GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	s.memberCfg = cfg
	return s.member, s.memberErr
}

func TestMemberStatus(t *testing.T) {
	api := &stubAPI{member: tgbotapi.ChatMember{Status: "administrator"}}
	client := NewClient(api, 777)

	status, err := client.MemberStatus(context.Background(), -100, 42)
	require.NoError(t, err)
	assert.Equal(t, "administrator", status)
	assert.Equal(t, int64(-100), api.memberCfg.ChatID)
	assert.Equal(t, int64(42), api.memberCfg.UserID)

	_, err = client.BotStatus(context.Background(), -100)
	require.NoError(t, err)
	assert.Equal(t, int64(777), api.memberCfg.UserID)
}

func TestMemberStatusError(t *testing.T) {
	api := &stubAPI{memberErr: errors.New("Bad Request: user not found")}
	status, err := NewClient(api, 1).MemberStatus(context.Background(), -100, 42)
	require.Error(t, err)
	assert.Empty(t, status)
}

func TestResolveChat(t *testing.T) {
	api := &stubAPI{chat: tgbotapi.Chat{ID: -1001, Title: "Новости", UserName: "news", Type: "channel", LinkedChatID: -1002}}
	client := NewClient(api, 1)

	info, err := client.ResolveChat(context.Background(), "@news")
	require.NoError(t, err)
	assert.Equal(t, "@news", api.chatCfg.SuperGroupUsername)
	assert.Equal(t, int64(-1002), info.LinkedChatID)
	assert.Equal(t, "news", info.Username)

	_, err = client.ResolveChat(context.Background(), "-1001")
	require.NoError(t, err)
	assert.Equal(t, int64(-1001), api.chatCfg.ChatID)

	_, err = client.ResolveChat(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyRef)
}

func TestPublishGiveawayAddsJoinButton(t *testing.T) {
	api := &stubAPI{}
	client := NewClient(api, 1)

	id, err := client.PublishGiveaway(context.Background(), -100, "<b>Розыгрыш</b>", "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	require.Len(t, api.sent, 1)
	assert.Equal(t, tgbotapi.ModeHTML, api.sent[0].ParseMode)
	markup, ok := api.sent[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.NotNil(t, markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "join:abc", *markup.InlineKeyboard[0][0].CallbackData)

	_, err = client.PublishGiveaway(context.Background(), -100, "текст", "")
	require.NoError(t, err)
	assert.Nil(t, api.sent[1].ReplyMarkup)
}

func TestSendHTMLSplitsLongText(t *testing.T) {
	api := &stubAPI{}
	text := strings.Repeat("строка\n", 1200)
	require.NoError(t, NewClient(api, 1).SendHTML(context.Background(), -100, text))
	assert.Len(t, api.sent, 3)
}
