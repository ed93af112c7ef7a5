package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-giveaway-bot/internal/domain"
	"tg-giveaway-bot/internal/infra/metrics"
)

// JoinButtonText задаёт подпись кнопки участия под постом розыгрыша.
const JoinButtonText = "Участвовать"

// JoinCallbackPrefix задаёт префикс callback data кнопки участия.
const JoinCallbackPrefix = "join:"

// ErrEmptyRef возвращается для пустой ссылки на чат.
var ErrEmptyRef = errors.New("empty chat reference")

// BotAPI описывает методы tgbotapi.BotAPI, которые нужны клиенту.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Client реализует порты домена поверх Bot API.
type Client struct {
	api    BotAPI
	selfID int64
}

var (
	_ domain.MemberLookup = (*Client)(nil)
	_ domain.ChatResolver = (*Client)(nil)
	_ domain.Publisher    = (*Client)(nil)
)

// NewClient создаёт клиента. selfID, ID самого бота для проверки его прав.
func NewClient(api BotAPI, selfID int64) *Client {
	return &Client{api: api, selfID: selfID}
}

// MemberStatus возвращает статус пользователя в чате.
func (c *Client) MemberStatus(ctx context.Context, chatID, userID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	start := time.Now()
	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	metrics.ObserveNetworkRequest("telegram_bot", "get_chat_member", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		return "", fmt.Errorf("get chat member: %w", err)
	}
	return member.Status, nil
}

// BotStatus возвращает статус бота в чате.
func (c *Client) BotStatus(ctx context.Context, chatID int64) (string, error) {
	return c.MemberStatus(ctx, chatID, c.selfID)
}

// ResolveChat получает сведения о канале по числовому ID или username.
func (c *Client) ResolveChat(ctx context.Context, ref string) (domain.ChatInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.ChatInfo{}, err
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.ChatInfo{}, ErrEmptyRef
	}
	cfg := tgbotapi.ChatInfoConfig{}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		cfg.ChatID = id
	} else {
		cfg.SuperGroupUsername = "@" + strings.TrimPrefix(ref, "@")
	}
	start := time.Now()
	chat, err := c.api.GetChat(cfg)
	metrics.ObserveNetworkRequest("telegram_bot", "get_chat", ref, start, err)
	if err != nil {
		return domain.ChatInfo{}, fmt.Errorf("get chat: %w", err)
	}
	return domain.ChatInfo{
		ID:           chat.ID,
		Title:        chat.Title,
		Username:     chat.UserName,
		Type:         chat.Type,
		LinkedChatID: chat.LinkedChatID,
	}, nil
}

// PublishGiveaway отправляет пост розыгрыша и возвращает ID сообщения.
func (c *Client) PublishGiveaway(ctx context.Context, chatID int64, text, joinToken string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if joinToken != "" {
		msg.ReplyMarkup = JoinKeyboard(joinToken)
	}
	start := time.Now()
	sent, err := c.api.Send(msg)
	metrics.ObserveNetworkRequest("telegram_bot", "publish_giveaway", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		metrics.BotSendErrors.Inc()
		return 0, fmt.Errorf("send giveaway post: %w", err)
	}
	return sent.MessageID, nil
}

// SendHTML отправляет HTML-сообщение, при необходимости разбивая его на части.
func (c *Client) SendHTML(ctx context.Context, chatID int64, text string) error {
	for _, part := range SplitMessage(text) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		start := time.Now()
		_, err := c.api.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			metrics.BotSendErrors.Inc()
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

// JoinKeyboard возвращает клавиатуру с кнопкой участия.
func JoinKeyboard(token string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(JoinButtonText, JoinCallbackPrefix+token),
		),
	)
}
