package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-giveaway-bot/internal/domain"
	"tg-giveaway-bot/internal/usecase/giveaways"
)

// Callback data.
const (
	cbJoin              = "join"
	cbType              = "type"
	cbAttach            = "attach"
	cbPublish           = "publish"
	cbStats             = "stats"
	cbEarlyFinish       = "early_finish"
	cbConfirmFinish     = "confirm_early_finish"
	cbCancelFinish      = "cancel_early_finish"
	cbChangeKeyword     = "change_keyword"
	cbCancelKeyword     = "cancel_keyword_change"
	cbMenu              = "menu"
	cbMyGiveaways       = "my_giveaways"
	cbNewGiveaway       = "new_giveaway"
	callbackDataMaxSize = 64
)

func data(action, arg string) string {
	if arg == "" {
		return action
	}
	return action + ":" + arg
}

func mainKeyboard(isAdmin bool) *tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎁 Новый розыгрыш", cbNewGiveaway),
			tgbotapi.NewInlineKeyboardButtonData("📋 Мои розыгрыши", cbMyGiveaways),
		),
	}
	if isAdmin {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔑 Ключевое слово", cbChangeKeyword),
		))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func typeKeyboard() *tgbotapi.InlineKeyboardMarkup {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔘 "+giveaways.TypeLabel(domain.GiveawayTypeButton), data(cbType, string(domain.GiveawayTypeButton))),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💬 "+giveaways.TypeLabel(domain.GiveawayTypeComments), data(cbType, string(domain.GiveawayTypeComments))),
		),
	)
	return &markup
}

func draftKeyboard(token string) *tgbotapi.InlineKeyboardMarkup {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📢 Привязать канал", data(cbAttach, token)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚀 Опубликовать", data(cbPublish, token)),
			tgbotapi.NewInlineKeyboardButtonData("📊 Статистика", data(cbStats, token)),
		),
	)
	return &markup
}

func statsKeyboard(g domain.Giveaway) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	switch {
	case g.IsDraft():
		rows = append(rows, draftKeyboard(g.Token).InlineKeyboard...)
	case g.RunStatus:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Обновить", data(cbStats, g.Token)),
			tgbotapi.NewInlineKeyboardButtonData("🏁 Завершить досрочно", data(cbEarlyFinish, g.Token)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Меню", cbMenu),
	))
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func confirmFinishKeyboard(token string) *tgbotapi.InlineKeyboardMarkup {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Да, завершить", data(cbConfirmFinish, token)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", data(cbCancelFinish, token)),
		),
	)
	return &markup
}

func keywordKeyboard() *tgbotapi.InlineKeyboardMarkup {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Изменить", cbChangeKeyword),
		),
	)
	return &markup
}

func cancelKeywordKeyboard() *tgbotapi.InlineKeyboardMarkup {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", cbCancelKeyword),
		),
	)
	return &markup
}

func listKeyboard(items []domain.Giveaway) *tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(items)+1)
	for i, g := range items {
		label := fmt.Sprintf("%d. %s", i+1, truncate(g.Name, 40))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, data(cbStats, g.Token)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Меню", cbMenu),
	))
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

// Commands возвращает список команд для setMyCommands.
func Commands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "start", Description: "Главное меню"},
		{Command: "new", Description: "Создать розыгрыш"},
		{Command: "giveaways", Description: "Мои розыгрыши"},
		{Command: "keyword", Description: "Ключевое слово для комментариев"},
		{Command: "cancel", Description: "Отменить действие"},
		{Command: "help", Description: "Помощь"},
	}
}
