package bot

import (
	"fmt"
	"html"
	"strings"

	"tg-giveaway-bot/internal/domain"
)

const (
	textUnknownCommand   = "Неизвестная команда. Используйте /help"
	textNoUser           = "Не удалось определить пользователя"
	textAdminOnly        = "⛔️ Команда доступна только администраторам"
	textInternalError    = "⚠️ Произошла ошибка, попробуйте позже"
	textBadCallback      = "Некорректные данные"
	textCancelled        = "Действие отменено"
	textNothingToCancel  = "Нет активного действия"
	textEnterName        = "📝 Введите название розыгрыша (до 128 символов):"
	textChooseType       = "🎯 Выберите тип розыгрыша:"
	textChooseTypeButton = "Выберите тип кнопкой под сообщением"
	textEnterWinners     = "🏆 Сколько будет победителей? Введите число от 1 до 100:"
	textBadWinners       = "Введите число от 1 до 100"
	textEnterEndsAt      = "📅 Введите дату и время окончания в формате ДД.ММ.ГГГГ ЧЧ:ММ\nНапример: 31.12.2026 20:00"
	textBadEndsAt        = "❌ Неверный формат. Используйте ДД.ММ.ГГГГ ЧЧ:ММ"
	textEnterChannel     = "📢 Отправьте @username канала, ссылку t.me/... или его числовой ID.\nБот должен быть администратором канала."
	textEnterKeyword     = "✏️ Отправьте новое ключевое слово для участия по комментариям:"
	textKeywordCancelled = "Изменение ключевого слова отменено"
	textNoGiveaways      = "У вас пока нет розыгрышей. Создайте первый командой /new"
	textNotFound         = "Розыгрыш не найден"
	textFinishCancelled  = "Досрочное завершение отменено"
	textConfirmExpired   = "Запрос на завершение устарел. Нажмите «Завершить досрочно» ещё раз"
	textAlreadyFinished  = "Розыгрыш уже завершён"
	textNotActive        = "Розыгрыш ещё не запущен"
)

func startText(isAdmin bool) string {
	lines := []string{
		"👋 Привет! Я провожу розыгрыши в Telegram-каналах.",
		"",
		"Как это работает:",
		"1. 🎁 Создайте розыгрыш командой /new.",
		"2. 📢 Привяжите канал, где бот администратор.",
		"3. 🚀 Опубликуйте пост. Участники жмут кнопку или пишут ключевое слово в комментариях.",
		"4. 🏆 В назначенное время бот выберет победителей среди подписчиков.",
	}
	if isAdmin {
		lines = append(lines, "", "Вы администратор: доступны все розыгрыши и /keyword.")
	}
	return strings.Join(lines, "\n")
}

func helpText() string {
	return strings.Join([]string{
		"📖 Команды:",
		"",
		"• /new — создать розыгрыш.",
		"• /giveaways — мои розыгрыши и статистика.",
		"• /keyword — ключевое слово для участия по комментариям.",
		"• /cancel — отменить текущее действие.",
		"",
		"Типы розыгрышей:",
		"• По кнопке — участник жмёт «Участвовать» под постом.",
		"• По комментариям — участник пишет ключевое слово в комментариях к посту.",
		"",
		"Участвовать могут только подписчики всех каналов розыгрыша.",
	}, "\n")
}

func createdText(g domain.Giveaway) string {
	return fmt.Sprintf("✅ Розыгрыш «%s» создан.\n\nТеперь привяжите канал, в котором будет опубликован пост.", html.EscapeString(g.Name))
}

func channelAttachedText(ch domain.Channel) string {
	return fmt.Sprintf("✅ Канал %s привязан.\n\nМожно привязать ещё один канал или опубликовать розыгрыш.", html.EscapeString(ch.DisplayName()))
}

func publishedText(g domain.Giveaway, channels int) string {
	return fmt.Sprintf("🚀 Розыгрыш «%s» опубликован в каналах: %d.", html.EscapeString(g.Name), channels)
}

func confirmFinishText(g domain.Giveaway, participants int) string {
	return fmt.Sprintf("⚠️ Завершить розыгрыш «%s» досрочно?\n\nУчастников: %d. Победители будут выбраны сразу, отменить это действие нельзя.", html.EscapeString(g.Name), participants)
}

func finishedText(g domain.Giveaway, participants, winners, announced int) string {
	return fmt.Sprintf("🏁 Розыгрыш «%s» завершён.\nУчастников: %d, победителей: %d.\nРезультаты отправлены в каналы: %d.", html.EscapeString(g.Name), participants, winners, announced)
}

func keywordText(keyword string) string {
	return fmt.Sprintf("🔑 Текущее ключевое слово: <b>%s</b>", html.EscapeString(keyword))
}

func keywordSavedText(keyword string) string {
	return fmt.Sprintf("✅ Ключевое слово изменено на <b>%s</b>", html.EscapeString(keyword))
}

func joinedText(g domain.Giveaway) string {
	return fmt.Sprintf("🎉 Вы участвуете в розыгрыше «%s»! Удачи!", g.Name)
}

func alreadyJoinedText() string {
	return "ℹ️ Вы уже участвуете в этом розыгрыше"
}

func notSubscribedText(ch domain.Channel) string {
	return fmt.Sprintf("❌ Для участия подпишитесь на канал %s", ch.DisplayName())
}

func inactiveText() string {
	return "⏰ Розыгрыш завершён или ещё не начался"
}
