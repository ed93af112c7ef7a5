package giveaways

import (
	"fmt"
	"html"
	"strings"
	"time"

	"tg-giveaway-bot/internal/domain"
)

// DateLayout задаёт формат даты окончания, который вводит администратор.
const DateLayout = "02.01.2006 15:04"

// ParseEndsAt разбирает дату формата ДД.ММ.ГГГГ ЧЧ:ММ в указанном часовом поясе.
func ParseEndsAt(input string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, strings.TrimSpace(input), loc)
}

// FormatPost формирует текст поста розыгрыша для каналов.
func FormatPost(g domain.Giveaway, channels []domain.Channel, keyword string, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	b.WriteString("🎁 <b>РОЗЫГРЫШ</b>\n\n")
	b.WriteString("<b>" + html.EscapeString(g.Name) + "</b>\n")
	if g.Description != "" {
		b.WriteString("\n" + html.EscapeString(g.Description) + "\n")
	}
	b.WriteString(fmt.Sprintf("\n🏆 <b>Победителей:</b> %d\n", g.WinnersCount))
	b.WriteString("📅 <b>Итоги:</b> " + g.EndsAt.In(loc).Format(DateLayout) + "\n")

	if len(channels) > 1 {
		b.WriteString("\n📢 <b>Условие:</b> подписка на все каналы:\n")
		for _, ch := range channels {
			b.WriteString("• " + channelLink(ch) + "\n")
		}
	}

	b.WriteString("\n")
	switch g.Type {
	case domain.GiveawayTypeComments:
		b.WriteString(fmt.Sprintf("💬 Чтобы участвовать, напишите в комментариях под этим постом: <b>%s</b>", html.EscapeString(keyword)))
	default:
		b.WriteString("👇 Чтобы участвовать, нажмите кнопку ниже")
	}
	return b.String()
}

func channelLink(ch domain.Channel) string {
	if ch.Username != "" {
		return "@" + html.EscapeString(ch.Username)
	}
	return html.EscapeString(ch.DisplayName())
}

// TypeLabel возвращает название типа розыгрыша.
func TypeLabel(t domain.GiveawayType) string {
	switch t {
	case domain.GiveawayTypeButton:
		return "По кнопке"
	case domain.GiveawayTypeComments:
		return "По комментариям"
	default:
		return "Неизвестный"
	}
}

// StatusLabel возвращает статус розыгрыша для списка.
func StatusLabel(g domain.Giveaway) string {
	switch {
	case g.IsFinished() && g.EarlyFinish:
		return "🏁 Завершён досрочно"
	case g.IsFinished():
		return "✅ Завершён"
	case g.RunStatus:
		return "🟢 Активный"
	default:
		return "📝 Черновик"
	}
}

// ParticipantsCount склоняет слово «участник» по числу.
func ParticipantsCount(n int) string {
	mod100 := n % 100
	mod10 := n % 10
	word := "участников"
	switch {
	case mod100 >= 11 && mod100 <= 14:
	case mod10 == 1:
		word = "участник"
	case mod10 >= 2 && mod10 <= 4:
		word = "участника"
	}
	return fmt.Sprintf("%d %s", n, word)
}

// FormatStats формирует сводку по розыгрышу для администратора.
func FormatStats(st domain.GiveawayStats, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	g := st.Giveaway
	lines := []string{
		"📊 <b>Статистика розыгрыша</b>",
		"",
		"📝 <b>Название:</b> " + html.EscapeString(g.Name),
		"🎯 <b>Тип:</b> " + TypeLabel(g.Type),
		"📌 <b>Статус:</b> " + StatusLabel(g),
		fmt.Sprintf("🏆 <b>Победителей:</b> %d", g.WinnersCount),
		"👥 <b>Участники:</b> " + ParticipantsCount(st.Participants),
		"📅 <b>Окончание:</b> " + g.EndsAt.In(loc).Format(DateLayout),
	}
	if len(st.Channels) > 0 {
		lines = append(lines, "", "📢 <b>Каналы:</b>")
		for _, ch := range st.Channels {
			lines = append(lines, "• "+channelLink(ch))
		}
	} else {
		lines = append(lines, "", "⚠️ Каналы не привязаны")
	}
	return strings.Join(lines, "\n")
}
