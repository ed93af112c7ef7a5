package lifecycle

import (
	"fmt"
	"html"
	"strings"
	"time"

	"tg-giveaway-bot/internal/domain"
)

// DateLayout задаёт формат дат в сообщениях бота.
const DateLayout = "02.01.2006 15:04"

// FormatResults формирует HTML-сообщение с итогами розыгрыша.
func FormatResults(res Result, at time.Time) string {
	var b strings.Builder
	b.WriteString("🏆 <b>РЕЗУЛЬТАТЫ РОЗЫГРЫША</b>\n\n")
	b.WriteString("📝 <b>Розыгрыш:</b> " + html.EscapeString(res.Giveaway.Name) + "\n")
	b.WriteString(fmt.Sprintf("👥 <b>Участников:</b> %d\n", len(res.Participants)))
	if res.Giveaway.EarlyFinish {
		b.WriteString("🏁 <b>Завершен досрочно</b>\n")
	}
	b.WriteString("\n")

	if len(res.Winners) > 0 {
		b.WriteString("🎉 <b>ПОБЕДИТЕЛИ:</b>\n\n")
		for _, w := range res.Winners {
			b.WriteString(fmt.Sprintf("%s <b>%d место</b> - %s\n", placeIcon(w.Place), w.Place, Mention(w.Participant)))
		}
	} else {
		b.WriteString("😔 <b>Победители не определены</b>\n(недостаточно участников)\n")
	}

	b.WriteString("\n📅 <b>Дата завершения:</b> " + at.Format(DateLayout))
	return b.String()
}

// Mention возвращает ссылку на участника: @username или tg://user.
func Mention(p domain.Participant) string {
	if p.Username != "" {
		return "@" + html.EscapeString(p.Username)
	}
	name := strings.TrimSpace(p.FirstName)
	if name == "" {
		name = fmt.Sprintf("id%d", p.UserID)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, p.UserID, html.EscapeString(name))
}

func placeIcon(place int) string {
	switch place {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return "🏅"
	}
}
