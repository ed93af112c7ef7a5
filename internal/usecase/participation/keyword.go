package participation

import "strings"

// MatchKeyword ищет ключевое слово в тексте без учёта регистра.
// Пустой текст или пустое ключевое слово не совпадают никогда.
func MatchKeyword(text, keyword string) bool {
	text = strings.TrimSpace(text)
	keyword = strings.TrimSpace(keyword)
	if text == "" || keyword == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(keyword))
}
