package telegram

import "strings"

const messageLimit = 4096

// SplitMessage режет текст на части не длиннее лимита Telegram.
// Разрез ищется сначала по пустой строке, затем по переводу строки и по пробелу,
// чтобы строки с HTML-разметкой не рвались посередине.
func SplitMessage(text string) []string {
	return splitRunes(strings.TrimSpace(text), messageLimit)
}

func splitRunes(text string, limit int) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	var parts []string
	for len(runes) > 0 {
		if len(runes) <= limit {
			parts = appendChunk(parts, runes)
			break
		}
		cut := splitPoint(runes[:limit])
		parts = appendChunk(parts, runes[:cut])
		runes = runes[cut:]
	}
	return parts
}

// splitPoint возвращает индекс, по которому окно режется на две части.
func splitPoint(window []rune) int {
	for i := len(window) - 1; i > 0; i-- {
		if window[i] == '\n' && window[i-1] == '\n' {
			return i + 1
		}
	}
	for _, sep := range []rune{'\n', ' '} {
		for i := len(window) - 1; i > 0; i-- {
			if window[i] == sep {
				return i + 1
			}
		}
	}
	return len(window)
}

func appendChunk(parts []string, chunk []rune) []string {
	trimmed := strings.TrimSpace(string(chunk))
	if trimmed == "" {
		return parts
	}
	return append(parts, trimmed)
}
