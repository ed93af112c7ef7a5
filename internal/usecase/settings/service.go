package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"tg-giveaway-bot/internal/domain"
)

// MaxKeywordLength ограничивает длину ключевого слова.
const MaxKeywordLength = 64

// ErrKeywordInvalid возвращается для пустого или слишком длинного ключевого слова.
var ErrKeywordInvalid = errors.New("ключевое слово должно быть непустым и не длиннее 64 символов")

// Service управляет настройками бота.
type Service struct {
	repo     domain.SettingsRepo
	fallback string
}

// NewService создаёт сервис. fallback используется, если ключевое слово не сохранено.
func NewService(repo domain.SettingsRepo, fallback string) *Service {
	fallback = strings.TrimSpace(fallback)
	if fallback == "" {
		fallback = domain.DefaultParticipationKeyword
	}
	return &Service{repo: repo, fallback: fallback}
}

// Keyword возвращает текущее ключевое слово участия.
func (s *Service) Keyword(ctx context.Context) (string, error) {
	st, err := s.repo.GetSettings(ctx)
	if err != nil {
		return "", fmt.Errorf("чтение настроек: %w", err)
	}
	if kw := strings.TrimSpace(st.ParticipationKeyword); kw != "" {
		return kw, nil
	}
	return s.fallback, nil
}

// SetKeyword сохраняет новое ключевое слово.
func (s *Service) SetKeyword(ctx context.Context, keyword string) (string, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" || utf8.RuneCountInString(keyword) > MaxKeywordLength {
		return "", ErrKeywordInvalid
	}
	if err := s.repo.SetParticipationKeyword(ctx, keyword); err != nil {
		return "", fmt.Errorf("сохранение ключевого слова: %w", err)
	}
	return keyword, nil
}
