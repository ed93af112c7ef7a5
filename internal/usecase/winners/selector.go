package winners

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"tg-giveaway-bot/internal/domain"
)

// Select выбирает min(count, len(participants)) победителей без повторов.
// Места нумеруются с 1 в порядке выбора. Исходный срез не изменяется.
func Select(participants []domain.Participant, count int) ([]domain.Winner, error) {
	return selectFrom(rand.Reader, participants, count)
}

func selectFrom(src io.Reader, participants []domain.Participant, count int) ([]domain.Winner, error) {
	if count <= 0 || len(participants) == 0 {
		return []domain.Winner{}, nil
	}
	pool := append([]domain.Participant(nil), participants...)
	if err := shuffle(src, pool); err != nil {
		return nil, err
	}
	if count > len(pool) {
		count = len(pool)
	}
	out := make([]domain.Winner, count)
	for i := 0; i < count; i++ {
		out[i] = domain.Winner{Participant: pool[i], Place: i + 1}
	}
	return out, nil
}

// shuffle перемешивает срез по Фишеру–Йетсу на криптографическом источнике.
func shuffle[T any](src io.Reader, slice []T) error {
	for i := len(slice) - 1; i > 0; i-- {
		jBig, err := rand.Int(src, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("генерация случайного индекса: %w", err)
		}
		j := int(jBig.Int64())
		slice[i], slice[j] = slice[j], slice[i]
	}
	return nil
}
