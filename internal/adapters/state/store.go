package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"tg-giveaway-bot/internal/domain"
	"tg-giveaway-bot/internal/infra/cache"
)

// Step обозначает шаг многошагового диалога с администратором.
type Step string

const (
	StepNone          Step = ""
	StepCreateName    Step = "create_name"
	StepCreateType    Step = "create_type"
	StepCreateWinners Step = "create_winners"
	StepCreateEndsAt  Step = "create_ends_at"
	StepAttachChannel Step = "attach_channel"
	StepChangeKeyword Step = "change_keyword"
)

// Draft накапливает ответы диалога создания розыгрыша.
type Draft struct {
	Name    string              `json:"name,omitempty"`
	Type    domain.GiveawayType `json:"type,omitempty"`
	Winners int                 `json:"winners,omitempty"`
}

// UserState хранит состояние диалога пользователя.
type UserState struct {
	Step  Step   `json:"step"`
	Token string `json:"token,omitempty"`
	Draft Draft  `json:"draft"`
}

// Store хранит состояния в domain.Cache с TTL.
type Store struct {
	cache domain.Cache
	ttl   time.Duration
}

// NewStore создаёт хранилище состояний.
func NewStore(c domain.Cache, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{cache: c, ttl: ttl}
}

func key(userID int64) string {
	return "fsm:" + strconv.FormatInt(userID, 10)
}

// Get возвращает состояние пользователя. Отсутствие состояния не ошибка.
func (s *Store) Get(ctx context.Context, userID int64) (UserState, error) {
	data, err := s.cache.Get(ctx, key(userID))
	if errors.Is(err, cache.ErrMiss) {
		return UserState{}, nil
	}
	if err != nil {
		return UserState{}, fmt.Errorf("load state: %w", err)
	}
	var st UserState
	if err := json.Unmarshal(data, &st); err != nil {
		return UserState{}, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}

// Set сохраняет состояние и продлевает TTL.
func (s *Store) Set(ctx context.Context, userID int64, st UserState) error {
	if st.Step == StepNone {
		return s.Clear(ctx, userID)
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.cache.Set(ctx, key(userID), data, s.ttl); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Clear сбрасывает диалог.
func (s *Store) Clear(ctx context.Context, userID int64) error {
	return s.cache.Del(ctx, key(userID))
}
