package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"tg-giveaway-bot/internal/domain"
)

// Memory хранит данные в памяти процесса. Используется в dev-режиме без PG_DSN и в тестах.
// Семантика условных обновлений совпадает с Postgres.
type Memory struct {
	mu           sync.Mutex
	giveaways    map[string]domain.Giveaway
	channels     []domain.Channel
	participants map[string][]domain.Participant
	settings     *domain.BotSettings
	seq          int64
	channelSeq   int64
	now          func() time.Time
}

var (
	_ domain.GiveawayRepo    = (*Memory)(nil)
	_ domain.ChannelRepo     = (*Memory)(nil)
	_ domain.ParticipantRepo = (*Memory)(nil)
	_ domain.SettingsRepo    = (*Memory)(nil)
)

// NewMemory создаёт пустое хранилище.
func NewMemory() *Memory {
	return &Memory{
		giveaways:    make(map[string]domain.Giveaway),
		participants: make(map[string][]domain.Participant),
		now:          time.Now,
	}
}

func (m *Memory) CreateGiveaway(_ context.Context, g domain.Giveaway) (domain.Giveaway, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.RunStatus = false
	g.EarlyFinish = false
	g.FinishedAt = nil
	g.CreatedAt = m.now().UTC()
	m.giveaways[g.Token] = g
	return g, nil
}

func (m *Memory) GetGiveaway(_ context.Context, token string) (domain.Giveaway, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.giveaways[token]
	if !ok {
		return domain.Giveaway{}, domain.ErrGiveawayNotFound
	}
	return g, nil
}

func (m *Memory) ListGiveaways(_ context.Context, ownerID int64, all bool) ([]domain.Giveaway, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Giveaway
	for _, g := range m.giveaways {
		if all || g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListExpired(_ context.Context, now time.Time) ([]domain.Giveaway, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Giveaway
	for _, g := range m.giveaways {
		if g.RunStatus && g.Expired(now) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndsAt.Before(out[j].EndsAt) })
	return out, nil
}

func (m *Memory) Activate(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.giveaways[token]
	if !ok || !g.IsDraft() {
		return domain.ErrNotModified
	}
	g.RunStatus = true
	m.giveaways[token] = g
	return nil
}

func (m *Memory) MarkFinished(_ context.Context, token string, early bool, at time.Time) (domain.Giveaway, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.giveaways[token]
	if !ok || !g.RunStatus {
		return domain.Giveaway{}, domain.ErrNotModified
	}
	finished := at.UTC()
	g.RunStatus = false
	g.EarlyFinish = early
	g.FinishedAt = &finished
	m.giveaways[token] = g
	return g, nil
}

func (m *Memory) AddChannel(_ context.Context, ch domain.Channel) (domain.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.channels {
		if existing.GiveawayToken == ch.GiveawayToken && existing.ChannelID == ch.ChannelID {
			existing.Title = ch.Title
			existing.Username = ch.Username
			existing.GroupID = ch.GroupID
			m.channels[i] = existing
			return existing, nil
		}
	}
	m.channelSeq++
	ch.ID = m.channelSeq
	ch.PostID = 0
	m.channels = append(m.channels, ch)
	return ch, nil
}

func (m *Memory) ListChannels(_ context.Context, token string) ([]domain.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Channel
	for _, ch := range m.channels {
		if ch.GiveawayToken == token {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (m *Memory) FindByDiscussionPost(_ context.Context, groupID int64, postID int) (domain.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.channels) - 1; i >= 0; i-- {
		ch := m.channels[i]
		if ch.GroupID == groupID && ch.PostID == postID {
			return ch, nil
		}
	}
	return domain.Channel{}, domain.ErrChannelNotFound
}

func (m *Memory) SetPost(_ context.Context, id int64, groupID int64, postID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ch := range m.channels {
		if ch.ID == id {
			ch.GroupID = groupID
			ch.PostID = postID
			m.channels[i] = ch
			return nil
		}
	}
	return domain.ErrChannelNotFound
}

func (m *Memory) AddParticipant(_ context.Context, p domain.Participant) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.giveaways[p.GiveawayToken]
	if !ok || !g.RunStatus {
		return false, nil
	}
	for _, existing := range m.participants[p.GiveawayToken] {
		if existing.UserID == p.UserID {
			return false, nil
		}
	}
	m.seq++
	p.Seq = m.seq
	p.JoinedAt = m.now().UTC()
	m.participants[p.GiveawayToken] = append(m.participants[p.GiveawayToken], p)
	return true, nil
}

func (m *Memory) IsParticipant(_ context.Context, token string, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.participants[token] {
		if p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) ListParticipants(_ context.Context, token string) ([]domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Participant(nil), m.participants[token]...), nil
}

func (m *Memory) CountParticipants(_ context.Context, token string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.participants[token]), nil
}

func (m *Memory) GetSettings(context.Context) (domain.BotSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		return domain.BotSettings{ParticipationKeyword: domain.DefaultParticipationKeyword}, nil
	}
	return *m.settings, nil
}

func (m *Memory) SetParticipationKeyword(_ context.Context, keyword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = &domain.BotSettings{ParticipationKeyword: keyword, UpdatedAt: m.now().UTC()}
	return nil
}
