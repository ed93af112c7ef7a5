package giveaways

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-giveaway-bot/internal/adapters/repo"
	"tg-giveaway-bot/internal/domain"
	"tg-giveaway-bot/internal/usecase/settings"
)

type stubChats struct {
	chats     map[string]domain.ChatInfo
	botStatus string
}

func (s *stubChats) ResolveChat(_ context.Context, ref string) (domain.ChatInfo, error) {
	info, ok := s.chats[ref]
	if !ok {
		return domain.ChatInfo{}, errors.New("Bad Request: chat not found")
	}
	return info, nil
}

func (s *stubChats) BotStatus(context.Context, int64) (string, error) {
	return s.botStatus, nil
}

type published struct {
	chatID    int64
	text      string
	joinToken string
}

type stubPublisher struct {
	posts  []published
	nextID int
}

func (p *stubPublisher) PublishGiveaway(_ context.Context, chatID int64, text, joinToken string) (int, error) {
	p.nextID++
	p.posts = append(p.posts, published{chatID: chatID, text: text, joinToken: joinToken})
	return p.nextID, nil
}

func (p *stubPublisher) SendHTML(context.Context, int64, string) error { return nil }

const (
	ownerID = int64(100)
	adminID = int64(500)
)

func newTestService(chats *stubChats, pub *stubPublisher) (*Service, *repo.Memory) {
	store := repo.NewMemory()
	isAdmin := func(id int64) bool { return id == adminID }
	return NewService(store, store, store, settings.NewService(store, ""), chats, pub, isAdmin, zerolog.Nop(), time.UTC), store
}

func validParams() CreateParams {
	return CreateParams{
		Name:         "iPhone 17",
		Type:         domain.GiveawayTypeComments,
		OwnerID:      ownerID,
		WinnersCount: 3,
		EndsAt:       time.Now().Add(24 * time.Hour),
	}
}

func TestValidate(t *testing.T) {
	now := time.Now()
	cases := map[string]struct {
		mutate func(*CreateParams)
		want   error
	}{
		"ok":             {func(*CreateParams) {}, nil},
		"empty name":     {func(p *CreateParams) { p.Name = "  " }, ErrNameInvalid},
		"long name":      {func(p *CreateParams) { p.Name = strings.Repeat("я", MaxNameLength+1) }, ErrNameInvalid},
		"max name":       {func(p *CreateParams) { p.Name = strings.Repeat("я", MaxNameLength) }, nil},
		"bad type":       {func(p *CreateParams) { p.Type = "lottery" }, ErrTypeInvalid},
		"zero winners":   {func(p *CreateParams) { p.WinnersCount = 0 }, ErrWinnersInvalid},
		"many winners":   {func(p *CreateParams) { p.WinnersCount = MaxWinners + 1 }, ErrWinnersInvalid},
		"ends in past":   {func(p *CreateParams) { p.EndsAt = now.Add(-time.Minute) }, ErrEndsAtInPast},
		"ends right now": {func(p *CreateParams) { p.EndsAt = now }, ErrEndsAtInPast},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p := validParams()
			tc.mutate(&p)
			err := Validate(p, now)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParseChannelRef(t *testing.T) {
	cases := map[string]string{
		"@Example":            "example",
		"https://t.me/Golang": "golang",
		"t.me/golang_news":    "golang_news",
		"-1001234567890":      "-1001234567890",
		"@abc":                "",
		"https://t.me/A":      "",
		"42":                  "",
		"":                    "",
	}
	for input, expected := range cases {
		ref, err := ParseChannelRef(input)
		if expected == "" {
			assert.ErrorIs(t, err, ErrChannelRefInvalid, input)
			continue
		}
		require.NoError(t, err, input)
		assert.Equal(t, expected, ref)
	}
}

func TestNewTokenIsOpaque(t *testing.T) {
	a, b := NewToken(), NewToken()
	assert.Len(t, a, 32)
	assert.NotContains(t, a, "-")
	assert.NotEqual(t, a, b)
}

func TestCreateAttachPublish(t *testing.T) {
	ctx := context.Background()
	chats := &stubChats{
		botStatus: "administrator",
		chats: map[string]domain.ChatInfo{
			"news": {ID: -1001, Title: "Новости", Username: "news", Type: "channel", LinkedChatID: -2001},
		},
	}
	pub := &stubPublisher{}
	svc, store := newTestService(chats, pub)

	g, err := svc.Create(ctx, validParams())
	require.NoError(t, err)
	assert.True(t, g.IsDraft())

	_, _, err = svc.Publish(ctx, g.Token, ownerID)
	assert.ErrorIs(t, err, ErrNoChannels)

	_, err = svc.AttachChannel(ctx, g.Token, 999, "@news")
	assert.ErrorIs(t, err, ErrForbidden)

	ch, err := svc.AttachChannel(ctx, g.Token, ownerID, "https://t.me/news")
	require.NoError(t, err)
	assert.Equal(t, int64(-2001), ch.GroupID)

	g, n, err := svc.Publish(ctx, g.Token, ownerID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, g.RunStatus)
	require.Len(t, pub.posts, 1)
	assert.Empty(t, pub.posts[0].joinToken)
	assert.Contains(t, pub.posts[0].text, "<b>Участвую</b>")

	found, err := store.FindByDiscussionPost(ctx, -2001, 1)
	require.NoError(t, err)
	assert.Equal(t, g.Token, found.GiveawayToken)

	_, _, err = svc.Publish(ctx, g.Token, ownerID)
	assert.ErrorIs(t, err, ErrNotDraft)
}

func TestPublishButtonGiveawayAddsJoinToken(t *testing.T) {
	ctx := context.Background()
	chats := &stubChats{botStatus: "creator", chats: map[string]domain.ChatInfo{
		"promo_channel": {ID: -1005, Title: "Промо", Type: "channel"},
	}}
	pub := &stubPublisher{}
	svc, _ := newTestService(chats, pub)

	p := validParams()
	p.Type = domain.GiveawayTypeButton
	g, err := svc.Create(ctx, p)
	require.NoError(t, err)
	_, err = svc.AttachChannel(ctx, g.Token, adminID, "@promo_channel")
	require.NoError(t, err)

	_, _, err = svc.Publish(ctx, g.Token, adminID)
	require.NoError(t, err)
	require.Len(t, pub.posts, 1)
	assert.Equal(t, g.Token, pub.posts[0].joinToken)
}

type failingPosts struct {
	*repo.Memory
}

func (failingPosts) SetPost(context.Context, int64, int64, int) error {
	return errors.New("conn reset")
}

func TestPublishStartsGiveawayWhenPostIDNotSaved(t *testing.T) {
	ctx := context.Background()
	chats := &stubChats{botStatus: "administrator", chats: map[string]domain.ChatInfo{
		"promo_channel": {ID: -1005, Title: "Промо", Type: "channel"},
	}}
	pub := &stubPublisher{}
	store := repo.NewMemory()
	isAdmin := func(id int64) bool { return id == adminID }
	svc := NewService(store, failingPosts{store}, store, settings.NewService(store, ""), chats, pub, isAdmin, zerolog.Nop(), time.UTC)

	p := validParams()
	p.Type = domain.GiveawayTypeButton
	g, err := svc.Create(ctx, p)
	require.NoError(t, err)
	_, err = svc.AttachChannel(ctx, g.Token, ownerID, "@promo_channel")
	require.NoError(t, err)

	_, n, err := svc.Publish(ctx, g.Token, ownerID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, pub.posts, 1)

	stored, err := store.GetGiveaway(ctx, g.Token)
	require.NoError(t, err)
	assert.True(t, stored.RunStatus)
}

func TestAttachChannelChecks(t *testing.T) {
	ctx := context.Background()
	chats := &stubChats{botStatus: "member", chats: map[string]domain.ChatInfo{
		"nolinked":  {ID: -1, Type: "channel"},
		"somegroup": {ID: -2, Type: "supergroup"},
	}}
	svc, _ := newTestService(chats, &stubPublisher{})
	g, err := svc.Create(ctx, validParams())
	require.NoError(t, err)

	_, err = svc.AttachChannel(ctx, g.Token, ownerID, "@somegroup")
	assert.ErrorIs(t, err, ErrNotChannel)

	_, err = svc.AttachChannel(ctx, g.Token, ownerID, "@nolinked")
	assert.ErrorIs(t, err, ErrBotNotAdmin)

	chats.botStatus = "administrator"
	_, err = svc.AttachChannel(ctx, g.Token, ownerID, "@nolinked")
	assert.ErrorIs(t, err, ErrNoDiscussion)

	_, err = svc.AttachChannel(ctx, g.Token, ownerID, "bad ref!")
	assert.ErrorIs(t, err, ErrChannelRefInvalid)
}

func TestListAndStats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(&stubChats{}, &stubPublisher{})
	_, err := svc.Create(ctx, validParams())
	require.NoError(t, err)
	other := validParams()
	other.OwnerID = 7
	g2, err := svc.Create(ctx, other)
	require.NoError(t, err)

	mine, err := svc.List(ctx, ownerID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := svc.List(ctx, adminID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.Stats(ctx, g2.Token, ownerID)
	assert.ErrorIs(t, err, ErrForbidden)

	st, err := svc.Stats(ctx, g2.Token, 7)
	require.NoError(t, err)
	assert.Zero(t, st.Participants)
	assert.Contains(t, FormatStats(st, time.UTC), "0 участников")
}
