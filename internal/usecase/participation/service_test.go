package participation

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-giveaway-bot/internal/adapters/repo"
	"tg-giveaway-bot/internal/domain"
	"tg-giveaway-bot/internal/usecase/eligibility"
	"tg-giveaway-bot/internal/usecase/settings"
)

const (
	channelID = int64(-1001)
	groupID   = int64(-2001)
	postID    = 77
)

type stubMembers map[int64]string

func (s stubMembers) MemberStatus(_ context.Context, _ int64, userID int64) (string, error) {
	if status, ok := s[userID]; ok {
		return status, nil
	}
	return "left", nil
}

func setup(t *testing.T, kind domain.GiveawayType, members stubMembers) (*Service, *repo.Memory) {
	t.Helper()
	ctx := context.Background()
	store := repo.NewMemory()
	_, err := store.CreateGiveaway(ctx, domain.Giveaway{Token: "tok", Name: "Приз", Type: kind, OwnerID: 1, WinnersCount: 1, EndsAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	ch, err := store.AddChannel(ctx, domain.Channel{ChannelID: channelID, Title: "Канал", GiveawayToken: "tok", GroupID: groupID})
	require.NoError(t, err)
	require.NoError(t, store.SetPost(ctx, ch.ID, groupID, postID))
	require.NoError(t, store.Activate(ctx, "tok"))

	checker := eligibility.NewChecker(members, zerolog.Nop())
	return NewService(store, store, store, settings.NewService(store, ""), checker, zerolog.Nop()), store
}

func comment(userID int64, text string) CommentInput {
	return CommentInput{GroupID: groupID, PostID: postID, Text: text, User: domain.TelegramUser{ID: userID, Username: "user"}}
}

func TestJoinByCommentFlow(t *testing.T) {
	ctx := context.Background()
	svc, store := setup(t, domain.GiveawayTypeComments, stubMembers{10: "member", 11: "left"})

	res, err := svc.JoinByComment(ctx, comment(10, "Привет! Участвую!"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeJoined, res.Outcome)

	res, err = svc.JoinByComment(ctx, comment(10, "участвую"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyJoined, res.Outcome)

	res, err = svc.JoinByComment(ctx, comment(11, "Участвую"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotSubscribed, res.Outcome)
	assert.Equal(t, channelID, res.Failed.ChannelID)

	count, err := store.CountParticipants(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestJoinByCommentIgnoresNoise(t *testing.T) {
	ctx := context.Background()
	svc, store := setup(t, domain.GiveawayTypeComments, stubMembers{10: "member"})

	res, err := svc.JoinByComment(ctx, comment(10, "просто комментарий"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoKeyword, res.Outcome)

	wrong := comment(10, "Участвую")
	wrong.PostID = 0
	res, err = svc.JoinByComment(ctx, wrong)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWrongThread, res.Outcome)

	wrong.PostID = postID + 1
	res, err = svc.JoinByComment(ctx, wrong)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWrongThread, res.Outcome)

	count, err := store.CountParticipants(ctx, "tok")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestJoinByCommentUsesConfiguredKeyword(t *testing.T) {
	ctx := context.Background()
	svc, store := setup(t, domain.GiveawayTypeComments, stubMembers{10: "member"})
	require.NoError(t, store.SetParticipationKeyword(ctx, "Хочу"))

	res, err := svc.JoinByComment(ctx, comment(10, "Участвую"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoKeyword, res.Outcome)

	res, err = svc.JoinByComment(ctx, comment(10, "хочу приз"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeJoined, res.Outcome)
}

func TestJoinAfterFinishIsInactive(t *testing.T) {
	ctx := context.Background()
	svc, store := setup(t, domain.GiveawayTypeButton, stubMembers{10: "member"})
	_, err := store.MarkFinished(ctx, "tok", false, time.Now())
	require.NoError(t, err)

	res, err := svc.JoinByButton(ctx, "tok", domain.TelegramUser{ID: 10})
	require.NoError(t, err)
	assert.Equal(t, OutcomeInactive, res.Outcome)
}

func TestJoinByButton(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t, domain.GiveawayTypeButton, stubMembers{10: "creator"})

	res, err := svc.JoinByButton(ctx, "tok", domain.TelegramUser{ID: 10})
	require.NoError(t, err)
	assert.Equal(t, OutcomeJoined, res.Outcome)

	res, err = svc.JoinByButton(ctx, "tok", domain.TelegramUser{ID: 10})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyJoined, res.Outcome)

	res, err = svc.JoinByButton(ctx, "missing", domain.TelegramUser{ID: 10})
	require.NoError(t, err)
	assert.Equal(t, OutcomeInactive, res.Outcome)
}

func TestWrongTypeIsInactive(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t, domain.GiveawayTypeComments, stubMembers{10: "member"})

	res, err := svc.JoinByButton(ctx, "tok", domain.TelegramUser{ID: 10})
	require.NoError(t, err)
	assert.Equal(t, OutcomeInactive, res.Outcome)
}

func TestCommentAfterFinish(t *testing.T) {
	ctx := context.Background()
	svc, store := setup(t, domain.GiveawayTypeComments, stubMembers{10: "member"})
	_, err := store.MarkFinished(ctx, "tok", false, time.Now())
	require.NoError(t, err)

	res, err := svc.JoinByComment(ctx, comment(10, "спасибо, классный канал"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoKeyword, res.Outcome)
	assert.Empty(t, res.Giveaway.Token)

	res, err = svc.JoinByComment(ctx, comment(10, "Участвую"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeInactive, res.Outcome)
	assert.Equal(t, "tok", res.Giveaway.Token)
}
