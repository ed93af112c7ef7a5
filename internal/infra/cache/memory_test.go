package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryOnceRunsOnlyFirstTime(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	calls := 0
	fn := func() error { calls++; return nil }

	require.NoError(t, m.Once(ctx, "update:1", time.Minute, fn))
	require.NoError(t, m.Once(ctx, "update:1", time.Minute, fn))
	require.Equal(t, 1, calls)
}

func TestMemoryOnceReleasesKeyOnError(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	err := m.Once(ctx, "k", time.Minute, func() error { return boom })
	require.ErrorIs(t, err, boom)

	calls := 0
	require.NoError(t, m.Once(ctx, "k", time.Minute, func() error { calls++; return nil }))
	require.Equal(t, 1, calls)
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "state", []byte("x"), time.Minute))
	got, err := m.Get(ctx, "state")
	require.NoError(t, err)
	require.Equal(t, []byte("x"), got)

	now = now.Add(2 * time.Minute)
	_, err = m.Get(ctx, "state")
	require.ErrorIs(t, err, ErrMiss)
}

func TestMemorySweepsExpiredKeys(t *testing.T) {
	m := NewMemory()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()
	noop := func() error { return nil }

	for i := 0; i < 10000; i++ {
		require.NoError(t, m.Once(ctx, "upd:"+strconv.Itoa(i), 10*time.Minute, noop))
	}
	require.NoError(t, m.Set(ctx, "forever", []byte("x"), 0))

	now = now.Add(24 * time.Hour)
	require.NoError(t, m.Once(ctx, "upd:10000", 10*time.Minute, noop))
	require.Len(t, m.items, 2)
}
