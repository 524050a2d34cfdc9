package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocker_FallsBackToMemory(t *testing.T) {
	l := NewLocker(nil)
	_, ok := l.(*MemoryLocker)
	assert.True(t, ok)
}

func TestMemoryLocker(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	ok, err := l.TryLock(ctx, "post:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.TryLock(ctx, "post:1", time.Minute)
	assert.False(t, ok, "held lock must not be granted twice")

	ok, _ = l.TryLock(ctx, "post:2", time.Minute)
	assert.True(t, ok)

	require.NoError(t, l.Unlock(ctx, "post:1"))
	ok, _ = l.TryLock(ctx, "post:1", time.Minute)
	assert.True(t, ok)
}

func TestMemoryLocker_Expires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLocker()
	l.clock = func() time.Time { return now }

	ok, _ := l.TryLock(ctx, "k", time.Second)
	require.True(t, ok)
	now = now.Add(2 * time.Second)
	ok, _ = l.TryLock(ctx, "k", time.Second)
	assert.True(t, ok)
}

func TestNewCache_EmptyAddress(t *testing.T) {
	_, err := NewCache(context.Background(), "", "", "")
	assert.Error(t, err)
	_, err = NewCache(context.Background(), ":6379", "", "")
	assert.Error(t, err)
}
