package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter() (*MemoryLimiter, *time.Time) {
	current := time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(Config{
		Window:   15 * time.Minute,
		MaxFails: 5,
		BlockTTL: 30 * time.Minute,
	})
	l.now = func() time.Time { return current }
	return l, &current
}

func TestMemoryLimiter_BlocksAfterMaxFails(t *testing.T) {
	l, _ := newTestLimiter()
	ctx := context.Background()
	key := "1.2.3.4:admin"

	for i := 0; i < 4; i++ {
		require.NoError(t, l.RecordFailure(ctx, key))
		blocked, _, err := l.Check(ctx, key)
		require.NoError(t, err)
		assert.False(t, blocked, "第 %d 次失败不应触发封禁", i+1)
	}

	require.NoError(t, l.RecordFailure(ctx, key))
	blocked, retryAfter, err := l.Check(ctx, key)
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Equal(t, 30*time.Minute, retryAfter)
}

func TestMemoryLimiter_WindowExpiryResetsCount(t *testing.T) {
	l, current := newTestLimiter()
	ctx := context.Background()
	key := "1.2.3.4:admin"

	for i := 0; i < 4; i++ {
		require.NoError(t, l.RecordFailure(ctx, key))
	}

	// 窗口过期后重新计数
	*current = current.Add(16 * time.Minute)
	require.NoError(t, l.RecordFailure(ctx, key))

	blocked, _, err := l.Check(ctx, key)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestMemoryLimiter_BlockExpires(t *testing.T) {
	l, current := newTestLimiter()
	ctx := context.Background()
	key := "1.2.3.4:admin"

	for i := 0; i < 5; i++ {
		require.NoError(t, l.RecordFailure(ctx, key))
	}
	blocked, _, err := l.Check(ctx, key)
	require.NoError(t, err)
	require.True(t, blocked)

	*current = current.Add(31 * time.Minute)
	blocked, _, err = l.Check(ctx, key)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestMemoryLimiter_ResetClearsState(t *testing.T) {
	l, _ := newTestLimiter()
	ctx := context.Background()
	key := "1.2.3.4:admin"

	for i := 0; i < 5; i++ {
		require.NoError(t, l.RecordFailure(ctx, key))
	}
	require.NoError(t, l.Reset(ctx, key))

	blocked, _, err := l.Check(ctx, key)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestMemoryLimiter_SweepEvictsExpired(t *testing.T) {
	l, current := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < sweepThreshold-1; i++ {
		require.NoError(t, l.RecordFailure(ctx, fmt.Sprintf("ip-%d:user", i)))
	}

	// 所有窗口过期后，下一次写入触发整表清理
	*current = current.Add(time.Hour)
	require.NoError(t, l.RecordFailure(ctx, "fresh:user"))

	l.mu.Lock()
	size := len(l.entries)
	l.mu.Unlock()
	assert.Equal(t, 1, size)
}
