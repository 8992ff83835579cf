package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int) (*FixedWindowLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	l, err := NewRedisFixedWindowLimiter(context.Background(), mr.Addr(), "", "test:ratelimit", limit, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, mr
}

func TestFixedWindowLimiter(t *testing.T) {
	l, _ := newTestLimiter(t, 2)
	ctx := context.Background()

	d, err := l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	d, err = l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, err = l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Positive(t, d.RetryAfter)
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)

	d, err = l.Allow(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "keys are counted separately")
}

func TestFixedWindowLimiterResetsNextWindow(t *testing.T) {
	l, _ := newTestLimiter(t, 1)
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 30, 0, time.UTC)
	l.now = func() time.Time { return now }

	d, err := l.Allow(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = l.Allow(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	assert.Equal(t, 30*time.Second, d.RetryAfter)

	now = now.Add(time.Minute)
	d, err = l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestFixedWindowLimiterRedisDown(t *testing.T) {
	l, mr := newTestLimiter(t, 1)
	mr.Close()

	_, err := l.Allow(context.Background(), "user-1")
	require.Error(t, err)
}

func TestFixedWindowLimiterRejectsBadConfig(t *testing.T) {
	_, err := NewRedisFixedWindowLimiter(context.Background(), "", "", "", 1, time.Second)
	require.Error(t, err)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	_, err = NewFixedWindowLimiter(client, "", 0, time.Second)
	require.Error(t, err)
	_, err = NewFixedWindowLimiter(client, "", 1, 0)
	require.Error(t, err)
	_, err = NewFixedWindowLimiter(client, "", 1, 500*time.Microsecond)
	require.Error(t, err)
	_, err = NewFixedWindowLimiter(nil, "", 1, time.Second)
	require.Error(t, err)

	l, err := NewFixedWindowLimiter(client, "", 1, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Limit())
}
