package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a running Redis: REDIS_URL=redis://localhost:6379/15 go test ./utils/cache/
func newTestCache(t *testing.T) *RedisCache {
	t.Helper()

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set")
	}
	c, err := NewRedisCache(redisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestJSONRoundTripAndMiss(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	key := "test:hierarchy:village:Agailjhara"
	require.NoError(t, c.SetJSON(ctx, key, []string{"Gaila", "Rajihar"}, time.Minute))
	t.Cleanup(func() { _ = c.Delete(ctx, key) })

	var names []string
	require.NoError(t, c.GetJSON(ctx, key, &names))
	assert.Equal(t, []string{"Gaila", "Rajihar"}, names)

	_, err := c.Get(ctx, "test:missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, c.GetJSON(ctx, "test:missing", &names), ErrNotFound)
}

func TestDeletePattern(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	for _, key := range []string{"test:dp:a", "test:dp:b", "test:other"} {
		require.NoError(t, c.SetJSON(ctx, key, 1, time.Minute))
	}
	t.Cleanup(func() { _ = c.Delete(ctx, "test:other") })

	deleted, err := c.DeletePattern(ctx, "test:dp:*")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = c.Get(ctx, "test:other")
	assert.NoError(t, err)
}
