package outreach

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func throttleClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestThrottle_AllowsUpToRate(t *testing.T) {
	throttle := NewThrottle(throttleClient(t), 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := throttle.Allow(ctx)
		require.NoError(t, err)
		assert.True(t, ok, "send %d should be allowed", i+1)
	}

	ok, err := throttle.Allow(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "send over the per-minute budget must be throttled")
}

func TestThrottle_NilClientDisables(t *testing.T) {
	throttle := NewThrottle(nil, 1)

	for i := 0; i < 10; i++ {
		ok, err := throttle.Allow(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
