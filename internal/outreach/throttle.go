package outreach

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle caps outbound sends per minute across all worker replicas. The
// counter lives in Redis so horizontally scaled workers share one budget.
type Throttle struct {
	client        *redis.Client
	ratePerMinute int
}

// NewThrottle creates a throttle allowing ratePerMinute sends.
func NewThrottle(client *redis.Client, ratePerMinute int) *Throttle {
	if ratePerMinute <= 0 {
		ratePerMinute = 20
	}
	return &Throttle{
		client:        client,
		ratePerMinute: ratePerMinute,
	}
}

// Allow reports whether one more send fits in the current minute window.
// With no Redis client configured the throttle is disabled.
func (t *Throttle) Allow(ctx context.Context) (bool, error) {
	if t == nil || t.client == nil {
		return true, nil
	}

	key := throttleKey(time.Now().UTC())
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("outreach: throttle incr failed: %w", err)
	}
	if count == 1 {
		// Two minutes so a clock-skewed reader never sees the key vanish early.
		if err := t.client.Expire(ctx, key, 2*time.Minute).Err(); err != nil {
			return false, fmt.Errorf("outreach: throttle expire failed: %w", err)
		}
	}
	return count <= int64(t.ratePerMinute), nil
}

func throttleKey(now time.Time) string {
	return "outreach:rate:" + now.Format("2006-01-02T15:04")
}
