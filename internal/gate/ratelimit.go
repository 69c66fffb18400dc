package gate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of a rate-limit check. RetryAfterMinutes is only
// meaningful when Allowed is false.
type Decision struct {
	Allowed           bool
	RetryAfterMinutes int
}

// RateLimiter caps messages per sender per fixed window. The window state
// lives entirely in redis; the service only reads the decision. Fails open.
type RateLimiter interface {
	Check(ctx context.Context, sender string, maxMessages int, window time.Duration) (Decision, error)
}

// limiterClient is the slice of the redis API the limiter uses; tests fake
// it with the redis.New*Result constructors.
type limiterClient interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	ExpireNX(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

type redisRateLimiter struct {
	client limiterClient
}

func NewRateLimiter(client *redis.Client) RateLimiter {
	return &redisRateLimiter{client: client}
}

func rateKey(sender string) string {
	return "rate:" + sender
}

func (r *redisRateLimiter) Check(ctx context.Context, sender string, maxMessages int, window time.Duration) (Decision, error) {
	key := rateKey(sender)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("incrementing rate counter: %w", err)
	}

	// NX arms the window on the first message of a fresh key and re-arms
	// a counter whose expiry was lost (crash or failed Expire on an
	// earlier check), so a stuck key cannot block a sender forever.
	if err := r.client.ExpireNX(ctx, key, window).Err(); err != nil {
		return Decision{}, fmt.Errorf("setting rate window: %w", err)
	}

	if count <= int64(maxMessages) {
		return Decision{Allowed: true}, nil
	}

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		// The expiry set above has not become visible; the window length
		// is the worst case the sender can be told.
		ttl = window
	}

	return Decision{
		Allowed:           false,
		RetryAfterMinutes: retryAfterMinutes(ttl),
	}, nil
}

func retryAfterMinutes(ttl time.Duration) int {
	minutes := int(math.Ceil(ttl.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
