package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// seenTTL bounds how long processed message SIDs are remembered. The
// gateway retries within minutes; a day is comfortably past that.
const seenTTL = 24 * time.Hour

// Idempotency detects already-processed message identifiers using a
// store-level uniqueness primitive (SET NX), safe across replicas. All
// methods fail open: a redis outage must not drop messages.
type Idempotency interface {
	// HasSeen reports whether the message ID was already processed.
	HasSeen(ctx context.Context, messageID string) (bool, error)
	// MarkSeen records the message ID as processed.
	MarkSeen(ctx context.Context, messageID string) error
}

type redisIdempotency struct {
	client *redis.Client
}

func NewIdempotency(client *redis.Client) Idempotency {
	return &redisIdempotency{client: client}
}

func seenKey(messageID string) string {
	return "seen_msg:" + messageID
}

func (r *redisIdempotency) HasSeen(ctx context.Context, messageID string) (bool, error) {
	n, err := r.client.Exists(ctx, seenKey(messageID)).Result()
	if err != nil {
		return false, fmt.Errorf("checking seen message: %w", err)
	}
	return n > 0, nil
}

func (r *redisIdempotency) MarkSeen(ctx context.Context, messageID string) error {
	if err := r.client.SetNX(ctx, seenKey(messageID), 1, seenTTL).Err(); err != nil {
		return fmt.Errorf("marking message seen: %w", err)
	}
	return nil
}
