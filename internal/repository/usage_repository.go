package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/devreview-service/internal/domain"
)

// UsageRepository tracks per-user, per-day counts of metered actions.
//
// Increment must be atomic at the store level: two concurrent calls for the
// same (user, action, day) must observe distinct post-increment values.
type UsageRepository interface {
	Increment(ctx context.Context, userID string, action domain.Action, day string) (int64, error)
	Decrement(ctx context.Context, userID string, action domain.Action, day string) error
	Count(ctx context.Context, userID string, action domain.Action, day string) (int64, error)
}

// Counter keys outlive their day bucket by one day so an in-flight release
// across midnight still finds its key.
const usageKeyTTL = 48 * time.Hour

type usageRepository struct {
	client *redis.Client
}

// NewUsageRepository returns a Redis-backed implementation. A single INCR is
// the atomic check-then-increment the entitlement gate relies on.
func NewUsageRepository(client *redis.Client) UsageRepository {
	return &usageRepository{client: client}
}

func usageKey(userID string, action domain.Action, day string) string {
	return fmt.Sprintf("usage:%s:%s:%s", userID, action, day)
}

func (r *usageRepository) Increment(ctx context.Context, userID string, action domain.Action, day string) (int64, error) {
	key := usageKey(userID, action, day)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		// First action of the day creates the bucket lazily.
		r.client.Expire(ctx, key, usageKeyTTL)
	}
	return count, nil
}

func (r *usageRepository) Decrement(ctx context.Context, userID string, action domain.Action, day string) error {
	key := usageKey(userID, action, day)
	count, err := r.client.Decr(ctx, key).Result()
	if err != nil {
		return err
	}
	if count < 0 {
		// A release without a matching reservation must not leave the
		// counter negative.
		return r.client.Set(ctx, key, 0, usageKeyTTL).Err()
	}
	return nil
}

func (r *usageRepository) Count(ctx context.Context, userID string, action domain.Action, day string) (int64, error) {
	count, err := r.client.Get(ctx, usageKey(userID, action, day)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}
