package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/inkwell/inkwell/internal/model"
)

// planCachePrefix is the Redis key prefix for cached plan state.
const planCachePrefix = "plan:user:"

// GetPlanState retrieves a user's cached plan state.
// Returns nil on a cache miss.
func (c *Cache) GetPlanState(ctx context.Context, userID string) (*model.PlanState, error) {
	key := planCachePrefix + userID

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var state model.PlanState
	if err := json.Unmarshal(data, &state); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &state, nil
}

// SetPlanState caches a user's plan state for ttl.
// The TTL bounds how stale a quota decision can be when the provider's
// metadata changes out of band.
func (c *Cache) SetPlanState(ctx context.Context, userID string, state *model.PlanState, ttl time.Duration) error {
	key := planCachePrefix + userID

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal plan state: %w", err)
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// DeletePlanState evicts a user's cached plan state.
// Called after every free-usage increment and on identity webhook events so
// the next request observes the advanced counter.
func (c *Cache) DeletePlanState(ctx context.Context, userID string) error {
	key := planCachePrefix + userID
	return c.client.Del(ctx, key).Err()
}
