package evaluation

import (
	"context"
	"time"

	"github.com/algorithm-ninja/task-wizard/internal/common/cache"
)

const (
	statusCacheKeyPrefix = "contest:evaluation:status:"
	statusCacheTTL       = 5 * time.Minute
	statusCacheEmptyTTL  = 30 * time.Second
)

// StatusCache is a read-through cache for evaluation statuses. The database
// stays the source of truth; entries are invalidated on every transition.
type StatusCache struct {
	cache cache.Cache
}

func NewStatusCache(cacheClient cache.Cache) *StatusCache {
	return &StatusCache{cache: cacheClient}
}

// Get returns the status for evaluationID, loading through fetch on a miss.
func (c *StatusCache) Get(ctx context.Context, evaluationID string, fetch func(context.Context) (Status, error)) (Status, error) {
	if c == nil || c.cache == nil {
		return fetch(ctx)
	}
	status, err := cache.GetWithCached(ctx, c.cache,
		statusCacheKeyPrefix+evaluationID,
		statusCacheTTL, statusCacheEmptyTTL,
		func(s Status) bool { return s == "" },
		func(s Status) string { return string(s) },
		func(raw string) (Status, error) { return Status(raw), nil },
		fetch,
	)
	if err != nil {
		return "", err
	}
	if status == "" {
		return fetch(ctx)
	}
	return status, nil
}

// Update runs a status transition and drops the cached entry afterwards,
// so the next read sees the new state.
func (c *StatusCache) Update(ctx context.Context, evaluationID string, fn func(context.Context) error) error {
	if c == nil || c.cache == nil {
		return fn(ctx)
	}
	return cache.UpdateCached(ctx, c.cache, statusCacheKeyPrefix+evaluationID, fn)
}
