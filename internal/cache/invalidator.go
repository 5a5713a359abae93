// Package cache holds the Redis-backed view invalidation used to
// refresh cached event pages after the allocation engine commits a
// mutation.
package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Invalidator drops cached event views.  It satisfies
// allocation.Invalidator.  A nil Redis client makes every call a
// no-op, so the engine works unchanged when caching is unavailable.
type Invalidator struct {
	rdb    *redis.Client
	prefix string
}

// NewInvalidator builds an Invalidator with the given key prefix
// (typically "view").
func NewInvalidator(rdb *redis.Client, prefix string) *Invalidator {
	if prefix == "" {
		prefix = "view"
	}
	return &Invalidator{rdb: rdb, prefix: prefix}
}

// InvalidateEvent removes the cached detail view for the event and
// the cached event listing.  Called after commit; failures are
// logged and swallowed since stale views self-heal on expiry.
func (i *Invalidator) InvalidateEvent(ctx context.Context, eventID string) {
	if i == nil || i.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	keys := []string{
		i.prefix + ":event:" + eventID,
		i.prefix + ":events",
	}
	if err := i.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("cache: invalidate event %s failed: %v", eventID, err)
	}
}
