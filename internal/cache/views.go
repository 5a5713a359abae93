package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Views caches rendered event JSON in Redis under the same keys the
// Invalidator drops.  Nil client or nil receiver disables caching.
type Views struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewViews builds the read side of the event view cache.  A zero ttl
// defaults to 30 seconds.
func NewViews(rdb *redis.Client, prefix string, ttl time.Duration) *Views {
	if prefix == "" {
		prefix = "view"
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Views{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (v *Views) enabled() bool { return v != nil && v.rdb != nil }

func (v *Views) eventKey(id string) string { return v.prefix + ":event:" + id }
func (v *Views) listKey() string           { return v.prefix + ":events" }

// GetEvent returns the cached detail body for the event, or "" on
// miss or error.
func (v *Views) GetEvent(ctx context.Context, id string) string {
	if !v.enabled() {
		return ""
	}
	body, err := v.rdb.Get(ctx, v.eventKey(id)).Result()
	if err != nil {
		return ""
	}
	return body
}

// SetEvent stores the rendered detail body.  Errors are ignored; a
// failed write only costs the next request a DB round trip.
func (v *Views) SetEvent(ctx context.Context, id, body string) {
	if !v.enabled() {
		return
	}
	v.rdb.Set(ctx, v.eventKey(id), body, v.ttl)
}

// GetList returns the cached published-events listing, or "".
func (v *Views) GetList(ctx context.Context) string {
	if !v.enabled() {
		return ""
	}
	body, err := v.rdb.Get(ctx, v.listKey()).Result()
	if err != nil {
		return ""
	}
	return body
}

// SetList stores the rendered listing body.
func (v *Views) SetList(ctx context.Context, body string) {
	if !v.enabled() {
		return
	}
	v.rdb.Set(ctx, v.listKey(), body, v.ttl)
}
