package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultDedupTTL bounds how long a webhook event key is remembered.
const DefaultDedupTTL = 24 * time.Hour

// RedisDeduper remembers engagement event keys so provider redeliveries are
// counted once.
type RedisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisDeduper creates a deduper. A non-positive ttl uses DefaultDedupTTL.
func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

// FirstSeen records key and reports whether this is its first occurrence.
// An empty key is always first. When Redis is unreachable the event is let
// through; double counting is preferred to dropping engagement.
func (d *RedisDeduper) FirstSeen(ctx context.Context, key string) bool {
	if key == "" {
		return true
	}
	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		slog.Warn("dedup_check_failed", "key", key, "error", err)
		return true
	}
	if !ok {
		slog.Info("webhook_event_duplicate", "key", key)
	}
	return ok
}

// Ping checks connectivity.
func (d *RedisDeduper) Ping(ctx context.Context) error {
	return d.rdb.Ping(ctx).Err()
}
