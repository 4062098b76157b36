package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"prepify/internal/models"
)

const (
	snapshotKey = "categories:snapshot"

	// DefaultSnapshotTTL bounds how stale the category list can get when a
	// write happens outside this process.
	DefaultSnapshotTTL = 5 * time.Minute
)

// SnapshotCache holds the flat category record list as one JSON value.
// Errors are logged and reported as misses; the database stays the
// source of truth.
type SnapshotCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewSnapshotCache creates a snapshot cache with the given TTL, or
// DefaultSnapshotTTL when ttl is zero.
func NewSnapshotCache(client redis.Cmdable, ttl time.Duration) *SnapshotCache {
	if ttl == 0 {
		ttl = DefaultSnapshotTTL
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

// Get returns the cached records.
func (c *SnapshotCache) Get(ctx context.Context) ([]models.Category, bool) {
	raw, err := c.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("category snapshot get error", "error", err)
		return nil, false
	}

	var records []models.Category
	if err := json.Unmarshal(raw, &records); err != nil {
		slog.Warn("category snapshot decode error", "error", err)
		return nil, false
	}
	return records, true
}

// Set stores records with the configured TTL.
func (c *SnapshotCache) Set(ctx context.Context, records []models.Category) {
	raw, err := json.Marshal(records)
	if err != nil {
		slog.Warn("category snapshot encode error", "error", err)
		return
	}
	if err := c.client.Set(ctx, snapshotKey, raw, c.ttl).Err(); err != nil {
		slog.Warn("category snapshot set error", "error", err)
	}
}

// Invalidate drops the cached snapshot.
func (c *SnapshotCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, snapshotKey).Err(); err != nil {
		slog.Warn("category snapshot invalidate error", "error", err)
	}
}
