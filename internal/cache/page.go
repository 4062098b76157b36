// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// page.go provides a Valkey-backed full-page HTML cache for the public
// site. A hit skips the database queries and template execution entirely.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// pageKeyPrefix is the Valkey key prefix for cached pages.
	pageKeyPrefix = "page:"

	// DefaultPageTTL is how long a rendered page stays cached.
	DefaultPageTTL = 5 * time.Minute
)

// PageCache manages full-page HTML caching in Valkey.
type PageCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewPageCache creates a new page cache backed by the given Valkey client.
func NewPageCache(client redis.Cmdable, ttl time.Duration) *PageCache {
	if ttl == 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{client: client, ttl: ttl}
}

// Get retrieves cached HTML for a page key.
func (pc *PageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := pc.client.Get(ctx, pageKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("page cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("page cache hit", "key", key)
	return val, true
}

// Set stores rendered HTML for a page key with the configured TTL.
func (pc *PageCache) Set(ctx context.Context, key string, html []byte) {
	if err := pc.client.Set(ctx, pageKeyPrefix+key, html, pc.ttl).Err(); err != nil {
		slog.Warn("page cache set error", "key", key, "error", err)
	}
}

// Invalidate removes the given pages from the cache.
func (pc *PageCache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = pageKeyPrefix + k
	}
	if err := pc.client.Del(ctx, full...).Err(); err != nil {
		slog.Warn("page cache invalidate error", "keys", keys, "error", err)
		return
	}
	slog.Debug("page cache invalidated", "keys", keys)
}

// InvalidateAll removes all cached pages. Category changes use this since
// breadcrumbs and counts appear on every catalog page.
func (pc *PageCache) InvalidateAll(ctx context.Context) {
	pc.InvalidatePrefix(ctx, "")
}

// InvalidatePrefix removes every cached page whose key starts with prefix.
func (pc *PageCache) InvalidatePrefix(ctx context.Context, prefix string) {
	var cursor uint64
	var deleted int
	for {
		keys, next, err := pc.client.Scan(ctx, cursor, pageKeyPrefix+prefix+"*", 100).Result()
		if err != nil {
			slog.Warn("page cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := pc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("page cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("page cache cleared", "prefix", prefix, "deleted", deleted)
	}
}

// HomeKey returns the cache key for the home page.
func HomeKey() string { return "home" }

// CategoriesKey returns the cache key for the category index.
func CategoriesKey() string { return "categories" }

// CategoryKey returns the cache key for a category page by its slug path.
func CategoryKey(path string) string { return "category:" + path }

// PapersKey returns the cache key for the paper index.
func PapersKey() string { return "papers" }

// PaperKey returns the cache key for one page of a solved paper.
func PaperKey(slug string, page int) string {
	return PaperPrefix(slug) + strconv.Itoa(page)
}

// PaperPrefix matches every cached page of a paper.
func PaperPrefix(slug string) string {
	return "paper:" + slug + ":"
}
