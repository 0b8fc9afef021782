// Package cache holds the Redis-backed summary cache. The summary is cheap
// to recompute, so the cache is strictly best effort: a Redis outage must
// never fail a read.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"globaldata/internal/country/models"
	"globaldata/internal/platform/redis"
	"globaldata/pkg/platform/sentinel"
)

const summaryKey = "globaldata:summary"

// SummaryCache stores the refresh summary in Redis with a TTL.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaryCache wraps the platform Redis client. A nil client yields a nil
// cache, which the service treats as cache-disabled.
func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	if client == nil {
		return nil
	}
	return &SummaryCache{client: client, ttl: ttl}
}

// Get returns the cached summary or sentinel.ErrNotFound on a miss.
func (c *SummaryCache) Get(ctx context.Context) (*models.Summary, error) {
	raw, err := c.client.Get(ctx, summaryKey).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get summary cache: %w", err)
	}

	var summary models.Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("decode summary cache: %w", err)
	}
	return &summary, nil
}

// Set stores the summary with the configured TTL.
func (c *SummaryCache) Set(ctx context.Context, summary *models.Summary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary cache: %w", err)
	}
	if err := c.client.Set(ctx, summaryKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set summary cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached summary. Refresh runs call this so the next
// summary read reflects the new data immediately.
func (c *SummaryCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.client.Del(ctx, summaryKey).Err(); err != nil {
		return fmt.Errorf("invalidate summary cache: %w", err)
	}
	return nil
}
