package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Clock supplies the current time; injected so cache expiry is testable.
type Clock func() time.Time

// QuoteCache caches derived portfolio views (summaries, positions, latest
// quotes) in Redis. Entries carry their write time and are considered
// stale once the TTL elapses against the injected clock; ledger mutations
// must call InvalidatePortfolio explicitly so a cached view can never
// outlive the ledger state it was derived from.
type QuoteCache struct {
	redis *RedisCache
	ttl   time.Duration
	now   Clock
}

// NewQuoteCache creates a new quote cache. A nil clock defaults to
// time.Now.
func NewQuoteCache(redis *RedisCache, ttl time.Duration, now Clock) *QuoteCache {
	if now == nil {
		now = time.Now
	}
	return &QuoteCache{redis: redis, ttl: ttl, now: now}
}

type cacheEnvelope struct {
	CachedAt time.Time       `json:"cachedAt"`
	Payload  json.RawMessage `json:"payload"`
}

// SummaryKey is the cache key for a portfolio's summary view.
func SummaryKey(portfolioID string) string {
	return cacheKey("summary", portfolioID)
}

// PositionsKey is the cache key for a portfolio's valuated positions.
func PositionsKey(portfolioID string) string {
	return cacheKey("positions", portfolioID)
}

// QuoteKey is the cache key for an asset's latest quote.
func QuoteKey(assetKey string) string {
	return cacheKey("quote", assetKey)
}

func cacheKey(keyType string, params ...string) string {
	parts := append([]string{keyType}, params...)
	for i := range parts {
		parts[i] = strings.ToLower(parts[i])
	}
	return strings.Join(parts, ":")
}

// Set stores a value under key with the configured TTL.
func (c *QuoteCache) Set(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	envelope, err := json.Marshal(cacheEnvelope{
		CachedAt: c.now().UTC(),
		Payload:  payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache envelope: %w", err)
	}
	return c.redis.Set(ctx, key, envelope, c.ttl)
}

// Get retrieves a cached value into dest. The second return is false on
// a miss or a stale entry; staleness is judged against the injected
// clock, not only Redis expiry.
func (c *QuoteCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("cache get error: %w", err)
	}

	var envelope cacheEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		// Corrupt entries behave like misses; the caller recomputes.
		return false, nil
	}
	if c.now().Sub(envelope.CachedAt) > c.ttl {
		return false, nil
	}

	if err := json.Unmarshal(envelope.Payload, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return true, nil
}

// InvalidatePortfolio drops every cached view derived from a portfolio's
// ledger. Called on each ledger mutation.
func (c *QuoteCache) InvalidatePortfolio(ctx context.Context, portfolioID string) error {
	return c.redis.Del(ctx, SummaryKey(portfolioID), PositionsKey(portfolioID))
}

// InvalidateAsset drops the cached latest quote for an asset, used after
// fresh snapshots arrive.
func (c *QuoteCache) InvalidateAsset(ctx context.Context, assetKey string) error {
	return c.redis.Del(ctx, QuoteKey(assetKey))
}
