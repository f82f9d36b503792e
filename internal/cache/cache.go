package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"factflow/internal/checker"
	"factflow/internal/logger"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ResultCache caches verification records by claim body so identical claims
// skip the backend round-trip. A nil *ResultCache is a working no-op cache.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewResultCache connects to Redis. An empty URL disables caching (returns nil).
func NewResultCache(redisURL string, ttl time.Duration) (*ResultCache, error) {
	if redisURL == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	return &ResultCache{
		client: redis.NewClient(opt),
		ttl:    ttl,
		logger: logger.Log,
	}, nil
}

// Get returns the cached record for a claim body, if any
func (c *ResultCache) Get(ctx context.Context, claim string) (*checker.Record, bool) {
	if c == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, cacheKey(claim)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Warn("Result cache read failed")
		}
		return nil, false
	}

	var record checker.Record
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		c.logger.WithError(err).Warn("Result cache entry is malformed, ignoring")
		return nil, false
	}

	return &record, true
}

// Set stores a record for a claim body. ERROR verdicts are not cached so a
// transient backend failure does not stick for the TTL.
func (c *ResultCache) Set(ctx context.Context, claim string, record checker.Record) {
	if c == nil || record.Verdict == checker.VerdictError {
		return
	}

	data, err := json.Marshal(record)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, cacheKey(claim), data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Result cache write failed")
	}
}

// Close releases the Redis connection
func (c *ResultCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func cacheKey(claim string) string {
	sum := sha256.Sum256([]byte(claim))
	return "factcheck:" + hex.EncodeToString(sum[:])
}
