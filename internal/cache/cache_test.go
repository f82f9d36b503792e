package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"factflow/internal/checker"

	"github.com/stretchr/testify/assert"
)

func TestNewResultCache_DisabledWhenURLEmpty(t *testing.T) {
	cache, err := NewResultCache("", time.Hour)

	assert.NoError(t, err)
	assert.Nil(t, cache)
}

func TestNewResultCache_InvalidURL(t *testing.T) {
	cache, err := NewResultCache("not-a-redis-url", time.Hour)

	assert.Error(t, err)
	assert.Nil(t, cache)
}

func TestResultCache_NilIsNoOp(t *testing.T) {
	var cache *ResultCache

	record, ok := cache.Get(context.Background(), "any claim")
	assert.Nil(t, record)
	assert.False(t, ok)

	// Must not panic
	cache.Set(context.Background(), "any claim", checker.Record{Verdict: checker.VerdictTrue})
	assert.NoError(t, cache.Close())
}

func TestCacheKey(t *testing.T) {
	key := cacheKey("The moon landing happened in 1969")

	assert.True(t, strings.HasPrefix(key, "factcheck:"))
	assert.Equal(t, key, cacheKey("The moon landing happened in 1969"))
	assert.NotEqual(t, key, cacheKey("a different claim"))
}
