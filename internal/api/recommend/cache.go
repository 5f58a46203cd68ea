package recommend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/kopisiew/go-makan-suggestions/app/observability/metrics"
	"github.com/kopisiew/go-makan-suggestions/internal/types"
)

// ResponseCache keeps full responses warm for a short window and collapses
// concurrent identical requests onto one computation. Values are treated as
// immutable once stored; a recomputation overwrites, never patches.
type ResponseCache struct {
	store   *cache.Cache
	flight  singleflight.Group
	metrics *metrics.AppMetrics
}

func NewResponseCache(ttl time.Duration, appMetrics *metrics.AppMetrics) *ResponseCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ResponseCache{
		store:   cache.New(ttl, 2*ttl),
		metrics: appMetrics,
	}
}

// CacheKey hashes the scope and the normalized query. The NUL separator keeps
// (scope "a", query "b c") distinct from (scope "a b", query "c").
func CacheKey(scopeID, query string) string {
	h := sha256.New()
	h.Write([]byte(scopeID))
	h.Write([]byte{0})
	h.Write([]byte(NormalizeQuery(query)))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeQuery lower-cases and collapses whitespace so trivially restated
// queries share a cache entry.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

func (c *ResponseCache) Get(ctx context.Context, key string) (*types.RecommendationResponse, bool) {
	cached, found := c.store.Get(key)
	if found {
		if resp, ok := cached.(*types.RecommendationResponse); ok {
			if c.metrics != nil {
				c.metrics.CacheHitsTotal.Add(ctx, 1)
			}
			return resp, true
		}
	}
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Add(ctx, 1)
	}
	return nil, false
}

func (c *ResponseCache) Set(key string, resp *types.RecommendationResponse) {
	c.store.Set(key, resp, cache.DefaultExpiration)
}

// Compute runs fn once per key at a time; concurrent callers with the same
// key wait for the first result instead of issuing duplicate upstream calls.
func (c *ResponseCache) Compute(key string, fn func() (*types.RecommendationResponse, error)) (*types.RecommendationResponse, bool, error) {
	v, err, shared := c.flight.Do(key, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, shared, err
	}
	return v.(*types.RecommendationResponse), shared, nil
}
