package scraper

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"pricewatch/store"
)

const cacheKeyPrefix = "price:html:"

// cachedResponse is the stored cache value. stored_at lets us enforce the
// TTL even on backends whose expiry granularity we do not control.
type cachedResponse struct {
	HTML     string    `json:"html"`
	StoredAt time.Time `json:"stored_at"`
}

// ResponseCache stores fetched HTML keyed by URL hash. Cache failures are
// never fatal; callers always fall through to a live fetch.
type ResponseCache struct {
	kv  store.KVStore
	ttl time.Duration
	now func() time.Time
}

// NewResponseCache creates a cache with the given TTL
func NewResponseCache(kv store.KVStore, ttl time.Duration) *ResponseCache {
	return &ResponseCache{kv: kv, ttl: ttl, now: time.Now}
}

func cacheKey(url string) string {
	sum := md5.Sum([]byte(url))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached HTML for a URL if present and fresh
func (c *ResponseCache) Get(ctx context.Context, url string) (string, bool) {
	raw, ok, err := c.kv.Get(ctx, cacheKey(url))
	if err != nil {
		log.Printf("⚠️  Cache read failed for %s: %v", url, err)
		return "", false
	}
	if !ok {
		return "", false
	}

	var cached cachedResponse
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		log.Printf("⚠️  Cache entry corrupt for %s: %v", url, err)
		return "", false
	}

	if c.now().Sub(cached.StoredAt) > c.ttl {
		return "", false
	}

	return cached.HTML, true
}

// Put stores fetched HTML. Write failures are logged and swallowed so they
// never abort a successful fetch.
func (c *ResponseCache) Put(ctx context.Context, url, html string) {
	raw, err := json.Marshal(cachedResponse{HTML: html, StoredAt: c.now()})
	if err != nil {
		log.Printf("⚠️  Cache encode failed for %s: %v", url, err)
		return
	}

	if err := c.kv.Set(ctx, cacheKey(url), string(raw), c.ttl); err != nil {
		log.Printf("⚠️  Cache write failed for %s: %v", url, err)
	}
}
