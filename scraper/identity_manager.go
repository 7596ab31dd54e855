package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"time"

	"pricewatch/config"
	"pricewatch/store"
)

// ErrAllIdentitiesBurned means every identity is cooling down; the caller
// must skip the URL rather than fall back to the plain fetcher
var ErrAllIdentitiesBurned = errors.New("all identities are burned")

const identityKeyPrefix = "amazon:identity:"

// IdentityManager runs the rotation/burn state machine over the identity
// pool. All mutable state lives in the key-value store keyed by identity id,
// so concurrent engine instances see the same counters.
type IdentityManager struct {
	kv   store.KVStore
	pool []Identity

	minRotate    int
	maxRotate    int
	burnDuration time.Duration
	counterTTL   time.Duration

	// injected for tests
	now      func() time.Time
	randIntn func(int) int
}

// NewIdentityManager creates a manager over the static pool
func NewIdentityManager(kv store.KVStore, cfg config.StealthConfig) *IdentityManager {
	return &IdentityManager{
		kv:           kv,
		pool:         identityPool,
		minRotate:    cfg.MinRequestsRotate,
		maxRotate:    cfg.MaxRequestsRotate,
		burnDuration: cfg.BurnDuration,
		counterTTL:   cfg.CounterTTL,
		now:          time.Now,
		randIntn:     rand.Intn,
	}
}

func requestsKey(id string) string { return identityKeyPrefix + id + ":requests" }
func burnedKey(id string) string   { return identityKeyPrefix + id + ":burned" }
func cookiesKey(id string) string  { return identityKeyPrefix + id + ":cookies" }

// isBurned checks the burn timestamp for an identity. The store TTL usually
// expires the key on its own; the timestamp check covers stores with coarse
// expiry.
func (m *IdentityManager) isBurned(ctx context.Context, id string) bool {
	raw, ok, err := m.kv.Get(ctx, burnedKey(id))
	if err != nil || !ok {
		return false
	}
	until, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return false
	}
	return m.now().Before(until)
}

// usageCount returns the current request counter for an identity
func (m *IdentityManager) usageCount(ctx context.Context, id string) int {
	raw, ok, err := m.kv.Get(ctx, requestsKey(id))
	if err != nil || !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

// GetHealthyIdentity selects a non-burned identity, preferring the lowest
// usage count and breaking ties randomly among identities within +2 of the
// minimum so a single fresh identity is not hammered by every caller.
func (m *IdentityManager) GetHealthyIdentity(ctx context.Context) (*Identity, error) {
	type candidate struct {
		identity Identity
		count    int
	}

	var available []candidate
	minCount := -1
	for _, id := range m.pool {
		if m.isBurned(ctx, id.ID) {
			continue
		}
		count := m.usageCount(ctx, id.ID)
		available = append(available, candidate{identity: id, count: count})
		if minCount < 0 || count < minCount {
			minCount = count
		}
	}

	if len(available) == 0 {
		return nil, ErrAllIdentitiesBurned
	}

	var pool []candidate
	for _, c := range available {
		if c.count <= minCount+2 {
			pool = append(pool, c)
		}
	}

	chosen := pool[m.randIntn(len(pool))]
	log.Printf("🎭 Using identity %s (%d uses)", chosen.identity.ID, chosen.count)
	return &chosen.identity, nil
}

// MarkSuccess increments an identity's usage counter and rotates it once it
// crosses a randomized threshold, resetting the counter and clearing cookies
func (m *IdentityManager) MarkSuccess(ctx context.Context, id string) error {
	count, err := m.kv.Incr(ctx, requestsKey(id), m.counterTTL)
	if err != nil {
		return fmt.Errorf("failed to increment identity counter: %v", err)
	}

	threshold := m.minRotate
	if m.maxRotate > m.minRotate {
		threshold += m.randIntn(m.maxRotate - m.minRotate + 1)
	}

	if count >= int64(threshold) {
		log.Printf("🔄 Rotating identity %s after %d uses", id, count)
		return m.kv.Delete(ctx, requestsKey(id), cookiesKey(id))
	}

	return nil
}

// MarkBurned takes an identity out of rotation for the burn window
func (m *IdentityManager) MarkBurned(ctx context.Context, id string) error {
	until := m.now().Add(m.burnDuration)
	log.Printf("🔥 Burning identity %s until %s", id, until.Format(time.RFC3339))
	return m.kv.Set(ctx, burnedKey(id), until.Format(time.RFC3339), m.burnDuration)
}

// SaveCookies persists an identity's cookie jar as JSON
func (m *IdentityManager) SaveCookies(ctx context.Context, id, cookiesJSON string) error {
	return m.kv.Set(ctx, cookiesKey(id), cookiesJSON, m.counterTTL)
}

// LoadCookies returns an identity's saved cookie jar, if any
func (m *IdentityManager) LoadCookies(ctx context.Context, id string) (string, bool) {
	raw, ok, err := m.kv.Get(ctx, cookiesKey(id))
	if err != nil {
		log.Printf("⚠️  Failed to load cookies for %s: %v", id, err)
		return "", false
	}
	return raw, ok
}
