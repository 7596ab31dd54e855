package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/config"
)

func testStealthConfig() config.StealthConfig {
	return config.StealthConfig{
		Enabled:           true,
		MinRequestsRotate: 10,
		MaxRequestsRotate: 20,
		BurnDuration:      24 * time.Hour,
		NavigationTimeout: 30 * time.Second,
		CounterTTL:        24 * time.Hour,
	}
}

func newTestIdentityManager() (*IdentityManager, *fakeKV, *time.Time) {
	kv := newFakeKV()
	m := NewIdentityManager(kv, testStealthConfig())

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	m.now = func() time.Time { return *clock }
	kv.now = m.now
	return m, kv, clock
}

func TestGetHealthyIdentityNeverReturnsBurned(t *testing.T) {
	m, _, _ := newTestIdentityManager()
	ctx := context.Background()

	burned := map[string]bool{}
	for _, id := range []string{"mac_chrome_1", "windows_chrome_1", "linux_chrome_1"} {
		require.NoError(t, m.MarkBurned(ctx, id))
		burned[id] = true
	}

	for i := 0; i < 50; i++ {
		identity, err := m.GetHealthyIdentity(ctx)
		require.NoError(t, err)
		assert.False(t, burned[identity.ID], "selected burned identity %s", identity.ID)
	}
}

func TestBurnExpiresAfterWindow(t *testing.T) {
	m, _, clock := newTestIdentityManager()
	ctx := context.Background()

	require.NoError(t, m.MarkBurned(ctx, "mac_safari_1"))
	assert.True(t, m.isBurned(ctx, "mac_safari_1"))

	*clock = clock.Add(23 * time.Hour)
	assert.True(t, m.isBurned(ctx, "mac_safari_1"), "still inside the 24h window")

	*clock = clock.Add(2 * time.Hour)
	assert.False(t, m.isBurned(ctx, "mac_safari_1"), "burn should expire after 24h")

	// And it is selectable again
	m.randIntn = func(n int) int { return 0 }
	seen := false
	for i := 0; i < 200 && !seen; i++ {
		identity, err := m.GetHealthyIdentity(ctx)
		require.NoError(t, err)
		seen = identity.ID == "mac_safari_1"
		m.randIntn = func(n int) int { return i % n }
	}
	assert.True(t, seen, "expired identity should reappear in selection")
}

func TestAllIdentitiesBurned(t *testing.T) {
	m, _, _ := newTestIdentityManager()
	ctx := context.Background()

	for _, id := range m.pool {
		require.NoError(t, m.MarkBurned(ctx, id.ID))
	}

	_, err := m.GetHealthyIdentity(ctx)
	assert.ErrorIs(t, err, ErrAllIdentitiesBurned)
}

func TestMarkSuccessRotatesPastThreshold(t *testing.T) {
	m, _, _ := newTestIdentityManager()
	ctx := context.Background()

	// Pin the randomized threshold to its minimum (10)
	m.randIntn = func(n int) int { return 0 }

	for i := 0; i < 9; i++ {
		require.NoError(t, m.MarkSuccess(ctx, "windows_edge_1"))
	}
	assert.Equal(t, 9, m.usageCount(ctx, "windows_edge_1"))

	// Tenth success crosses the threshold and resets the counter
	require.NoError(t, m.MarkSuccess(ctx, "windows_edge_1"))
	assert.Equal(t, 0, m.usageCount(ctx, "windows_edge_1"))
}

func TestRotationClearsCookies(t *testing.T) {
	m, _, _ := newTestIdentityManager()
	ctx := context.Background()
	m.randIntn = func(n int) int { return 0 }

	require.NoError(t, m.SaveCookies(ctx, "windows_edge_1", `[{"name":"session"}]`))
	_, ok := m.LoadCookies(ctx, "windows_edge_1")
	require.True(t, ok)

	for i := 0; i < 10; i++ {
		require.NoError(t, m.MarkSuccess(ctx, "windows_edge_1"))
	}

	_, ok = m.LoadCookies(ctx, "windows_edge_1")
	assert.False(t, ok, "rotation should clear saved cookies")
}

func TestSelectionPrefersLowUsage(t *testing.T) {
	m, _, _ := newTestIdentityManager()
	ctx := context.Background()
	m.randIntn = func(n int) int { return 0 }

	// Give every identity except two a high usage count
	for _, id := range m.pool {
		if id.ID == "mac_chrome_1" || id.ID == "mac_chrome_2" {
			continue
		}
		for i := 0; i < 8; i++ {
			require.NoError(t, m.MarkSuccess(ctx, id.ID))
		}
	}

	// Selection must stay within +2 of the minimum usage count
	for i := 0; i < 30; i++ {
		m.randIntn = func(n int) int { return i % n }
		identity, err := m.GetHealthyIdentity(ctx)
		require.NoError(t, err)
		assert.Contains(t, []string{"mac_chrome_1", "mac_chrome_2"}, identity.ID)
	}
}

func TestIdentityPoolIsCoherent(t *testing.T) {
	ids := map[string]bool{}
	for _, id := range IdentityPool() {
		assert.False(t, ids[id.ID], "duplicate identity id %s", id.ID)
		ids[id.ID] = true
		assert.NotEmpty(t, id.UserAgent)
		assert.Greater(t, id.ViewportWidth, 0)
		assert.Greater(t, id.ViewportHeight, 0)
		assert.NotEmpty(t, id.Timezone)
		assert.NotEmpty(t, id.Locale)
	}
	assert.GreaterOrEqual(t, len(ids), 10)
}
