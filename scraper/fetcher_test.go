package scraper

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/config"
)

func testFetchConfig() config.FetchConfig {
	return config.FetchConfig{
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		CacheTTL:   time.Hour,
		// politeness limiter disabled in tests
		PerHostRate: 0,
	}
}

// newTestFetcher returns a fetcher with recorded (not real) backoff sleeps
func newTestFetcher(cache *ResponseCache) (*Fetcher, *[]time.Duration) {
	f := NewFetcher(cache, testFetchConfig())
	var sleeps []time.Duration
	f.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	f.randFloat = func() float64 { return 0.5 }
	return f, &sleeps
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f, sleeps := newTestFetcher(nil)
	html, err := f.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", html)
	assert.Equal(t, 3, attempts)

	// Backoff grows: (attempt+1)*2 + jitter, with jitter pinned to 0.5
	require.Len(t, *sleeps, 2)
	assert.Equal(t, 2500*time.Millisecond, (*sleeps)[0])
	assert.Equal(t, 4500*time.Millisecond, (*sleeps)[1])
	assert.Greater(t, (*sleeps)[1], (*sleeps)[0])
}

func TestFetchExhaustsRetries(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f, _ := newTestFetcher(nil)
	_, err := f.Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Equal(t, 3, attempts, "1 + MAX_RETRIES attempts")
	assert.Equal(t, FailureNetworkError, ClassifyError(err))
}

func TestFetchClassifiesRateLimiting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f, _ := newTestFetcher(nil)
	_, err := f.Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Equal(t, FailureRateLimited, ClassifyError(err))
}

func TestFetchSendsBrowserHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept-Language")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f, _ := newTestFetcher(nil)
	_, err := f.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, userAgents, gotUA)
	assert.Equal(t, "en-US,en;q=0.9", gotAccept)
}

func TestFetchDecodesGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte("<html>compressed</html>"))
		gz.Close()
	}))
	defer srv.Close()

	f, _ := newTestFetcher(nil)
	html, err := f.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "<html>compressed</html>", html)
}

func TestFetchUsesCache(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Write([]byte("<html>live</html>"))
	}))
	defer srv.Close()

	cache := NewResponseCache(newFakeKV(), time.Hour)
	f, _ := newTestFetcher(cache)

	html, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>live</html>", html)

	html, err = f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>live</html>", html)
	assert.Equal(t, 1, attempts, "second fetch should be served from cache")
}
