package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/config"
	"pricewatch/models"
)

type recordingLogger struct {
	mu       sync.Mutex
	attempts []*models.ExtractionAttempt
}

func (l *recordingLogger) Insert(attempt *models.ExtractionAttempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = append(l.attempts, attempt)
	return nil
}

type stubStealth struct {
	result *StealthResult
	err    error
	calls  int
}

func (s *stubStealth) FetchPrice(ctx context.Context, url string) (*StealthResult, error) {
	s.calls++
	return s.result, s.err
}

func testBatchConfig() config.BatchConfig {
	return config.BatchConfig{
		Workers:          5,
		MinJitter:        100 * time.Millisecond,
		MaxJitter:        time.Second,
		StealthMinJitter: time.Second,
		StealthMaxJitter: 3 * time.Second,
	}
}

func newTestBatchFetcher(logger ExtractionLogger, stealth StealthFetcher) *BatchFetcher {
	fetcher, _ := newTestFetcher(NewResponseCache(newFakeKV(), time.Hour))
	b := NewBatchFetcher(fetcher, NewExtractor(), stealth, logger, testBatchConfig())
	b.sleep = func(time.Duration) {}
	b.randFloat = func() float64 { return 0.5 }
	return b
}

func TestFetchManyResolvesEveryURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/meta1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta property="og:price:amount" content="19.99"></head></html>`)
	})
	mux.HandleFunc("/meta2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta property="product:price:amount" content="45.50"></head></html>`)
	})
	mux.HandleFunc("/jsonld", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><script type="application/ld+json">{"@type":"Product","offers":{"price":"129.00"}}</script></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	logger := &recordingLogger{}
	b := newTestBatchFetcher(logger, nil)

	urls := []string{srv.URL + "/meta1", srv.URL + "/meta2", srv.URL + "/jsonld"}
	results := b.FetchMany(context.Background(), urls)

	require.Len(t, results, 3)
	require.NotNil(t, results[urls[0]])
	assert.InDelta(t, 19.99, *results[urls[0]], 0.001)
	require.NotNil(t, results[urls[1]])
	assert.InDelta(t, 45.50, *results[urls[1]], 0.001)
	require.NotNil(t, results[urls[2]])
	assert.InDelta(t, 129.00, *results[urls[2]], 0.001)

	require.Len(t, logger.attempts, 3)
	methods := map[string]int{}
	for _, a := range logger.attempts {
		assert.True(t, a.Success)
		assert.True(t, a.Price.Valid)
		assert.NotEmpty(t, a.Domain)
		methods[a.Method]++
	}
	assert.Equal(t, 2, methods[MethodMeta])
	assert.Equal(t, 1, methods[MethodStructuredData])
}

func TestFetchManyRecordsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>nothing for sale here</p></body></html>`)
	}))
	defer srv.Close()

	logger := &recordingLogger{}
	b := newTestBatchFetcher(logger, nil)

	results := b.FetchMany(context.Background(), []string{srv.URL + "/empty"})

	require.Len(t, results, 1)
	assert.Nil(t, results[srv.URL+"/empty"])
	require.Len(t, logger.attempts, 1)
	assert.False(t, logger.attempts[0].Success)
	assert.Equal(t, string(FailureNoPriceFound), logger.attempts[0].ErrorKind.String)
}

func TestFetchManyRoutesHostileURLsThroughStealth(t *testing.T) {
	logger := &recordingLogger{}
	stealth := &stubStealth{result: &StealthResult{Price: 34.99, OK: true, IdentityID: "mac_chrome_1"}}
	b := newTestBatchFetcher(logger, stealth)

	url := "https://www.amazon.com/dp/B0TEST"
	results := b.FetchMany(context.Background(), []string{url})

	assert.Equal(t, 1, stealth.calls)
	require.NotNil(t, results[url])
	assert.InDelta(t, 34.99, *results[url], 0.001)
	require.Len(t, logger.attempts, 1)
	assert.Equal(t, MethodStealthRender+":mac_chrome_1", logger.attempts[0].Method)
}

func TestFetchManySkipsWhenAllIdentitiesBurned(t *testing.T) {
	logger := &recordingLogger{}
	stealth := &stubStealth{err: ErrAllIdentitiesBurned}
	b := newTestBatchFetcher(logger, stealth)

	url := "https://www.amazon.com/dp/B0TEST"
	results := b.FetchMany(context.Background(), []string{url})

	assert.Nil(t, results[url])
	require.Len(t, logger.attempts, 1)
	assert.False(t, logger.attempts[0].Success)
	assert.Equal(t, string(FailureIdentityUnavailable), logger.attempts[0].ErrorKind.String)
}

func TestFetchOneUsesOrdinaryPathWithoutStealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta property="og:price:amount" content="8.25"></head></html>`)
	}))
	defer srv.Close()

	logger := &recordingLogger{}
	b := newTestBatchFetcher(logger, nil)

	price, kind := b.FetchOne(context.Background(), srv.URL+"/item")
	require.NotNil(t, price)
	assert.InDelta(t, 8.25, *price, 0.001)
	assert.Empty(t, string(kind))
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	var mu sync.Mutex
	active, peak := 0, 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		fmt.Fprint(w, `<html><head><meta property="og:price:amount" content="1.00"></head></html>`)
	}))
	defer srv.Close()

	b := newTestBatchFetcher(&recordingLogger{}, nil)
	var urls []string
	for i := 0; i < 20; i++ {
		urls = append(urls, fmt.Sprintf("%s/item/%d", srv.URL, i))
	}

	results := b.FetchMany(context.Background(), urls)
	assert.Len(t, results, 20)
	assert.LessOrEqual(t, peak, 5)
}
