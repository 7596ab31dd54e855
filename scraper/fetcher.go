package scraper

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"pricewatch/config"
)

// maxBodySize caps how much of a response we are willing to read
const maxBodySize = 10 * 1024 * 1024

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// Fetcher performs single-URL HTTP fetches with cache integration, randomized
// browser-like headers, per-host politeness and bounded retries. Fetch
// failures are normal outcomes, returned as *FetchError.
type Fetcher struct {
	client       *http.Client
	cache        *ResponseCache
	maxRetries   int
	perHostRate  float64
	perHostBurst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	// injected for tests
	sleep     func(time.Duration)
	randFloat func() float64
}

// NewFetcher creates a fetcher. cache may be nil to disable caching.
func NewFetcher(cache *ResponseCache, cfg config.FetchConfig) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		cache:        cache,
		maxRetries:   cfg.MaxRetries,
		perHostRate:  cfg.PerHostRate,
		perHostBurst: cfg.PerHostBurst,
		limiters:     make(map[string]*rate.Limiter),
		sleep:        time.Sleep,
		randFloat:    rand.Float64,
	}
}

// limiter returns the politeness limiter for a host, creating it on first use
func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(f.perHostRate), f.perHostBurst)
		f.limiters[host] = l
	}
	return l
}

// Fetch returns the HTML body for a URL, consulting the cache first. On
// transient failure it retries up to maxRetries additional times with
// exponential backoff plus jitter and a freshly randomized header set.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if f.cache != nil {
		if html, ok := f.cache.Get(ctx, rawURL); ok {
			log.Printf("📦 Cache hit for %s", rawURL)
			return html, nil
		}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "", &FetchError{Kind: FailureNetworkError, Err: fmt.Errorf("invalid url %q", rawURL)}
	}

	var lastErr *FetchError
	attempts := f.maxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := time.Duration((float64(attempt)*2 + f.randFloat()) * float64(time.Second))
			log.Printf("🔄 Retry %d/%d for %s in %.1fs", attempt, f.maxRetries, rawURL, wait.Seconds())
			f.sleep(wait)
		}

		if f.perHostRate > 0 {
			if err := f.limiter(parsed.Host).Wait(ctx); err != nil {
				return "", &FetchError{Kind: FailureNetworkError, Err: err}
			}
		}

		html, ferr := f.fetchOnce(ctx, rawURL)
		if ferr == nil {
			if f.cache != nil {
				f.cache.Put(ctx, rawURL, html)
			}
			return html, nil
		}
		lastErr = ferr
	}

	return "", lastErr
}

// fetchOnce issues a single GET with a fresh randomized header set
func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (string, *FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{Kind: FailureNetworkError, Err: err}
	}
	applyBrowserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{Kind: FailureNetworkError, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return "", &FetchError{Kind: FailureRateLimited, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", &FetchError{Kind: FailureNetworkError, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := readBody(resp)
	if err != nil {
		return "", &FetchError{Kind: FailureNetworkError, Err: fmt.Errorf("failed to read body: %v", err)}
	}

	return string(body), nil
}

// applyBrowserHeaders sets a realistic header set with a random user agent.
// Accept-Encoding is set explicitly, so the body must be decoded manually.
func applyBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("DNT", "1")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Cache-Control", "max-age=0")
}

// readBody decodes the response body according to Content-Encoding
func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = io.LimitReader(resp.Body, maxBodySize)

	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fl := flate.NewReader(reader)
		defer fl.Close()
		reader = fl
	case "br":
		reader = brotli.NewReader(reader)
	}

	return io.ReadAll(reader)
}
