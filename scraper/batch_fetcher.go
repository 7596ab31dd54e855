package scraper

import (
	"context"
	"database/sql"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pricewatch/config"
	"pricewatch/models"
)

// ExtractionLogger records every extraction attempt. Write failures are
// logged and swallowed so they never mask the primary result.
type ExtractionLogger interface {
	Insert(attempt *models.ExtractionAttempt) error
}

// StealthFetcher is the hostile-domain rendering path
type StealthFetcher interface {
	FetchPrice(ctx context.Context, url string) (*StealthResult, error)
}

// BatchFetcher fans a URL list out over two pipelines: ordinary URLs run
// under a bounded worker pool with per-request jitter, hostile-domain URLs
// run strictly sequentially so only one rendering context is open at a time.
type BatchFetcher struct {
	fetcher   *Fetcher
	extractor *Extractor
	stealth   StealthFetcher // nil when the stealth path is disabled
	logger    ExtractionLogger
	bot       *BotDetector
	cfg       config.BatchConfig

	// injected for tests
	sleep     func(time.Duration)
	randFloat func() float64
}

func NewBatchFetcher(fetcher *Fetcher, extractor *Extractor, stealth StealthFetcher, logger ExtractionLogger, cfg config.BatchConfig) *BatchFetcher {
	return &BatchFetcher{
		fetcher:   fetcher,
		extractor: extractor,
		stealth:   stealth,
		logger:    logger,
		bot:       NewBotDetector(),
		cfg:       cfg,
		sleep:     time.Sleep,
		randFloat: rand.Float64,
	}
}

// FetchMany resolves prices for a set of URLs. The result map always has an
// entry per input URL; failures carry a nil price.
func (b *BatchFetcher) FetchMany(ctx context.Context, urls []string) map[string]*float64 {
	runID := uuid.NewString()[:8]

	var ordinary, hostile []string
	for _, u := range urls {
		if b.extractor.IsHostile(u) && b.stealth != nil {
			hostile = append(hostile, u)
		} else {
			ordinary = append(ordinary, u)
		}
	}
	log.Printf("🛒 Batch %s: %d URLs (%d ordinary, %d stealth)", runID, len(urls), len(ordinary), len(hostile))

	results := make(map[string]*float64, len(urls))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(b.cfg.Workers)
	for _, u := range ordinary {
		u := u
		g.Go(func() error {
			b.jitter(b.cfg.MinJitter, b.cfg.MaxJitter)
			price, _ := b.fetchOrdinary(ctx, u)
			mu.Lock()
			results[u] = price
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	// One rendering context at a time, spaced out to look organic
	for _, u := range hostile {
		b.jitter(b.cfg.StealthMinJitter, b.cfg.StealthMaxJitter)
		price, _ := b.fetchHostile(ctx, u)
		results[u] = price
	}

	log.Printf("✅ Batch %s complete: %d/%d prices found", runID, countFound(results), len(urls))
	return results
}

// FetchOne resolves a single URL through whichever pipeline applies
func (b *BatchFetcher) FetchOne(ctx context.Context, url string) (*float64, FailureKind) {
	if b.extractor.IsHostile(url) && b.stealth != nil {
		return b.fetchHostile(ctx, url)
	}
	return b.fetchOrdinary(ctx, url)
}

func (b *BatchFetcher) fetchOrdinary(ctx context.Context, url string) (*float64, FailureKind) {
	start := time.Now()

	html, err := b.fetcher.Fetch(ctx, url)
	if err != nil {
		kind := ClassifyError(err)
		b.logAttempt(url, false, nil, "", kind, time.Since(start))
		return nil, kind
	}

	// Hostile URLs land here when the stealth path is disabled; a fetched
	// challenge page should classify as captcha, not no-price-found
	if b.extractor.IsHostile(url) {
		if isCaptcha, _ := b.bot.DetectCaptcha(html, ""); isCaptcha {
			b.logAttempt(url, false, nil, "", FailureCaptcha, time.Since(start))
			return nil, FailureCaptcha
		}
	}

	result := b.extractor.Extract(url, html)
	if result.OK {
		b.logAttempt(url, true, &result.Price, result.Method, "", time.Since(start))
		return &result.Price, ""
	}

	kind := FailureNoPriceFound
	if result.ParseError {
		kind = FailureParseError
	}
	b.logAttempt(url, false, nil, "", kind, time.Since(start))
	return nil, kind
}

func (b *BatchFetcher) fetchHostile(ctx context.Context, url string) (*float64, FailureKind) {
	start := time.Now()

	result, err := b.stealth.FetchPrice(ctx, url)
	if err != nil {
		// Every identity is cooling down; skip rather than degrade to the
		// plain fetcher, which is known to fail on this domain class
		log.Printf("⏭️  Skipping %s: %v", url, err)
		b.logAttempt(url, false, nil, MethodStealthRender, FailureIdentityUnavailable, time.Since(start))
		return nil, FailureIdentityUnavailable
	}

	method := MethodStealthRender
	if result.IdentityID != "" {
		method = MethodStealthRender + ":" + result.IdentityID
	}

	if result.OK {
		b.logAttempt(url, true, &result.Price, method, "", time.Since(start))
		return &result.Price, ""
	}

	b.logAttempt(url, false, nil, method, result.Failure, time.Since(start))
	return nil, result.Failure
}

// FetchMetadata pulls title, image and description for a product page. It
// always uses the plain HTTP path; metadata is best effort and not worth a
// rendering session.
func (b *BatchFetcher) FetchMetadata(ctx context.Context, url string) (*models.ProductMetadata, error) {
	html, err := b.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return b.extractor.Metadata(url, html), nil
}

func (b *BatchFetcher) jitter(min, max time.Duration) {
	if max <= min {
		if min > 0 {
			b.sleep(min)
		}
		return
	}
	b.sleep(min + time.Duration(b.randFloat()*float64(max-min)))
}

func (b *BatchFetcher) logAttempt(url string, success bool, price *float64, method string, kind FailureKind, elapsed time.Duration) {
	if b.logger == nil {
		return
	}

	attempt := &models.ExtractionAttempt{
		URL:            url,
		Domain:         Domain(url),
		Success:        success,
		Method:         method,
		ResponseTimeMs: int(elapsed.Milliseconds()),
		CreatedAt:      time.Now(),
	}
	if price != nil {
		attempt.Price = sql.NullFloat64{Float64: *price, Valid: true}
	}
	if kind != "" {
		errStr := string(kind)
		if len(errStr) > 50 {
			errStr = errStr[:50]
		}
		attempt.ErrorKind = sql.NullString{String: errStr, Valid: true}
	}

	if err := b.logger.Insert(attempt); err != nil {
		log.Printf("⚠️  Failed to record extraction attempt for %s: %v", url, err)
	}
}

func countFound(results map[string]*float64) int {
	n := 0
	for _, p := range results {
		if p != nil {
			n++
		}
	}
	return n
}
