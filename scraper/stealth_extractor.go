package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"pricewatch/config"
)

// StealthResult is the outcome of one rendered extraction attempt
type StealthResult struct {
	Price      float64
	OK         bool
	Failure    FailureKind
	IdentityID string
}

// StealthExtractor renders hostile-domain pages in an isolated headless
// browser fingerprinted with a rotating identity. Each attempt launches its
// own browser so nothing leaks between identities; the batch orchestrator
// keeps attempts strictly sequential to bound memory.
type StealthExtractor struct {
	identities *IdentityManager
	extractor  *Extractor
	bot        *BotDetector
	navTimeout time.Duration
}

func NewStealthExtractor(identities *IdentityManager, extractor *Extractor, cfg config.StealthConfig) *StealthExtractor {
	return &StealthExtractor{
		identities: identities,
		extractor:  extractor,
		bot:        NewBotDetector(),
		navTimeout: cfg.NavigationTimeout,
	}
}

// FetchPrice runs one stealth extraction. It returns ErrAllIdentitiesBurned
// when no identity is available; the caller must skip the URL in that case
// instead of degrading to the plain fetcher.
func (s *StealthExtractor) FetchPrice(ctx context.Context, url string) (*StealthResult, error) {
	identity, err := s.identities.GetHealthyIdentity(ctx)
	if err != nil {
		return nil, err
	}

	result := s.attempt(ctx, url, identity)
	result.IdentityID = identity.ID

	switch {
	case result.OK:
		if err := s.identities.MarkSuccess(ctx, identity.ID); err != nil {
			log.Printf("⚠️  Failed to mark identity success: %v", err)
		}
	case result.Failure == FailureCaptcha:
		// Only a CAPTCHA burns the identity; rate limiting and network
		// errors are not the identity's fault
		if err := s.identities.MarkBurned(ctx, identity.ID); err != nil {
			log.Printf("⚠️  Failed to burn identity: %v", err)
		}
	}

	return result, nil
}

func (s *StealthExtractor) attempt(ctx context.Context, url string, identity *Identity) *StealthResult {
	fail := func(kind FailureKind, err error) *StealthResult {
		if err != nil {
			log.Printf("⚠️  Stealth attempt failed (%s) for %s: %v", kind, url, err)
		}
		return &StealthResult{Failure: kind}
	}

	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Leakless(false)
	defer l.Cleanup()

	controlURL, err := l.Launch()
	if err != nil {
		return fail(FailureNetworkError, fmt.Errorf("failed to launch browser: %v", err))
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fail(FailureNetworkError, fmt.Errorf("failed to connect browser: %v", err))
	}
	defer browser.Close()

	page, err := stealth.Page(browser)
	if err != nil {
		return fail(FailureNetworkError, fmt.Errorf("failed to open stealth page: %v", err))
	}
	defer page.Close()

	if err := s.applyFingerprint(page, identity); err != nil {
		return fail(FailureNetworkError, err)
	}
	s.restoreCookies(ctx, page, identity.ID)
	// Cookies are persisted whatever happens to the attempt
	defer s.saveCookies(ctx, page, identity.ID)

	nav := page.Timeout(s.navTimeout)
	event := proto.NetworkResponseReceived{}
	wait := nav.WaitEvent(&event)
	if err := nav.Navigate(url); err != nil {
		return fail(FailureNetworkError, fmt.Errorf("failed to navigate: %v", err))
	}
	wait()
	if err := nav.WaitLoad(); err != nil {
		return fail(FailureNetworkError, fmt.Errorf("failed to load page: %v", err))
	}

	status := 0
	if event.Response != nil {
		status = event.Response.Status
	}

	interactLikeHuman(page)

	html, err := page.HTML()
	if err != nil {
		return fail(FailureNetworkError, fmt.Errorf("failed to read page: %v", err))
	}

	if isCaptcha, reason := s.bot.DetectCaptcha(html, ""); isCaptcha {
		log.Printf("🤖 CAPTCHA wall on %s (%s)", url, reason)
		return &StealthResult{Failure: FailureCaptcha}
	}
	if status == 429 || status == 503 {
		return fail(FailureRateLimited, fmt.Errorf("status %d", status))
	}

	extracted := s.extractor.Extract(url, html)
	if !extracted.OK {
		return &StealthResult{Failure: FailureNoPriceFound}
	}

	log.Printf("🎯 Stealth extracted $%.2f from %s as %s", extracted.Price, url, identity.ID)
	return &StealthResult{Price: extracted.Price, OK: true}
}

// applyFingerprint shapes the rendering context to match the identity
func (s *StealthExtractor) applyFingerprint(page *rod.Page, identity *Identity) error {
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      identity.UserAgent,
		AcceptLanguage: identity.Locale,
	}); err != nil {
		return fmt.Errorf("failed to set user agent: %v", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             identity.ViewportWidth,
		Height:            identity.ViewportHeight,
		DeviceScaleFactor: identity.DeviceScale,
		Mobile:            false,
	}); err != nil {
		return fmt.Errorf("failed to set viewport: %v", err)
	}

	if err := (proto.EmulationSetTimezoneOverride{
		TimezoneID: identity.Timezone,
	}).Call(page); err != nil {
		return fmt.Errorf("failed to set timezone: %v", err)
	}

	if err := (proto.EmulationSetLocaleOverride{
		Locale: identity.Locale,
	}).Call(page); err != nil {
		return fmt.Errorf("failed to set locale: %v", err)
	}

	if err := (proto.EmulationSetEmulatedMedia{
		Features: []*proto.EmulationMediaFeature{
			{Name: "prefers-color-scheme", Value: identity.ColorScheme},
		},
	}).Call(page); err != nil {
		return fmt.Errorf("failed to set color scheme: %v", err)
	}

	// Mask the WebGL vendor strings to match the identity's hardware
	script := fmt.Sprintf(`() => {
		const getParameter = WebGLRenderingContext.prototype.getParameter;
		WebGLRenderingContext.prototype.getParameter = function(parameter) {
			if (parameter === 37445) return %q;
			if (parameter === 37446) return %q;
			return getParameter.call(this, parameter);
		};
	}`, identity.WebGLVendor, identity.WebGLRenderer)
	if _, err := page.EvalOnNewDocument(script); err != nil {
		return fmt.Errorf("failed to mask webgl: %v", err)
	}

	return nil
}

func (s *StealthExtractor) restoreCookies(ctx context.Context, page *rod.Page, identityID string) {
	raw, ok := s.identities.LoadCookies(ctx, identityID)
	if !ok {
		return
	}

	var cookies []*proto.NetworkCookieParam
	if err := json.Unmarshal([]byte(raw), &cookies); err != nil {
		log.Printf("⚠️  Saved cookies corrupt for %s: %v", identityID, err)
		return
	}
	if err := page.SetCookies(cookies); err != nil {
		log.Printf("⚠️  Failed to restore cookies for %s: %v", identityID, err)
	}
}

func (s *StealthExtractor) saveCookies(ctx context.Context, page *rod.Page, identityID string) {
	cookies, err := page.Cookies(nil)
	if err != nil {
		return
	}

	raw, err := json.Marshal(cookies)
	if err != nil {
		return
	}
	if err := s.identities.SaveCookies(ctx, identityID, string(raw)); err != nil {
		log.Printf("⚠️  Failed to save cookies for %s: %v", identityID, err)
	}
}
