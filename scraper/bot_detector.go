package scraper

import (
	"regexp"
	"strings"
)

// BotDetector scans rendered or fetched markup for bot challenges. A CAPTCHA
// match burns the serving identity; rate-limit markers do not.
type BotDetector struct {
	captchaPatterns   []*regexp.Regexp
	rateLimitPatterns []*regexp.Regexp
}

func NewBotDetector() *BotDetector {
	return &BotDetector{
		captchaPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)captcha`),
			regexp.MustCompile(`(?i)recaptcha`),
			regexp.MustCompile(`(?i)hcaptcha`),
			regexp.MustCompile(`(?i)turnstile`),
			regexp.MustCompile(`(?i)robot check`),
			regexp.MustCompile(`(?i)verify you are human`),
			regexp.MustCompile(`(?i)are you a robot`),
			regexp.MustCompile(`(?i)enter the characters you see below`),
			regexp.MustCompile(`(?i)select all images`),
			regexp.MustCompile(`(?i)click the checkbox`),
		},
		rateLimitPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)too many requests`),
			regexp.MustCompile(`(?i)rate limit`),
			regexp.MustCompile(`(?i)429 too many requests`),
			regexp.MustCompile(`(?i)503 service unavailable`),
		},
	}
}

// DetectCaptcha checks page content for a CAPTCHA or robot-check challenge
func (bd *BotDetector) DetectCaptcha(pageContent, pageTitle string) (bool, string) {
	content := strings.ToLower(pageContent + " " + pageTitle)

	for _, pattern := range bd.captchaPatterns {
		if pattern.MatchString(content) {
			return true, pattern.String()
		}
	}

	return false, ""
}

// DetectRateLimit checks page content for rate-limiting markers
func (bd *BotDetector) DetectRateLimit(pageContent string) bool {
	content := strings.ToLower(pageContent)

	for _, pattern := range bd.rateLimitPatterns {
		if pattern.MatchString(content) {
			return true
		}
	}

	return false
}
