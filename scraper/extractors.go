package scraper

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extraction methods recorded in the log
const (
	MethodMeta           = "meta"
	MethodStructuredData = "structured-data"
	MethodMicrodata      = "microdata"
	MethodCSSSelector    = "css-selector"
	MethodStealthRender  = "stealth-render"
)

// ExtractResult is the outcome of running an extraction chain over a page
type ExtractResult struct {
	Price  float64
	Method string
	OK     bool
	// ParseError is set when a structured-data block was malformed along
	// the way, even if a later strategy succeeded
	ParseError bool
}

// Extractor dispatches per-domain extraction strategies with a generic
// fallback. Strategies are fallback chains tried in a fixed order until one
// yields a plausible price.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// plausiblePrice is the sanity gate applied to every extracted candidate
func plausiblePrice(p float64) bool {
	return p > 0 && p < 100000
}

// Domain returns the host of a URL with any leading www. stripped
func Domain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

// IsHostile reports whether a URL belongs to the domain class that actively
// blocks plain HTTP scraping and needs the stealth path
func (e *Extractor) IsHostile(rawURL string) bool {
	host := Domain(rawURL)
	if strings.Contains(host, "amazon") {
		return true
	}
	switch host {
	case "a.co", "amzn.to", "amzn.eu":
		return true
	}
	return false
}

// Extract runs the site-appropriate extraction chain over fetched HTML
func (e *Extractor) Extract(rawURL, html string) ExtractResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ExtractResult{ParseError: true}
	}

	host := Domain(rawURL)
	switch {
	case e.IsHostile(rawURL):
		return e.extractAmazon(doc, html)
	case strings.Contains(host, "target.com"):
		return e.extractTarget(doc, html)
	case strings.Contains(host, "walmart.com"):
		return e.extractWalmart(doc, html)
	case strings.Contains(host, "bestbuy.com"):
		return e.extractBestBuy(doc, html)
	case strings.Contains(host, "etsy.com"):
		return e.extractEtsy(doc, html)
	default:
		return e.extractGeneric(doc, html)
	}
}

// trySelectors returns the first plausible price among the candidates,
// preferring a content attribute over element text
func trySelectors(doc *goquery.Document, selectors []string) (float64, bool) {
	for _, sel := range selectors {
		var price float64
		var found bool
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := s.AttrOr("content", "")
			if text == "" {
				text = strings.TrimSpace(s.Text())
			}
			if p, ok := ParsePrice(text); ok && plausiblePrice(p) {
				price, found = p, true
				return false
			}
			return true
		})
		if found {
			return price, true
		}
	}
	return 0, false
}

// tryScriptPatterns matches known price-bearing JSON fragments in inline
// scripts
func tryScriptPatterns(html string, patterns []*regexp.Regexp) (float64, bool) {
	for _, re := range patterns {
		for _, match := range re.FindAllStringSubmatch(html, 5) {
			if p, ok := ParsePrice(match[1]); ok && plausiblePrice(p) {
				return p, true
			}
		}
	}
	return 0, false
}

// Amazon: selectors ordered from current markup down to legacy price blocks
var amazonSelectors = []string{
	"#corePrice_feature_div .a-offscreen",
	".apexPriceToPay .a-offscreen",
	"#priceblock_ourprice",
	"#priceblock_dealprice",
	"#priceblock_saleprice",
	".a-price .a-offscreen",
	"#price_inside_buybox",
	"#newBuyBoxPrice",
	".a-price-whole",
}

var amazonScriptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"priceAmount":\s*([\d.]+)`),
	regexp.MustCompile(`"buyingPrice":\s*([\d.]+)`),
	regexp.MustCompile(`"price":\s*"?\$?([\d,.]+)"?`),
}

func (e *Extractor) extractAmazon(doc *goquery.Document, html string) ExtractResult {
	if p, ok := trySelectors(doc, amazonSelectors); ok {
		return ExtractResult{Price: p, Method: MethodCSSSelector, OK: true}
	}
	if p, ok := tryScriptPatterns(html, amazonScriptPatterns); ok {
		return ExtractResult{Price: p, Method: MethodStructuredData, OK: true}
	}
	return e.extractGeneric(doc, html)
}

var targetSelectors = []string{
	`[data-test="product-price"]`,
	`[data-test="product-price-value"]`,
	`span[data-test="current-price"]`,
}

func (e *Extractor) extractTarget(doc *goquery.Document, html string) ExtractResult {
	if p, ok := trySelectors(doc, targetSelectors); ok {
		return ExtractResult{Price: p, Method: MethodCSSSelector, OK: true}
	}
	return e.extractGeneric(doc, html)
}

func (e *Extractor) extractWalmart(doc *goquery.Document, html string) ExtractResult {
	if p, ok := trySelectors(doc, []string{`[itemprop="price"]`, `span[itemprop="price"]`}); ok {
		return ExtractResult{Price: p, Method: MethodCSSSelector, OK: true}
	}

	// Walmart embeds its price deep inside the __NEXT_DATA__ blob
	sawParseError := false
	if raw := doc.Find("script#__NEXT_DATA__").Text(); raw != "" {
		var data interface{}
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			sawParseError = true
		} else if p, ok := findKeyedPrice(data, "priceInfo"); ok {
			return ExtractResult{Price: p, Method: MethodStructuredData, OK: true}
		}
	}

	result := e.extractGeneric(doc, html)
	result.ParseError = result.ParseError || sawParseError
	return result
}

var bestBuySelectors = []string{
	`.priceView-hero-price span[aria-hidden="true"]`,
	".priceView-hero-price span",
	".priceView-customer-price span",
}

func (e *Extractor) extractBestBuy(doc *goquery.Document, html string) ExtractResult {
	if p, ok := trySelectors(doc, bestBuySelectors); ok {
		return ExtractResult{Price: p, Method: MethodCSSSelector, OK: true}
	}
	return e.extractGeneric(doc, html)
}

var etsySelectors = []string{
	"[data-buy-box-listing-price]",
	".wt-text-title-larger",
	"p.wt-text-title-03",
}

func (e *Extractor) extractEtsy(doc *goquery.Document, html string) ExtractResult {
	if p, ok := trySelectors(doc, etsySelectors); ok {
		return ExtractResult{Price: p, Method: MethodCSSSelector, OK: true}
	}
	return e.extractGeneric(doc, html)
}

var metaPriceSelectors = []string{
	`meta[property="og:price:amount"]`,
	`meta[property="product:price:amount"]`,
	`meta[name="price"]`,
	`meta[name="twitter:data1"]`,
	`meta[property="og:price"]`,
}

// Common price class patterns, current storefront themes first
var genericPriceSelectors = []string{
	".product-price",
	".price",
	".current-price",
	".sale-price",
	".regular-price",
	".product__price",
	"[data-price]",
	".price-value",
	".price__current",
	".ProductPrice",
	".product-single__price",
	"#product-price",
	".woocommerce-Price-amount",
	".shopify-Price",
}

// extractGeneric tries, in order: meta tags, JSON-LD structured data,
// microdata, then broad CSS class patterns
func (e *Extractor) extractGeneric(doc *goquery.Document, html string) ExtractResult {
	if p, ok := trySelectors(doc, metaPriceSelectors); ok {
		return ExtractResult{Price: p, Method: MethodMeta, OK: true}
	}

	sawParseError := false
	var ldPrice float64
	var ldFound bool
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			sawParseError = true
			return true
		}
		if p, ok := structuredDataPrice(data); ok {
			ldPrice, ldFound = p, true
			return false
		}
		return true
	})
	if ldFound {
		return ExtractResult{Price: ldPrice, Method: MethodStructuredData, OK: true, ParseError: sawParseError}
	}

	if p, ok := trySelectors(doc, []string{`[itemprop="price"]`}); ok {
		return ExtractResult{Price: p, Method: MethodMicrodata, OK: true, ParseError: sawParseError}
	}

	if p, ok := trySelectors(doc, genericPriceSelectors); ok {
		return ExtractResult{Price: p, Method: MethodCSSSelector, OK: true, ParseError: sawParseError}
	}

	return ExtractResult{ParseError: sawParseError}
}

// structuredDataPrice searches a decoded JSON-LD block for a price,
// following offers, offer arrays and nested @graph entries
func structuredDataPrice(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		for _, key := range []string{"price", "lowPrice"} {
			if raw, ok := t[key]; ok {
				if p, ok := numericPrice(raw); ok {
					return p, true
				}
			}
		}
		if offers, ok := t["offers"]; ok {
			if p, ok := structuredDataPrice(offers); ok {
				return p, true
			}
		}
		if graph, ok := t["@graph"]; ok {
			if p, ok := structuredDataPrice(graph); ok {
				return p, true
			}
		}
	case []interface{}:
		for _, item := range t {
			if p, ok := structuredDataPrice(item); ok {
				return p, true
			}
		}
	}
	return 0, false
}

// findKeyedPrice walks arbitrary decoded JSON for the given key and pulls
// the first plausible price out of its subtree
func findKeyedPrice(v interface{}, key string) (float64, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		if sub, ok := t[key]; ok {
			if p, ok := findPriceField(sub); ok {
				return p, true
			}
		}
		for _, val := range t {
			if p, ok := findKeyedPrice(val, key); ok {
				return p, true
			}
		}
	case []interface{}:
		for _, item := range t {
			if p, ok := findKeyedPrice(item, key); ok {
				return p, true
			}
		}
	}
	return 0, false
}

// findPriceField finds the first plausible "price" value in a subtree
func findPriceField(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		if raw, ok := t["price"]; ok {
			if p, ok := numericPrice(raw); ok {
				return p, true
			}
		}
		for _, val := range t {
			if p, ok := findPriceField(val); ok {
				return p, true
			}
		}
	case []interface{}:
		for _, item := range t {
			if p, ok := findPriceField(item); ok {
				return p, true
			}
		}
	}
	return 0, false
}

// numericPrice accepts JSON numbers and price-shaped strings
func numericPrice(raw interface{}) (float64, bool) {
	switch t := raw.(type) {
	case float64:
		if plausiblePrice(t) {
			return t, true
		}
	case string:
		if p, ok := ParsePrice(t); ok && plausiblePrice(p) {
			return p, true
		}
	}
	return 0, false
}
