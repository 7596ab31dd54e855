package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomain(t *testing.T) {
	assert.Equal(t, "example.com", Domain("https://www.example.com/product/1"))
	assert.Equal(t, "shop.example.com", Domain("https://shop.example.com/p?x=1"))
	assert.Equal(t, "amazon.com", Domain("https://www.amazon.com/dp/B000"))
}

func TestIsHostile(t *testing.T) {
	e := NewExtractor()
	assert.True(t, e.IsHostile("https://www.amazon.com/dp/B08N5WRWNW"))
	assert.True(t, e.IsHostile("https://amazon.co.uk/gp/product/B000"))
	assert.True(t, e.IsHostile("https://a.co/d/abc123"))
	assert.True(t, e.IsHostile("https://amzn.to/3xyz"))
	assert.False(t, e.IsHostile("https://www.target.com/p/-/A-123"))
	assert.False(t, e.IsHostile("https://example.com/amazonia-book"))
}

func TestExtractAmazonSelectors(t *testing.T) {
	e := NewExtractor()
	html := `<html><body>
		<div id="corePrice_feature_div"><span class="a-offscreen">$129.99</span></div>
	</body></html>`

	result := e.Extract("https://www.amazon.com/dp/B000", html)
	require.True(t, result.OK)
	assert.InDelta(t, 129.99, result.Price, 0.001)
	assert.Equal(t, MethodCSSSelector, result.Method)
}

func TestExtractAmazonScriptPattern(t *testing.T) {
	e := NewExtractor()
	html := `<html><body>
		<script>var state = {"priceAmount": 54.49, "currency": "USD"};</script>
	</body></html>`

	result := e.Extract("https://www.amazon.com/dp/B000", html)
	require.True(t, result.OK)
	assert.InDelta(t, 54.49, result.Price, 0.001)
	assert.Equal(t, MethodStructuredData, result.Method)
}

func TestExtractTarget(t *testing.T) {
	e := NewExtractor()
	html := `<html><body><span data-test="product-price">$24.99</span></body></html>`

	result := e.Extract("https://www.target.com/p/-/A-123", html)
	require.True(t, result.OK)
	assert.InDelta(t, 24.99, result.Price, 0.001)
}

func TestExtractWalmartNextData(t *testing.T) {
	e := NewExtractor()
	html := `<html><body>
		<script id="__NEXT_DATA__" type="application/json">
			{"props":{"pageProps":{"initialData":{"data":{"product":{
				"priceInfo":{"currentPrice":{"price":38.97,"currencyUnit":"USD"}}
			}}}}}}
		</script>
	</body></html>`

	result := e.Extract("https://www.walmart.com/ip/123", html)
	require.True(t, result.OK)
	assert.InDelta(t, 38.97, result.Price, 0.001)
	assert.Equal(t, MethodStructuredData, result.Method)
}

func TestExtractBestBuy(t *testing.T) {
	e := NewExtractor()
	html := `<html><body>
		<div class="priceView-hero-price"><span aria-hidden="true">$899.99</span></div>
	</body></html>`

	result := e.Extract("https://www.bestbuy.com/site/p/123.p", html)
	require.True(t, result.OK)
	assert.InDelta(t, 899.99, result.Price, 0.001)
}

func TestExtractEtsy(t *testing.T) {
	e := NewExtractor()
	html := `<html><body><div data-buy-box-listing-price="">$32.50+</div></body></html>`

	result := e.Extract("https://www.etsy.com/listing/123/thing", html)
	require.True(t, result.OK)
	assert.InDelta(t, 32.50, result.Price, 0.001)
}

func TestExtractGenericMetaTags(t *testing.T) {
	e := NewExtractor()
	html := `<html><head>
		<meta property="og:price:amount" content="49.95">
	</head><body></body></html>`

	result := e.Extract("https://example.com/product", html)
	require.True(t, result.OK)
	assert.InDelta(t, 49.95, result.Price, 0.001)
	assert.Equal(t, MethodMeta, result.Method)
}

func TestExtractGenericJSONLD(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name string
		ld   string
		want float64
	}{
		{"direct price", `{"@type":"Product","price":"19.99"}`, 19.99},
		{"offers object", `{"@type":"Product","offers":{"price":"299.00"}}`, 299.00},
		{"offers lowPrice", `{"@type":"Product","offers":{"lowPrice":12.50,"highPrice":20}}`, 12.50},
		{"offers array", `{"@type":"Product","offers":[{"price":"15.00"},{"price":"18.00"}]}`, 15.00},
		{"graph nesting", `{"@graph":[{"@type":"WebPage"},{"@type":"Product","offers":{"price":"75.25"}}]}`, 75.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := `<html><head><script type="application/ld+json">` + tt.ld + `</script></head><body></body></html>`
			result := e.Extract("https://example.com/product", html)
			require.True(t, result.OK)
			assert.InDelta(t, tt.want, result.Price, 0.001)
			assert.Equal(t, MethodStructuredData, result.Method)
		})
	}
}

func TestExtractMalformedJSONLDContinuesChain(t *testing.T) {
	e := NewExtractor()
	html := `<html><head>
		<script type="application/ld+json">{not valid json</script>
	</head><body>
		<span itemprop="price" content="42.00"></span>
	</body></html>`

	result := e.Extract("https://example.com/product", html)
	require.True(t, result.OK)
	assert.InDelta(t, 42.00, result.Price, 0.001)
	assert.Equal(t, MethodMicrodata, result.Method)
	assert.True(t, result.ParseError, "malformed block should still be reported")
}

func TestExtractGenericCSSClasses(t *testing.T) {
	e := NewExtractor()
	html := `<html><body>
		<div class="product-info"><span class="woocommerce-Price-amount">€64,90</span></div>
	</body></html>`

	result := e.Extract("https://example.com/product", html)
	require.True(t, result.OK)
	assert.InDelta(t, 64.90, result.Price, 0.001)
	assert.Equal(t, MethodCSSSelector, result.Method)
}

func TestExtractSanityGate(t *testing.T) {
	e := NewExtractor()
	// An implausible meta price should not stop a later strategy from
	// providing a plausible one
	html := `<html><head>
		<meta property="og:price:amount" content="2500000">
		<script type="application/ld+json">{"@type":"Product","offers":{"price":"89.99"}}</script>
	</head><body></body></html>`

	result := e.Extract("https://example.com/product", html)
	require.True(t, result.OK)
	assert.InDelta(t, 89.99, result.Price, 0.001)
	assert.Equal(t, MethodStructuredData, result.Method)
}

func TestExtractNoPriceFound(t *testing.T) {
	e := NewExtractor()
	html := `<html><body><p>Just an article, nothing for sale.</p></body></html>`

	result := e.Extract("https://example.com/blog/post", html)
	assert.False(t, result.OK)
	assert.False(t, result.ParseError)
}

func TestMetadataGeneric(t *testing.T) {
	e := NewExtractor()
	html := `<html><head>
		<title>Fallback Title</title>
		<meta property="og:title" content="Walnut Desk Organizer">
		<meta property="og:image" content="https://cdn.example.com/desk.jpg">
		<meta property="og:description" content="A tidy desk at last.">
		<meta property="og:price:amount" content="39.00">
	</head><body></body></html>`

	meta := e.Metadata("https://example.com/product/desk", html)
	assert.Equal(t, "Walnut Desk Organizer", meta.Title)
	assert.Equal(t, "https://cdn.example.com/desk.jpg", meta.ImageURL)
	assert.Equal(t, "A tidy desk at last.", meta.Description)
	assert.Equal(t, "example.com", meta.Domain)
	require.NotNil(t, meta.Price)
	assert.InDelta(t, 39.00, *meta.Price, 0.001)
}

func TestMetadataAmazonDynamicImage(t *testing.T) {
	e := NewExtractor()
	html := `<html><body>
		<span id="productTitle"> Mechanical Keyboard </span>
		<img id="landingImage" src="https://img.example.com/small.jpg"
			data-a-dynamic-image='{"https://img.example.com/small.jpg":[300,200],"https://img.example.com/large.jpg":[1200,800]}'>
		<div id="corePrice_feature_div"><span class="a-offscreen">$79.00</span></div>
	</body></html>`

	meta := e.Metadata("https://www.amazon.com/dp/B000", html)
	assert.Equal(t, "Mechanical Keyboard", meta.Title)
	assert.Equal(t, "https://img.example.com/large.jpg", meta.ImageURL)
	require.NotNil(t, meta.Price)
	assert.InDelta(t, 79.00, *meta.Price, 0.001)
}
