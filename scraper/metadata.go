package scraper

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricewatch/models"
)

// Metadata extracts title, price, image and description for assisted item
// creation from a pasted link. Everything here is best effort; missing
// fields stay empty.
func (e *Extractor) Metadata(rawURL, html string) *models.ProductMetadata {
	meta := &models.ProductMetadata{Domain: Domain(rawURL)}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return meta
	}

	if e.IsHostile(rawURL) {
		e.amazonMetadata(doc, meta)
	} else {
		e.genericMetadata(doc, meta)
	}

	if result := e.Extract(rawURL, html); result.OK {
		meta.Price = &result.Price
	}

	return meta
}

func (e *Extractor) amazonMetadata(doc *goquery.Document, meta *models.ProductMetadata) {
	meta.Title = strings.TrimSpace(doc.Find("#productTitle").First().Text())

	// The landing image carries a JSON map of url -> [width, height];
	// pick the largest rendition
	img := doc.Find("#landingImage").First()
	if dynamic, ok := img.Attr("data-a-dynamic-image"); ok {
		var sizes map[string][]float64
		if err := json.Unmarshal([]byte(dynamic), &sizes); err == nil {
			var bestArea float64
			for url, dims := range sizes {
				area := 0.0
				if len(dims) >= 2 {
					area = dims[0] * dims[1]
				}
				if area >= bestArea {
					bestArea = area
					meta.ImageURL = url
				}
			}
		}
	}
	if meta.ImageURL == "" {
		meta.ImageURL = img.AttrOr("src", "")
	}

	if meta.Title == "" || meta.ImageURL == "" {
		e.genericMetadata(doc, meta)
	}
}

func (e *Extractor) genericMetadata(doc *goquery.Document, meta *models.ProductMetadata) {
	metaContent := func(selectors ...string) string {
		for _, sel := range selectors {
			if content, ok := doc.Find(sel).First().Attr("content"); ok && content != "" {
				return strings.TrimSpace(content)
			}
		}
		return ""
	}

	if meta.Title == "" {
		meta.Title = metaContent(`meta[property="og:title"]`)
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	if meta.ImageURL == "" {
		meta.ImageURL = metaContent(`meta[property="og:image"]`, `meta[name="twitter:image"]`)
	}

	if meta.Description == "" {
		meta.Description = metaContent(`meta[property="og:description"]`, `meta[name="description"]`)
	}
}
