package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxPlausiblePrice is the upper sanity bound for any parsed price
const MaxPlausiblePrice = 1000000

var nonPriceChars = regexp.MustCompile(`[^\d.,\s]`)

// priceRange matches a dash between two digit groups, spaced or not, with
// room for a currency symbol on the upper bound ("$10.99-$20.99")
var priceRange = regexp.MustCompile(`\d\s*[-–—]\s*[^\d\s]{0,3}\s*\d`)

// ParsePrice normalizes a price string to a float64. It handles currency
// symbols, ranges ("$10 - $20" and "$10-20" take the lower bound), and both
// US (1,234.56) and European (1.234,56) separator conventions.
//
// Disambiguation rules: if both separators are present, the right-most one
// is the decimal point; a lone comma followed by exactly two digits is a
// decimal point, otherwise a thousands separator. Returns false for
// non-numeric input, negative values, and values over 1,000,000.
func ParsePrice(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	if strings.HasPrefix(text, "-") {
		return 0, false
	}

	// Ranges: take the lower bound. The dash variant must be cut before
	// cleaning strips the dash and concatenates both bounds.
	if idx := strings.Index(text, " to "); idx > 0 {
		text = text[:idx]
	}
	if loc := priceRange.FindStringIndex(text); loc != nil {
		text = text[:loc[0]+1]
	}

	cleaned := strings.TrimSpace(nonPriceChars.ReplaceAllString(text, ""))
	if cleaned == "" {
		return 0, false
	}
	// Collapse internal whitespace (European thousands: "1 234,56")
	cleaned = strings.Join(strings.Fields(cleaned), "")

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// European: 1.234,56
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			// US: 1,234.56
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		digitsAfter := len(cleaned) - lastComma - 1
		if digitsAfter == 2 && strings.Count(cleaned, ",") == 1 {
			// 1234,56 reads as a decimal
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if value < 0 || value > MaxPlausiblePrice {
		return 0, false
	}

	return value, true
}
