package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

var (
	pricePattern    = regexp.MustCompile(`£\s*([\d,]+)`)
	postcodePattern = regexp.MustCompile(`(?i)\b([A-Z]{1,2}\d{1,2}[A-Z]?)\s?(\d[A-Z]{2})\b`)
)

// collapseWhitespace trims text and squashes internal whitespace runs into
// single spaces, matching how rendered card text is normalized.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParsePriceGBP extracts the first currency-prefixed integer from a price
// string such as "£795 pcm" or "£1,200 pw". Digit grouping commas are
// removed. It returns nil when no pound-prefixed number is present: a missing
// price is reported as absent, never guessed.
func ParsePriceGBP(text string) *int {
	m := pricePattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return nil
	}
	return &n
}

// ExtractPostcode finds a UK-shaped postcode within an address and returns
// it uppercased, or nil when the address contains no postcode shape.
func ExtractPostcode(address string) *string {
	m := postcodePattern.FindString(address)
	if m == "" {
		return nil
	}
	pc := strings.ToUpper(m)
	return &pc
}

// absoluteLink prefixes site-relative hrefs with the fixed site origin.
// Already-absolute links pass through unchanged.
func absoluteLink(href string) string {
	if strings.HasPrefix(href, "/") {
		return siteOrigin + href
	}
	return href
}

// findSafe matches selector under root, treating malformed selectors as
// matching nothing. goquery's Find panics on selectors cascadia cannot
// compile, and a broken selector in an override profile must degrade to an
// absent field rather than abort the scrape.
func findSafe(root *goquery.Selection, selector string) *goquery.Selection {
	if selector == "" {
		return root.Slice(0, 0)
	}
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return root.Slice(0, 0)
	}
	return root.FindMatcher(matcher)
}
