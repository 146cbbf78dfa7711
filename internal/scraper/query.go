package scraper

import (
	"fmt"
	"strings"
)

const (
	siteOrigin     = "https://www.zoopla.co.uk"
	searchBasePath = siteOrigin + "/to-rent/property/"
)

// Slugify lowercases a free-text location and collapses whitespace runs into
// single hyphens, producing a URL-safe path segment.
func Slugify(location string) string {
	return strings.Join(strings.Fields(strings.ToLower(location)), "-")
}

// BuildSearchURL constructs the search results URL for a query. It is a pure
// function: identical queries always produce byte-identical URLs, and the
// parameter order is fixed. Absent optional parameters are omitted, never
// defaulted.
func BuildSearchURL(q SearchQuery) string {
	var b strings.Builder
	b.WriteString(searchBasePath)
	b.WriteString(Slugify(q.Location))
	b.WriteString("/?search_source=to-rent")

	if q.PriceMin != nil {
		fmt.Fprintf(&b, "&price_min=%d", *q.PriceMin)
	}
	if q.PriceMax != nil {
		fmt.Fprintf(&b, "&price_max=%d", *q.PriceMax)
	}
	if q.Furnished != nil {
		if *q.Furnished {
			b.WriteString("&furnished_state=furnished")
		} else {
			b.WriteString("&furnished_state=unfurnished")
		}
	}
	if q.RoomInShared {
		b.WriteString("&property_type=house-share")
	}
	if q.Page > 1 {
		fmt.Fprintf(&b, "&pn=%d", q.Page)
	}
	return b.String()
}
