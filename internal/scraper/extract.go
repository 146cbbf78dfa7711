package scraper

import (
	"github.com/PuerkitoBio/goquery"
)

// maxFeatures caps how many feature bullets are kept per card.
const maxFeatures = 8

// extractListings walks every card on the page and extracts one Listing per
// card. Cards are processed sequentially; a single rendered-DOM pass is the
// polite way to read a page that is already resident in memory.
func extractListings(doc *goquery.Document, p Profile) []Listing {
	cards := findSafe(doc.Selection, p.Card)
	listings := make([]Listing, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		listings = append(listings, extractCard(card, p))
	})
	return listings
}

// extractCard pulls every field from one card independently: the failure or
// absence of any field leaves all sibling fields untouched.
func extractCard(card *goquery.Selection, p Profile) Listing {
	address := firstText(card, p.Address)

	var priceText string
	if t := firstTextOptional(card, p.Price); t != nil {
		priceText = *t
	}

	link := ""
	if href := firstAttr(card, p.Link, "href"); href != nil {
		link = absoluteLink(*href)
	}

	return Listing{
		Title:    firstText(card, p.Title),
		PriceGBP: ParsePriceGBP(priceText),
		Address:  address,
		Postcode: ExtractPostcode(address),
		URL:      link,
		Summary:  firstTextOptional(card, p.Summary),
		Features: extractFeatures(card, p.Features),
		Image:    firstAttr(card, p.Image, "src"),
		Source:   Source,
	}
}

// firstText returns the whitespace-collapsed text of the first match, or the
// empty string when nothing matches.
func firstText(root *goquery.Selection, selector string) string {
	if t := firstTextOptional(root, selector); t != nil {
		return *t
	}
	return ""
}

// firstTextOptional distinguishes "no match" (nil) from matched-but-empty.
func firstTextOptional(root *goquery.Selection, selector string) *string {
	match := findSafe(root, selector).First()
	if match.Length() == 0 {
		return nil
	}
	text := collapseWhitespace(match.Text())
	return &text
}

func firstAttr(root *goquery.Selection, selector, attr string) *string {
	match := findSafe(root, selector).First()
	if match.Length() == 0 {
		return nil
	}
	value, ok := match.Attr(attr)
	if !ok {
		return nil
	}
	return &value
}

func extractFeatures(root *goquery.Selection, selector string) []string {
	features := []string{}
	findSafe(root, selector).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if len(features) >= maxFeatures {
			return false
		}
		if text := collapseWhitespace(item.Text()); text != "" {
			features = append(features, text)
		}
		return true
	})
	return features
}
