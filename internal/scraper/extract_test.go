package scraper

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureSRP = `<html><body>
<div data-testid="regular-listings">
	<article>
		<h2>Double room in shared flat</h2>
		<span data-testid="listing-price">£795 pcm</span>
		<address>12 High St, Reading RG1 2AB</address>
		<a href="/to-rent/details/123">View</a>
		<p>Bright double room close to the station.</p>
		<ul><li>Bills included</li><li>Furnished</li></ul>
		<img src="https://img.example.com/a1.jpg">
	</article>
	<article>
		<h2>Studio without a listed price</h2>
		<address>The Old Mill, Riverside</address>
		<a href="https://www.zoopla.co.uk/to-rent/details/456">View</a>
	</article>
	<article>
		<h2>Room with no link</h2>
		<span data-testid="listing-price">£1,200 pcm</span>
		<address>8 Mill Lane, Leeds LS1 4DY</address>
		<ul>
			<li>One</li><li>Two</li><li>Three</li><li>Four</li>
			<li>Five</li><li>Six</li><li>Seven</li><li>Eight</li>
			<li>Ninth feature past the cap</li>
		</ul>
	</article>
</div>
</body></html>`

func TestExtractListingsFaultTolerantPerField(t *testing.T) {
	doc := docFromHTML(t, fixtureSRP)
	listings := extractListings(doc, DefaultProfile())
	require.Len(t, listings, 3)

	full := listings[0]
	assert.Equal(t, "Double room in shared flat", full.Title)
	require.NotNil(t, full.PriceGBP)
	assert.Equal(t, 795, *full.PriceGBP)
	assert.Equal(t, "12 High St, Reading RG1 2AB", full.Address)
	require.NotNil(t, full.Postcode)
	assert.Equal(t, "RG1 2AB", *full.Postcode)
	assert.Equal(t, "https://www.zoopla.co.uk/to-rent/details/123", full.URL)
	require.NotNil(t, full.Summary)
	require.NotNil(t, full.Image)
	assert.Equal(t, "https://img.example.com/a1.jpg", *full.Image)
	assert.Equal(t, Source, full.Source)

	// Missing price must not disturb sibling fields.
	noPrice := listings[1]
	assert.Equal(t, "Studio without a listed price", noPrice.Title)
	assert.Nil(t, noPrice.PriceGBP)
	assert.Nil(t, noPrice.Postcode)
	assert.Equal(t, "https://www.zoopla.co.uk/to-rent/details/456", noPrice.URL)

	// Missing link must not disturb the price.
	noLink := listings[2]
	assert.Equal(t, "Room with no link", noLink.Title)
	require.NotNil(t, noLink.PriceGBP)
	assert.Equal(t, 1200, *noLink.PriceGBP)
	assert.Equal(t, "", noLink.URL)
	require.NotNil(t, noLink.Postcode)
	assert.Equal(t, "LS1 4DY", *noLink.Postcode)
}

func TestExtractListingsCapsFeatures(t *testing.T) {
	doc := docFromHTML(t, fixtureSRP)
	listings := extractListings(doc, DefaultProfile())
	require.Len(t, listings, 3)

	features := listings[2].Features
	assert.Len(t, features, maxFeatures)
	assert.NotContains(t, features, "Ninth feature past the cap")
}

func TestExtractListingsEmptyPage(t *testing.T) {
	doc := docFromHTML(t, `<html><body><main><p>No results found.</p></main></body></html>`)
	listings := extractListings(doc, DefaultProfile())
	assert.Empty(t, listings)
	assert.NotNil(t, listings)
}

func TestExtractListingsMalformedCardSelector(t *testing.T) {
	doc := docFromHTML(t, fixtureSRP)
	p := DefaultProfile()
	p.Card = "article[["

	listings := extractListings(doc, p)
	assert.Empty(t, listings)
}

func TestExtractListingsManyCards(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<html><body><div data-testid="regular-listings">`)
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&b, `<article><h2>Room %d</h2><span data-testid="listing-price">£%d pcm</span><a href="/to-rent/details/%d">View</a></article>`, i, 500+i, i)
	}
	b.WriteString(`</div></body></html>`)

	doc := docFromHTML(t, b.String())
	listings := extractListings(doc, DefaultProfile())
	require.Len(t, listings, 25)
	require.NotNil(t, listings[24].PriceGBP)
	assert.Equal(t, 524, *listings[24].PriceGBP)
	assert.Equal(t, "https://www.zoopla.co.uk/to-rent/details/24", listings[24].URL)
}
