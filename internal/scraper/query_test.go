package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func TestBuildSearchURLIsDeterministic(t *testing.T) {
	q := SearchQuery{
		Location:     "Reading RG2",
		PriceMin:     intPtr(500),
		PriceMax:     intPtr(800),
		Furnished:    boolPtr(true),
		RoomInShared: true,
		Page:         3,
	}
	first := BuildSearchURL(q)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildSearchURL(q))
	}
}

func TestBuildSearchURL(t *testing.T) {
	tests := []struct {
		name  string
		query SearchQuery
		want  string
	}{
		{
			name: "furnished house share with max price",
			query: SearchQuery{
				Location:     "Reading RG2",
				PriceMax:     intPtr(800),
				Furnished:    boolPtr(true),
				RoomInShared: true,
			},
			want: "https://www.zoopla.co.uk/to-rent/property/reading-rg2/?search_source=to-rent&price_max=800&furnished_state=furnished&property_type=house-share",
		},
		{
			name: "second page keeps pn parameter last",
			query: SearchQuery{
				Location:     "Reading RG2",
				PriceMax:     intPtr(800),
				Furnished:    boolPtr(true),
				RoomInShared: true,
				Page:         2,
			},
			want: "https://www.zoopla.co.uk/to-rent/property/reading-rg2/?search_source=to-rent&price_max=800&furnished_state=furnished&property_type=house-share&pn=2",
		},
		{
			name: "unfurnished with min price only",
			query: SearchQuery{
				Location:  "Leeds City Centre",
				PriceMin:  intPtr(450),
				Furnished: boolPtr(false),
			},
			want: "https://www.zoopla.co.uk/to-rent/property/leeds-city-centre/?search_source=to-rent&price_min=450&furnished_state=unfurnished",
		},
		{
			name:  "bare location omits every optional parameter",
			query: SearchQuery{Location: "York"},
			want:  "https://www.zoopla.co.uk/to-rent/property/york/?search_source=to-rent",
		},
		{
			name:  "page one is never emitted",
			query: SearchQuery{Location: "York", Page: 1},
			want:  "https://www.zoopla.co.uk/to-rent/property/york/?search_source=to-rent",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BuildSearchURL(tc.query))
		})
	}
}

func TestSlugifyCollapsesWhitespaceRuns(t *testing.T) {
	assert.Equal(t, "leeds-city-centre", Slugify("  Leeds   City\tCentre "))
	assert.Equal(t, "reading-rg2", Slugify("Reading RG2"))
	assert.Equal(t, "", Slugify("   "))
}

func TestBuildSearchURLUsesSlugInPath(t *testing.T) {
	got := BuildSearchURL(SearchQuery{Location: "Milton   Keynes"})
	assert.Contains(t, got, "/to-rent/property/milton-keynes/")
}
