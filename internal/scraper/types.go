package scraper

// Source identifies the originating site on every Listing.
const Source = "zoopla"

// Status is the terminal outcome of one scrape call.
type Status string

// The closed set of scrape outcomes. No other values are produced.
const (
	StatusOK      Status = "ok"
	StatusCaptcha Status = "captcha"
	StatusError   Status = "error"
)

// SearchQuery captures the caller-supplied search parameters for one call.
// Nil pointer fields mean the parameter was not specified and is omitted
// from the built URL rather than defaulted.
type SearchQuery struct {
	Location     string `json:"location"`
	PriceMin     *int   `json:"price_min,omitempty"`
	PriceMax     *int   `json:"price_max,omitempty"`
	Furnished    *bool  `json:"furnished,omitempty"`
	RoomInShared bool   `json:"room_in_shared"`
	Page         int    `json:"page"`
}

// Listing is one property card parsed from the results page. All fields
// except Source are independently optional; a missing price never implies a
// missing link and vice versa.
type Listing struct {
	Title    string   `json:"title"`
	PriceGBP *int     `json:"price_gbp"`
	Address  string   `json:"address"`
	Postcode *string  `json:"postcode"`
	URL      string   `json:"url"`
	Summary  *string  `json:"summary"`
	Features []string `json:"features"`
	Image    *string  `json:"image"`
	Source   string   `json:"source"`
}

// ScrapeResult is the outcome record returned to the caller. Note is set
// only on errors; Screenshot is set when diagnostics were requested or an
// anomaly occurred and a capture succeeded.
type ScrapeResult struct {
	Status     Status    `json:"status"`
	URL        string    `json:"url"`
	Count      int       `json:"count"`
	Listings   []Listing `json:"listings"`
	Note       string    `json:"note,omitempty"`
	Screenshot string    `json:"screenshot,omitempty"`
}
