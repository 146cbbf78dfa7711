// Package storage defines the persistence records and interface for scrape
// outcomes. Implementations live in subpackages.
package storage

import (
	"context"
	"time"
)

// ScrapeRecord is one completed scrape call, whatever its outcome.
type ScrapeRecord struct {
	ID         string
	Status     string
	URL        string
	Count      int
	Note       string
	Screenshot string
	StartedAt  time.Time
	FinishedAt time.Time
}

// ListingRecord is one extracted listing tied to the scrape that saw it.
// Fingerprint identifies the same listing across repeated scrapes.
type ListingRecord struct {
	ScrapeID    string
	Fingerprint string
	Title       string
	PriceGBP    *int
	Address     string
	Postcode    *string
	URL         string
	Summary     *string
	Features    []string
	Image       *string
	Source      string
	SeenAt      time.Time
}

// Store persists scrape outcomes and their listings.
type Store interface {
	StoreScrape(ctx context.Context, record ScrapeRecord) error
	StoreListings(ctx context.Context, listings []ListingRecord) error
	Close()
}

// Noop discards everything. Used when no database is configured.
type Noop struct{}

// StoreScrape implements Store.
func (Noop) StoreScrape(context.Context, ScrapeRecord) error { return nil }

// StoreListings implements Store.
func (Noop) StoreListings(context.Context, []ListingRecord) error { return nil }

// Close implements Store.
func (Noop) Close() {}
