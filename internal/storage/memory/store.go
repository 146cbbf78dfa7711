// Package memory keeps scrape records in-memory for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/lettingsradar/zoopla-scraper/internal/storage"
)

// Store holds records in slices and maps keyed by fingerprint.
type Store struct {
	mu       sync.RWMutex
	scrapes  []storage.ScrapeRecord
	listings map[string]storage.ListingRecord
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{listings: make(map[string]storage.ListingRecord)}
}

// StoreScrape appends one scrape record.
func (s *Store) StoreScrape(_ context.Context, record storage.ScrapeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrapes = append(s.scrapes, record)
	return nil
}

// StoreListings upserts listings by fingerprint, mirroring the Postgres
// store's conflict behavior.
func (s *Store) StoreListings(_ context.Context, listings []storage.ListingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range listings {
		s.listings[l.Fingerprint] = l
	}
	return nil
}

// Close implements storage.Store.
func (s *Store) Close() {}

// Scrapes returns a copy of the recorded scrapes.
func (s *Store) Scrapes() []storage.ScrapeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.ScrapeRecord, len(s.scrapes))
	copy(out, s.scrapes)
	return out
}

// Listing returns the stored listing for a fingerprint.
func (s *Store) Listing(fingerprint string) (storage.ListingRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[fingerprint]
	return l, ok
}
