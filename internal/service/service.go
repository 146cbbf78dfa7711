// Package service glues the scrape pipeline to persistence and event
// publishing. The scrape outcome is authoritative; downstream failures are
// logged and never change what the caller sees.
package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lettingsradar/zoopla-scraper/internal/publisher"
	"github.com/lettingsradar/zoopla-scraper/internal/scraper"
	"github.com/lettingsradar/zoopla-scraper/internal/storage"
)

// Scraper runs one scrape call.
type Scraper interface {
	Scrape(ctx context.Context, query scraper.SearchQuery, opts scraper.Options) scraper.ScrapeResult
}

// IDGenerator mints scrape IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Fingerprinter derives a stable identity for a listing's parts.
type Fingerprinter interface {
	Fingerprint(parts ...string) (string, error)
}

// Service runs scrapes and records their outcomes.
type Service struct {
	runner Scraper
	store  storage.Store
	pub    publisher.Publisher
	topic  string
	ids    IDGenerator
	prints Fingerprinter
	clock  scraper.Clock
	logger *zap.Logger
}

// New constructs a Service. store and pub may be nil, disabling persistence
// and publishing respectively.
func New(
	runner Scraper,
	store storage.Store,
	pub publisher.Publisher,
	topic string,
	ids IDGenerator,
	prints Fingerprinter,
	clock scraper.Clock,
	logger *zap.Logger,
) *Service {
	if store == nil {
		store = storage.Noop{}
	}
	if pub == nil {
		pub = publisher.Noop{}
	}
	return &Service{
		runner: runner,
		store:  store,
		pub:    pub,
		topic:  topic,
		ids:    ids,
		prints: prints,
		clock:  clock,
		logger: logger,
	}
}

// Run executes one scrape and records the outcome. The returned ID ties the
// HTTP response to the persisted record and the published event.
func (s *Service) Run(ctx context.Context, query scraper.SearchQuery, opts scraper.Options) (string, scraper.ScrapeResult) {
	scrapeID, err := s.ids.NewID()
	if err != nil {
		s.logger.Warn("Scrape ID generation failed", zap.Error(err))
		scrapeID = "scrape-" + strconv.FormatInt(s.clock.Now().UnixNano(), 10)
	}

	started := s.clock.Now()
	result := s.runner.Scrape(ctx, query, opts)
	finished := s.clock.Now()

	s.persist(ctx, scrapeID, result, started, finished)
	s.publish(ctx, scrapeID, result, finished.Sub(started))

	return scrapeID, result
}

func (s *Service) persist(ctx context.Context, scrapeID string, result scraper.ScrapeResult, started, finished time.Time) {
	record := storage.ScrapeRecord{
		ID:         scrapeID,
		Status:     string(result.Status),
		URL:        result.URL,
		Count:      result.Count,
		Note:       result.Note,
		Screenshot: result.Screenshot,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if err := s.store.StoreScrape(ctx, record); err != nil {
		s.logger.Warn("Scrape record persistence failed",
			zap.String("scrape_id", scrapeID), zap.Error(err))
		return
	}
	if len(result.Listings) == 0 {
		return
	}

	rows := make([]storage.ListingRecord, 0, len(result.Listings))
	for _, l := range result.Listings {
		fp, err := s.prints.Fingerprint(l.Source, l.URL, l.Title, l.Address)
		if err != nil {
			s.logger.Warn("Listing fingerprint failed",
				zap.String("scrape_id", scrapeID), zap.Error(err))
			continue
		}
		rows = append(rows, storage.ListingRecord{
			ScrapeID:    scrapeID,
			Fingerprint: fp,
			Title:       l.Title,
			PriceGBP:    l.PriceGBP,
			Address:     l.Address,
			Postcode:    l.Postcode,
			URL:         l.URL,
			Summary:     l.Summary,
			Features:    l.Features,
			Image:       l.Image,
			Source:      l.Source,
			SeenAt:      finished,
		})
	}
	if err := s.store.StoreListings(ctx, rows); err != nil {
		s.logger.Warn("Listing persistence failed",
			zap.String("scrape_id", scrapeID), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, scrapeID string, result scraper.ScrapeResult, took time.Duration) {
	event := publisher.ScrapeCompleted{
		ScrapeID:   scrapeID,
		Status:     string(result.Status),
		URL:        result.URL,
		Count:      result.Count,
		Note:       result.Note,
		Screenshot: result.Screenshot,
		DurationMS: took.Milliseconds(),
		OccurredAt: s.clock.Now().Format(time.RFC3339),
	}
	if _, err := s.pub.Publish(ctx, s.topic, event); err != nil {
		s.logger.Warn("Scrape event publish failed",
			zap.String("scrape_id", scrapeID), zap.Error(err))
	}
}
