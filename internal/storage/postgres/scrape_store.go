// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lettingsradar/zoopla-scraper/internal/storage"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ScrapeStoreConfig controls the Postgres connection pool used for scrape
// and listing rows.
type ScrapeStoreConfig struct {
	DSN             string
	ScrapesTable    string
	ListingsTable   string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// ScrapeStore writes scrape and listing rows into Postgres.
type ScrapeStore struct {
	pool          execCloser
	scrapesTable  string
	listingsTable string
}

// NewScrapeStore creates a Postgres-backed ScrapeStore using the provided config.
func NewScrapeStore(ctx context.Context, cfg ScrapeStoreConfig) (*ScrapeStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newScrapeStore(pool, cfg.ScrapesTable, cfg.ListingsTable)
}

// NewScrapeStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewScrapeStoreWithPool(pool execCloser, scrapesTable, listingsTable string) (*ScrapeStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return newScrapeStore(pool, scrapesTable, listingsTable)
}

func newScrapeStore(pool execCloser, scrapesTable, listingsTable string) (*ScrapeStore, error) {
	if scrapesTable == "" {
		scrapesTable = "scrapes"
	}
	if listingsTable == "" {
		listingsTable = "listings"
	}
	for _, table := range []string{scrapesTable, listingsTable} {
		if !validTableName.MatchString(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return &ScrapeStore{
		pool:          pool,
		scrapesTable:  scrapesTable,
		listingsTable: listingsTable,
	}, nil
}

// Close releases the underlying pool resources.
func (s *ScrapeStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// StoreScrape inserts one scrape row.
func (s *ScrapeStore) StoreScrape(ctx context.Context, record storage.ScrapeRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("scrape store is not configured")
	}
	if record.ID == "" {
		return fmt.Errorf("record id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	status,
	search_url,
	listing_count,
	note,
	screenshot,
	started_at,
	finished_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)`, s.scrapesTable)

	args := []any{
		record.ID,
		record.Status,
		record.URL,
		record.Count,
		record.Note,
		record.Screenshot,
		record.StartedAt,
		record.FinishedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert scrape: %w", err)
	}
	return nil
}

// StoreListings inserts one row per listing. Rows whose fingerprint already
// exists are updated in place so repeated scrapes refresh rather than
// duplicate.
func (s *ScrapeStore) StoreListings(ctx context.Context, listings []storage.ListingRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("scrape store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	fingerprint,
	scrape_id,
	title,
	price_gbp,
	address,
	postcode,
	listing_url,
	summary,
	features,
	image_url,
	source,
	seen_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)
ON CONFLICT (fingerprint) DO UPDATE SET
	scrape_id = EXCLUDED.scrape_id,
	price_gbp = EXCLUDED.price_gbp,
	summary = EXCLUDED.summary,
	features = EXCLUDED.features,
	image_url = EXCLUDED.image_url,
	seen_at = EXCLUDED.seen_at`, s.listingsTable)

	for _, l := range listings {
		if l.Fingerprint == "" {
			return fmt.Errorf("listing fingerprint is required")
		}
		featuresJSON, err := json.Marshal(normalizeFeatures(l.Features))
		if err != nil {
			return fmt.Errorf("marshal features: %w", err)
		}
		args := []any{
			l.Fingerprint,
			l.ScrapeID,
			l.Title,
			l.PriceGBP,
			l.Address,
			l.Postcode,
			l.URL,
			l.Summary,
			featuresJSON,
			l.Image,
			l.Source,
			l.SeenAt,
		}
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert listing %s: %w", l.Fingerprint, err)
		}
	}
	return nil
}

func normalizeFeatures(features []string) []string {
	if len(features) == 0 {
		return []string{}
	}
	return append([]string(nil), features...)
}
