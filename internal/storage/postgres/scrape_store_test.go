package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/lettingsradar/zoopla-scraper/internal/storage"
)

func TestStoreScrapeInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewScrapeStoreWithPool(mock, "scrapes", "listings")
	require.NoError(t, err)

	started := time.Unix(1700000000, 0).UTC()
	finished := started.Add(7 * time.Second)

	rec := storage.ScrapeRecord{
		ID:         "uuid-v7",
		Status:     "ok",
		URL:        "https://www.zoopla.co.uk/to-rent/property/york/?search_source=to-rent",
		Count:      12,
		Screenshot: "file:///tmp/zoopla_srp_1700000000.png",
		StartedAt:  started,
		FinishedAt: finished,
	}

	mock.ExpectExec("INSERT INTO scrapes").
		WithArgs(
			rec.ID,
			rec.Status,
			rec.URL,
			rec.Count,
			rec.Note,
			rec.Screenshot,
			rec.StartedAt,
			rec.FinishedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.StoreScrape(context.Background(), rec)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreScrapeRequiresID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewScrapeStoreWithPool(mock, "", "")
	require.NoError(t, err)

	err = store.StoreScrape(context.Background(), storage.ScrapeRecord{})
	require.Error(t, err)
}

func TestStoreListingsUpsertsPerRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewScrapeStoreWithPool(mock, "scrapes", "listings")
	require.NoError(t, err)

	seen := time.Unix(1700000000, 0).UTC()
	price := 795
	postcode := "RG1 2AB"

	rows := []storage.ListingRecord{
		{
			Fingerprint: "fp-1",
			ScrapeID:    "uuid-v7",
			Title:       "Double room in shared flat",
			PriceGBP:    &price,
			Address:     "12 High St, Reading RG1 2AB",
			Postcode:    &postcode,
			URL:         "https://www.zoopla.co.uk/to-rent/details/123",
			Features:    []string{"Bills included", "Furnished"},
			Source:      "zoopla",
			SeenAt:      seen,
		},
		{
			Fingerprint: "fp-2",
			ScrapeID:    "uuid-v7",
			Title:       "Studio without a listed price",
			Address:     "The Old Mill, Riverside",
			Source:      "zoopla",
			SeenAt:      seen,
		},
	}

	for _, l := range rows {
		featuresJSON := []byte(`[]`)
		if len(l.Features) > 0 {
			featuresJSON = []byte(`["Bills included","Furnished"]`)
		}
		mock.ExpectExec("INSERT INTO listings").
			WithArgs(
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
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	err = store.StoreListings(context.Background(), rows)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListingsRequiresFingerprint(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewScrapeStoreWithPool(mock, "", "")
	require.NoError(t, err)

	err = store.StoreListings(context.Background(), []storage.ListingRecord{{Title: "no fingerprint"}})
	require.Error(t, err)
}

func TestNewScrapeStoreRejectsBadTableName(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewScrapeStoreWithPool(mock, "scrapes; drop table", "listings")
	require.Error(t, err)
}
