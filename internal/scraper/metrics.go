package scraper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// scrapesTotal counts completed scrape calls by terminal status.
	scrapesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_scrapes_total",
		Help: "Total scrape calls completed, labeled by status.",
	}, []string{"status"})

	// scrapeDuration tracks end-to-end scrape latency.
	scrapeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scraper_scrape_duration_seconds",
		Help:    "Histogram of scrape call durations.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	// listingsExtracted counts listings parsed from result pages.
	listingsExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_listings_extracted_total",
		Help: "Total listing cards successfully extracted.",
	})

	// captchaDetections counts guardrail trips.
	captchaDetections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_captcha_detections_total",
		Help: "Total scrapes aborted by the anti-bot guardrail.",
	})

	// profileOverrideFailures counts selector profile overrides that failed
	// to load and were silently replaced by the defaults.
	profileOverrideFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_profile_override_failures_total",
		Help: "Total selector profile overrides ignored due to load or parse failures.",
	})

	// stabilizationTimeouts counts soft waits for the results container that
	// expired before the container appeared.
	stabilizationTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_stabilization_timeouts_total",
		Help: "Total results-container waits that timed out before extraction.",
	})
)
