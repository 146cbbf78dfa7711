// Package scraper fetches a single Zoopla search results page with a
// headless browser and extracts the listing cards it contains. Every call is
// hermetic: it owns its browser session, never retries, and always returns a
// well-formed ScrapeResult instead of an error.
package scraper
