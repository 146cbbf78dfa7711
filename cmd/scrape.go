package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lettingsradar/zoopla-scraper/internal/scraper"
)

type scrapeFlags struct {
	location     string
	priceMin     int
	priceMax     int
	furnished    bool
	roomInShared bool
	page         int
	profilePath  string
	headless     bool
	screenshot   bool
	timeout      time.Duration
}

// newScrapeCmd creates the one-shot 'scrape' subcommand. It runs a single
// search page scrape and prints the result as JSON on stdout.
func newScrapeCmd() *cobra.Command {
	var flags scrapeFlags

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape one search results page and print the result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrape(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.location, "location", "", "search location, e.g. \"Reading RG2\"")
	cmd.Flags().IntVar(&flags.priceMin, "price-min", 0, "minimum monthly price in GBP")
	cmd.Flags().IntVar(&flags.priceMax, "price-max", 0, "maximum monthly price in GBP")
	cmd.Flags().BoolVar(&flags.furnished, "furnished", false, "filter furnished (true) or unfurnished (false); omit for either")
	cmd.Flags().BoolVar(&flags.roomInShared, "room-in-shared", true, "restrict to rooms in shared properties")
	cmd.Flags().IntVar(&flags.page, "page", 1, "results page number")
	cmd.Flags().StringVar(&flags.profilePath, "profile", "", "selector profile override file")
	cmd.Flags().BoolVar(&flags.headless, "headless", true, "run the browser headless")
	cmd.Flags().BoolVar(&flags.screenshot, "screenshot", false, "capture a screenshot of the page")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "navigation timeout, e.g. 45s")
	_ = cmd.MarkFlagRequired("location")

	return cmd
}

func runScrape(cmd *cobra.Command, flags scrapeFlags) error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	s, err := buildScraper(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	query := scraper.SearchQuery{
		Location:     flags.location,
		RoomInShared: flags.roomInShared,
		Page:         flags.page,
	}
	if cmd.Flags().Changed("price-min") {
		query.PriceMin = &flags.priceMin
	}
	if cmd.Flags().Changed("price-max") {
		query.PriceMax = &flags.priceMax
	}
	if cmd.Flags().Changed("furnished") {
		query.Furnished = &flags.furnished
	}

	opts := scraper.Options{
		ProfilePath: flags.profilePath,
		Timeout:     flags.timeout,
	}
	if cmd.Flags().Changed("headless") {
		opts.Headless = &flags.headless
	}
	if cmd.Flags().Changed("screenshot") {
		opts.TakeScreenshot = &flags.screenshot
	}

	result := s.Scrape(cmd.Context(), query, opts)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	cmd.Println(string(out))

	if result.Status == scraper.StatusError {
		return fmt.Errorf("scrape failed: %s", result.Note)
	}
	return nil
}
