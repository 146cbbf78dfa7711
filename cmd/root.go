// Package cmd defines and implements the CLI commands for the scraper
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lettingsradar/zoopla-scraper/internal/artifacts"
	artifactsgcs "github.com/lettingsradar/zoopla-scraper/internal/artifacts/gcs"
	artifactslocal "github.com/lettingsradar/zoopla-scraper/internal/artifacts/local"
	"github.com/lettingsradar/zoopla-scraper/internal/clock/system"
	"github.com/lettingsradar/zoopla-scraper/internal/config"
	"github.com/lettingsradar/zoopla-scraper/internal/logging"
	"github.com/lettingsradar/zoopla-scraper/internal/preflight"
	"github.com/lettingsradar/zoopla-scraper/internal/scraper"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zoopla-scraper",
		Short: "A polite, fail-safe scraper for Zoopla rental search pages.",
		Long: `zoopla-scraper fetches one Zoopla to-rent search results page at a
time through a real browser, extracts the listing cards it finds, and
reports a closed set of outcomes: ok, captcha, or error. It backs off
the moment an anti-bot challenge appears and never retries through it.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfigAndLogger() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return cfg, logger, nil
}

// buildScraper assembles the scrape pipeline from configuration: artifact
// store, preflight checks, clock, and the scraper itself.
func buildScraper(ctx context.Context, cfg config.Config, logger *zap.Logger) (*scraper.Scraper, error) {
	shots, err := buildArtifactStore(ctx, cfg.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("init artifact store: %w", err)
	}

	var pre scraper.Preflight
	if cfg.Preflight.RespectRobots || cfg.Preflight.Probe {
		checker, err := preflight.New(preflight.Config{
			RespectRobots: cfg.Preflight.RespectRobots,
			Probe:         cfg.Preflight.Probe,
			UserAgent:     cfg.Scraper.UserAgent,
			Timeout:       time.Duration(cfg.Preflight.TimeoutSeconds) * time.Second,
		}, logger.Named("preflight"))
		if err != nil {
			return nil, fmt.Errorf("init preflight: %w", err)
		}
		pre = checker
	}

	delayMin, delayMax := cfg.Scraper.DelayBounds()
	return scraper.New(scraper.Config{
		UserAgent:        cfg.Scraper.UserAgent,
		Headless:         cfg.Scraper.Headless,
		Sandbox:          cfg.Scraper.Sandbox,
		NavTimeout:       cfg.Scraper.NavTimeout(),
		StabilizeTimeout: cfg.Scraper.StabilizeTimeout(),
		DelayMin:         delayMin,
		DelayMax:         delayMax,
		TakeScreenshot:   cfg.Scraper.TakeScreenshot,
	},
		scraper.LoadProfile(cfg.Scraper.ProfilePath, logger),
		shots,
		pre,
		system.New(),
		logger.Named("scraper"),
	), nil
}

func buildArtifactStore(ctx context.Context, cfg config.ArtifactsConfig) (artifacts.Store, error) {
	switch cfg.Provider {
	case "local":
		return artifactslocal.New(artifactslocal.Config{BaseDir: cfg.BaseDir})
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create GCS client: %w", err)
		}
		return artifactsgcs.New(ctx, client, artifactsgcs.Config{
			Bucket: cfg.GCSBucket,
			Prefix: cfg.GCSPrefix,
		})
	case "noop":
		return artifacts.Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown artifacts provider %q", cfg.Provider)
	}
}
