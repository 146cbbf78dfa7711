package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lettingsradar/zoopla-scraper/internal/api"
	"github.com/lettingsradar/zoopla-scraper/internal/clock/system"
	"github.com/lettingsradar/zoopla-scraper/internal/config"
	"github.com/lettingsradar/zoopla-scraper/internal/hash/sha256"
	"github.com/lettingsradar/zoopla-scraper/internal/id/uuid"
	"github.com/lettingsradar/zoopla-scraper/internal/publisher"
	pubsubpublisher "github.com/lettingsradar/zoopla-scraper/internal/publisher/pubsub"
	"github.com/lettingsradar/zoopla-scraper/internal/service"
	"github.com/lettingsradar/zoopla-scraper/internal/storage"
	storagepostgres "github.com/lettingsradar/zoopla-scraper/internal/storage/postgres"
)

// newServeCmd creates the 'serve' subcommand, running the scraper as an
// HTTP service with persistence and event publishing when configured.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scraper as an HTTP service",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := buildScraper(ctx, cfg, logger)
	if err != nil {
		return err
	}

	store, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	pub, closePub, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closePub()

	svc := service.New(
		s,
		store,
		pub,
		cfg.PubSub.Topic,
		uuid.New(),
		sha256.New(),
		system.New(),
		logger.Named("service"),
	)

	apiServer := api.NewServer(svc, cfg, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}

func buildStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Store, error) {
	if cfg.DB.DSN == "" {
		logger.Info("no database configured; scrape records will not be persisted")
		return storage.Noop{}, nil
	}
	store, err := storagepostgres.NewScrapeStore(ctx, storagepostgres.ScrapeStoreConfig{
		DSN:             cfg.DB.DSN,
		ScrapesTable:    cfg.DB.ScrapesTable,
		ListingsTable:   cfg.DB.ListingsTable,
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: time.Duration(cfg.DB.MaxConnLifeSec) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("init postgres store: %w", err)
	}
	return store, nil
}

func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (publisher.Publisher, func(), error) {
	if cfg.PubSub.ProjectID == "" {
		logger.Info("no pubsub project configured; scrape events will not be published")
		return publisher.Noop{}, func() {}, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("create pubsub client: %w", err)
	}
	pub, err := pubsubpublisher.New(client)
	if err != nil {
		return nil, nil, fmt.Errorf("init publisher: %w", err)
	}
	closer := func() {
		pub.Close()
		if cerr := client.Close(); cerr != nil {
			logger.Warn("pubsub client close failed", zap.Error(cerr))
		}
	}
	return pub, closer, nil
}
