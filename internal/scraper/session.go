package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const acceptLanguage = "en-GB"

// session is the surface of one browser page that the scrape pipeline
// drives. Faking it in tests lets teardown and short-circuit behavior be
// verified without a browser.
type session interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	AwaitSelector(ctx context.Context, selector string, timeout time.Duration) error
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close()
}

// SessionConfig controls browser launch options for one scrape call.
type SessionConfig struct {
	Headless  bool
	Sandbox   bool
	UserAgent string
}

// browserSession owns a dedicated Chrome process and page for the duration
// of one scrape call. Nothing is shared across calls.
type browserSession struct {
	allocCancel context.CancelFunc
	pageCtx     context.Context
	pageCancel  context.CancelFunc
	userAgent   string
	closeOnce   sync.Once
	logger      *zap.Logger
}

// newBrowserSession launches a browser with a fixed desktop viewport and an
// en-GB locale. The returned session must be closed on every exit path.
func newBrowserSession(ctx context.Context, cfg SessionConfig, logger *zap.Logger) (*browserSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", !cfg.Sandbox),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("lang", acceptLanguage),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1280, 900),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	pageCtx, pageCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so launch failures surface here rather than
	// mid-pipeline.
	if err := chromedp.Run(pageCtx); err != nil {
		pageCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	return &browserSession{
		allocCancel: allocCancel,
		pageCtx:     pageCtx,
		pageCancel:  pageCancel,
		userAgent:   cfg.UserAgent,
		logger:      logger,
	}, nil
}

// Navigate loads the URL and waits only until the DOM is parsed, bounding
// latency instead of waiting for network idle.
func (s *browserSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	opCtx, cancel := s.opContext(ctx, timeout)
	defer cancel()

	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(s.userAgent).WithAcceptLanguage(acceptLanguage),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if err := chromedp.Run(opCtx, tasks); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// AwaitSelector waits for the first element matching selector to be ready.
// Callers decide whether a timeout here is fatal.
func (s *browserSession) AwaitSelector(ctx context.Context, selector string, timeout time.Duration) error {
	opCtx, cancel := s.opContext(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(opCtx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("await %q: %w", selector, err)
	}
	return nil
}

// HTML returns the current rendered DOM.
func (s *browserSession) HTML(ctx context.Context) (string, error) {
	opCtx, cancel := s.opContext(ctx, 10*time.Second)
	defer cancel()

	var html string
	if err := chromedp.Run(opCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("capture dom: %w", err)
	}
	return html, nil
}

// Screenshot captures a full-page PNG.
func (s *browserSession) Screenshot(ctx context.Context) ([]byte, error) {
	opCtx, cancel := s.opContext(ctx, 15*time.Second)
	defer cancel()

	var png []byte
	if err := chromedp.Run(opCtx, chromedp.FullScreenshot(&png, 90)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return png, nil
}

// Close tears down the page and the browser process. It is idempotent and
// safe to defer alongside explicit early closes.
func (s *browserSession) Close() {
	s.closeOnce.Do(func() {
		s.pageCancel()
		s.allocCancel()
	})
}

// opContext bounds a browser operation by timeout and forwards cancellation
// from the caller's context, which is not an ancestor of the page context.
func (s *browserSession) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(s.pageCtx, timeout)
	stop := forwardCancel(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

// forwardCancel propagates parent's cancellation to cancel until the
// returned stop function is called.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
