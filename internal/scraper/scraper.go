package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Config carries the server-side defaults for scrape calls. Per-call Options
// may override the caller-facing knobs. The zero value of Sandbox launches
// Chrome with --no-sandbox, which containerized runs require.
type Config struct {
	UserAgent        string
	Headless         bool
	Sandbox          bool
	NavTimeout       time.Duration
	StabilizeTimeout time.Duration
	DelayMin         time.Duration
	DelayMax         time.Duration
	TakeScreenshot   bool
}

// Options are per-call overrides. Zero values mean "use the configured
// default".
type Options struct {
	ProfilePath    string
	Headless       *bool
	TakeScreenshot *bool
	Timeout        time.Duration
}

// ScreenshotSink persists a captured screenshot and returns its path or URI.
type ScreenshotSink interface {
	Save(ctx context.Context, name string, png []byte) (string, error)
}

// Preflight vets a target URL before a browser is launched. A returned error
// aborts the scrape with an error status; implementations typically check
// robots.txt and probe for outright refusals.
type Preflight interface {
	Check(ctx context.Context, rawURL string) error
}

// Clock abstracts time.Now for deterministic artifact names in tests.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now().UTC() }

// Scraper runs the scrape pipeline: build URL, launch session, navigate,
// guard, extract, aggregate. It holds no per-call state; concurrent calls
// are safe and each owns its own browser.
type Scraper struct {
	cfg     Config
	profile Profile
	shots   ScreenshotSink
	pre     Preflight
	clock   Clock
	logger  *zap.Logger

	// Seams for tests: session construction and card extraction.
	newSession func(ctx context.Context, cfg SessionConfig, logger *zap.Logger) (session, error)
	extract    func(doc *goquery.Document, p Profile) []Listing
}

// New constructs a Scraper. shots and pre may be nil, disabling screenshots
// and preflight checks respectively.
func New(cfg Config, profile Profile, shots ScreenshotSink, pre Preflight, clk Clock, logger *zap.Logger) *Scraper {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.StabilizeTimeout <= 0 {
		cfg.StabilizeTimeout = 8 * time.Second
	}
	if cfg.DelayMin <= 0 {
		cfg.DelayMin = 400 * time.Millisecond
	}
	if cfg.DelayMax <= 0 {
		cfg.DelayMax = 900 * time.Millisecond
	}
	if clk == nil {
		clk = wallClock{}
	}
	return &Scraper{
		cfg:     cfg,
		profile: profile.withDefaults(),
		shots:   shots,
		pre:     pre,
		clock:   clk,
		logger:  logger,
		newSession: func(ctx context.Context, sc SessionConfig, l *zap.Logger) (session, error) {
			return newBrowserSession(ctx, sc, l)
		},
		extract: extractListings,
	}
}

// Scrape fetches one search results page and returns a ScrapeResult. It
// never returns an error and never panics: every fault inside the call is
// folded into a terminal status, and the browser session is torn down on
// every exit path.
func (s *Scraper) Scrape(ctx context.Context, query SearchQuery, opts Options) (result ScrapeResult) {
	targetURL := BuildSearchURL(query)
	profile := s.callProfile(opts)
	start := s.clock.Now()
	defer func() {
		scrapesTotal.WithLabelValues(string(result.Status)).Inc()
		scrapeDuration.Observe(s.clock.Now().Sub(start).Seconds())
	}()

	s.logger.Info("Scrape starting",
		zap.String("url", targetURL),
		zap.Int("page", max(query.Page, 1)))

	if s.pre != nil {
		if err := s.pre.Check(ctx, targetURL); err != nil {
			s.logger.Warn("Preflight refused target", zap.String("url", targetURL), zap.Error(err))
			return errorResultNoSession(targetURL, fmt.Sprintf("preflight: %v", err))
		}
	}

	sess, err := s.newSession(ctx, SessionConfig{
		Headless:  s.headless(opts),
		Sandbox:   s.cfg.Sandbox,
		UserAgent: s.cfg.UserAgent,
	}, s.logger)
	if err != nil {
		return errorResultNoSession(targetURL, fmt.Sprintf("launch session: %v", err))
	}
	defer sess.Close()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scrape panicked", zap.String("url", targetURL), zap.Any("panic", r))
			result = s.errorResult(ctx, sess, targetURL, fmt.Sprintf("unexpected fault: %v", r))
		}
	}()

	return s.run(ctx, sess, targetURL, profile, opts)
}

// run executes the pipeline against an open session.
func (s *Scraper) run(ctx context.Context, sess session, targetURL string, profile Profile, opts Options) ScrapeResult {
	if err := sess.Navigate(ctx, targetURL, s.timeout(opts)); err != nil {
		return s.errorResult(ctx, sess, targetURL, err.Error())
	}

	// The results container renders asynchronously; a slow or absent
	// container must not abort the scrape.
	if profile.ResultsContainer != "" {
		if err := sess.AwaitSelector(ctx, profile.ResultsContainer, s.cfg.StabilizeTimeout); err != nil {
			stabilizationTimeouts.Inc()
			s.logger.Debug("Results container did not stabilize; extracting anyway",
				zap.String("url", targetURL), zap.Error(err))
		}
	}

	html, err := sess.HTML(ctx)
	if err != nil {
		return s.errorResult(ctx, sess, targetURL, err.Error())
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return s.errorResult(ctx, sess, targetURL, fmt.Sprintf("parse dom: %v", err))
	}

	if looksLikeCaptcha(doc, profile.Captcha) {
		captchaDetections.Inc()
		s.logger.Warn("Anti-bot challenge detected; stopping", zap.String("url", targetURL))
		res := ScrapeResult{
			Status:   StatusCaptcha,
			URL:      targetURL,
			Listings: []Listing{},
		}
		if s.takeScreenshot(opts) {
			res.Screenshot = s.capture(ctx, sess, "captcha")
		}
		return res
	}

	// The delay runs only on pages that will actually be scraped; a
	// challenged page exits immediately.
	politeDelay(ctx, s.cfg.DelayMin, s.cfg.DelayMax)

	listings := s.extract(doc, profile)
	listingsExtracted.Add(float64(len(listings)))
	s.logger.Info("Scrape finished",
		zap.String("url", targetURL),
		zap.Int("listings", len(listings)))

	res := ScrapeResult{
		Status:   StatusOK,
		URL:      targetURL,
		Count:    len(listings),
		Listings: listings,
	}
	if s.takeScreenshot(opts) {
		res.Screenshot = s.capture(ctx, sess, "srp")
	}
	return res
}

// errorResult folds a fault into a terminal error status with best-effort
// diagnostics. The session stays open just long enough to capture them; the
// caller's deferred Close still runs.
func (s *Scraper) errorResult(ctx context.Context, sess session, targetURL, note string) ScrapeResult {
	res := errorResultNoSession(targetURL, note)
	res.Screenshot = s.capture(ctx, sess, "error")
	return res
}

func errorResultNoSession(targetURL, note string) ScrapeResult {
	return ScrapeResult{
		Status:   StatusError,
		URL:      targetURL,
		Listings: []Listing{},
		Note:     note,
	}
}

// capture takes and persists a screenshot, returning its path or "" when
// screenshots are disabled or the capture fails. Failures are logged only;
// diagnostics never change the outcome.
func (s *Scraper) capture(ctx context.Context, sess session, kind string) string {
	if s.shots == nil {
		return ""
	}
	png, err := sess.Screenshot(ctx)
	if err != nil {
		s.logger.Debug("Screenshot capture failed", zap.String("kind", kind), zap.Error(err))
		return ""
	}
	name := fmt.Sprintf("zoopla_%s_%d.png", kind, s.clock.Now().Unix())
	path, err := s.shots.Save(ctx, name, png)
	if err != nil {
		s.logger.Warn("Screenshot save failed", zap.String("name", name), zap.Error(err))
		return ""
	}
	return path
}

func (s *Scraper) callProfile(opts Options) Profile {
	if opts.ProfilePath == "" {
		return s.profile
	}
	return MergeProfileFile(s.profile, opts.ProfilePath, s.logger)
}

func (s *Scraper) headless(opts Options) bool {
	if opts.Headless != nil {
		return *opts.Headless
	}
	return s.cfg.Headless
}

func (s *Scraper) takeScreenshot(opts Options) bool {
	if opts.TakeScreenshot != nil {
		return *opts.TakeScreenshot
	}
	return s.cfg.TakeScreenshot
}

func (s *Scraper) timeout(opts Options) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	return s.cfg.NavTimeout
}
