package scraper

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	artifactsmemory "github.com/lettingsradar/zoopla-scraper/internal/artifacts/memory"
)

type fakeSession struct {
	html     string
	navErr   error
	awaitErr error
	htmlErr  error
	shotErr  error

	navigations int
	awaits      int
	screenshots int
	closes      atomic.Int32
}

func (f *fakeSession) Navigate(context.Context, string, time.Duration) error {
	f.navigations++
	return f.navErr
}

func (f *fakeSession) AwaitSelector(context.Context, string, time.Duration) error {
	f.awaits++
	return f.awaitErr
}

func (f *fakeSession) HTML(context.Context) (string, error) {
	if f.htmlErr != nil {
		return "", f.htmlErr
	}
	return f.html, nil
}

func (f *fakeSession) Screenshot(context.Context) ([]byte, error) {
	f.screenshots++
	if f.shotErr != nil {
		return nil, f.shotErr
	}
	return []byte("png-bytes"), nil
}

func (f *fakeSession) Close() { f.closes.Add(1) }

type refusingPreflight struct{ err error }

func (r refusingPreflight) Check(context.Context, string) error { return r.err }

func newTestScraper(t *testing.T, sess session, launchErr error) *Scraper {
	t.Helper()
	s := New(Config{
		UserAgent: "test-agent",
		Headless:  true,
		DelayMin:  time.Millisecond,
		DelayMax:  2 * time.Millisecond,
	}, DefaultProfile(), artifactsmemory.New(), nil, nil, zap.NewNop())
	s.newSession = func(context.Context, SessionConfig, *zap.Logger) (session, error) {
		if launchErr != nil {
			return nil, launchErr
		}
		return sess, nil
	}
	return s
}

func testQuery() SearchQuery {
	return SearchQuery{Location: "Reading RG2", PriceMax: intPtr(800), RoomInShared: true}
}

func TestScrapeOKExtractsListings(t *testing.T) {
	sess := &fakeSession{html: fixtureSRP}
	s := newTestScraper(t, sess, nil)

	res := s.Scrape(context.Background(), testQuery(), Options{})

	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 3, res.Count)
	assert.Len(t, res.Listings, 3)
	assert.Equal(t, BuildSearchURL(testQuery()), res.URL)
	assert.Empty(t, res.Note)
	assert.Equal(t, int32(1), sess.closes.Load())
}

func TestScrapeCaptchaShortCircuitsBeforeExtraction(t *testing.T) {
	sess := &fakeSession{html: `<html><body><iframe src="https://hcaptcha.com/c"></iframe></body></html>`}
	s := newTestScraper(t, sess, nil)

	extracted := false
	s.extract = func(*goquery.Document, Profile) []Listing {
		extracted = true
		return nil
	}

	res := s.Scrape(context.Background(), testQuery(), Options{})

	assert.Equal(t, StatusCaptcha, res.Status)
	assert.Zero(t, res.Count)
	assert.Empty(t, res.Listings)
	assert.NotNil(t, res.Listings)
	assert.False(t, extracted, "extraction must not run once the guardrail trips")
	assert.Zero(t, sess.screenshots)
	assert.Equal(t, int32(1), sess.closes.Load())
}

func TestScrapeCaptchaScreenshotOnRequest(t *testing.T) {
	sess := &fakeSession{html: `<html><body><div class="g-recaptcha"></div></body></html>`}
	s := newTestScraper(t, sess, nil)

	res := s.Scrape(context.Background(), testQuery(), Options{TakeScreenshot: boolPtr(true)})

	assert.Equal(t, StatusCaptcha, res.Status)
	assert.Equal(t, 1, sess.screenshots)
	require.NotEmpty(t, res.Screenshot)
	assert.Contains(t, res.Screenshot, "zoopla_captcha_")
	assert.Equal(t, ".png", filepath.Ext(res.Screenshot))
}

func TestScrapeNavigationFaultTearsDownOnce(t *testing.T) {
	sess := &fakeSession{navErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	s := newTestScraper(t, sess, nil)

	res := s.Scrape(context.Background(), testQuery(), Options{})

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Note, "ERR_NAME_NOT_RESOLVED")
	assert.Empty(t, res.Listings)
	assert.NotNil(t, res.Listings)
	assert.Equal(t, int32(1), sess.closes.Load())
}

func TestScrapeExtractionPanicTearsDownOnce(t *testing.T) {
	sess := &fakeSession{html: fixtureSRP}
	s := newTestScraper(t, sess, nil)
	s.extract = func(*goquery.Document, Profile) []Listing {
		panic("detached frame")
	}

	var res ScrapeResult
	assert.NotPanics(t, func() {
		res = s.Scrape(context.Background(), testQuery(), Options{})
	})

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Note, "detached frame")
	assert.Equal(t, int32(1), sess.closes.Load())
}

func TestScrapeStabilizationTimeoutIsTolerated(t *testing.T) {
	sess := &fakeSession{html: fixtureSRP, awaitErr: errors.New("await timed out")}
	s := newTestScraper(t, sess, nil)

	res := s.Scrape(context.Background(), testQuery(), Options{})

	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, 1, sess.awaits)
}

func TestScrapeDefaultLaunchDisablesSandbox(t *testing.T) {
	sess := &fakeSession{html: fixtureSRP}
	s := newTestScraper(t, sess, nil)

	var launched SessionConfig
	s.newSession = func(_ context.Context, sc SessionConfig, _ *zap.Logger) (session, error) {
		launched = sc
		return sess, nil
	}

	res := s.Scrape(context.Background(), testQuery(), Options{})

	assert.Equal(t, StatusOK, res.Status)
	assert.True(t, launched.Headless)
	assert.False(t, launched.Sandbox, "containerized launch needs --no-sandbox unless explicitly enabled")
}

func TestScrapeCaptchaSkipsPolitenessDelay(t *testing.T) {
	sess := &fakeSession{html: `<html><body><div class="g-recaptcha"></div></body></html>`}
	s := New(Config{
		UserAgent: "test-agent",
		Headless:  true,
		DelayMin:  2 * time.Second,
		DelayMax:  3 * time.Second,
	}, DefaultProfile(), artifactsmemory.New(), nil, nil, zap.NewNop())
	s.newSession = func(context.Context, SessionConfig, *zap.Logger) (session, error) {
		return sess, nil
	}

	start := time.Now()
	res := s.Scrape(context.Background(), testQuery(), Options{})

	assert.Equal(t, StatusCaptcha, res.Status)
	assert.Less(t, time.Since(start), time.Second,
		"a challenged page must exit without paying the per-page delay")
}

func TestScrapeSessionLaunchFailure(t *testing.T) {
	s := newTestScraper(t, nil, errors.New("chrome not found"))

	res := s.Scrape(context.Background(), testQuery(), Options{})

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Note, "launch session")
	assert.Empty(t, res.Screenshot)
}

func TestScrapeErrorCapturesBestEffortScreenshot(t *testing.T) {
	sess := &fakeSession{htmlErr: errors.New("target closed")}
	s := newTestScraper(t, sess, nil)

	res := s.Scrape(context.Background(), testQuery(), Options{})

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, 1, sess.screenshots)
	assert.Contains(t, res.Screenshot, "zoopla_error_")
}

func TestScrapeScreenshotFailureDoesNotChangeOutcome(t *testing.T) {
	sess := &fakeSession{htmlErr: errors.New("target closed"), shotErr: errors.New("no surface")}
	s := newTestScraper(t, sess, nil)

	res := s.Scrape(context.Background(), testQuery(), Options{})

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Note, "target closed")
	assert.Empty(t, res.Screenshot)
}

func TestScrapeBrokenProfileOverrideMatchesDefaultOutcome(t *testing.T) {
	sess := &fakeSession{html: fixtureSRP}
	s := newTestScraper(t, sess, nil)

	res := s.Scrape(context.Background(), testQuery(), Options{
		ProfilePath: filepath.Join(t.TempDir(), "missing.json"),
	})

	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 3, res.Count)
}

func TestScrapePreflightRefusalSkipsBrowser(t *testing.T) {
	sess := &fakeSession{html: fixtureSRP}
	s := newTestScraper(t, sess, nil)
	s.pre = refusingPreflight{err: errors.New("robots.txt disallows path")}

	res := s.Scrape(context.Background(), testQuery(), Options{})

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Note, "preflight")
	assert.Zero(t, sess.navigations)
	assert.Zero(t, sess.closes.Load())
}
