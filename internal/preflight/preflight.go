// Package preflight vets a search URL before any browser is spent on it.
// It enforces robots.txt directives and can probe the target over plain
// HTTP to catch outright refusals cheaply.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrBlocked is returned when the target refuses the probe request with a
// status that indicates the scraper itself is unwelcome.
var ErrBlocked = errors.New("target refused probe")

// ErrDisallowed is returned when robots.txt disallows the target path for
// the configured user agent.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Config controls which preflight checks run.
type Config struct {
	RespectRobots bool
	Probe         bool
	UserAgent     string
	Timeout       time.Duration
}

// Checker runs the enabled checks in order: robots first, then the probe.
// The first failing check aborts.
type Checker struct {
	cfg    Config
	robots *robotsCache
	probe  *prober
	logger *zap.Logger
}

// New builds a Checker. With both checks disabled, Check always passes.
func New(cfg Config, logger *zap.Logger) (*Checker, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := &Checker{cfg: cfg, logger: logger}
	if cfg.RespectRobots {
		c.robots = newRobotsCache(cfg.UserAgent, cfg.Timeout, logger)
	}
	if cfg.Probe {
		p, err := newProber(cfg.UserAgent, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("build prober: %w", err)
		}
		c.probe = p
	}
	return c, nil
}

// Check implements scraper.Preflight.
func (c *Checker) Check(ctx context.Context, rawURL string) error {
	if c.robots != nil {
		if !c.robots.Allowed(ctx, rawURL) {
			return fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
		}
	}
	if c.probe != nil {
		status, err := c.probe.Probe(ctx, rawURL)
		if err != nil {
			// A failed probe is not proof of a block; the browser may
			// still succeed where a bare HTTP client does not.
			c.logger.Debug("Probe inconclusive; continuing",
				zap.String("url", rawURL), zap.Error(err))
			return nil
		}
		if status == http.StatusForbidden || status == http.StatusTooManyRequests {
			return fmt.Errorf("%w: status %d", ErrBlocked, status)
		}
	}
	return nil
}
