package api

import (
	"sync"
	"time"

	"github.com/lettingsradar/zoopla-scraper/internal/scraper"
)

// captchaCircuit trips after a run of consecutive captcha outcomes and
// refuses new scrapes for a cooldown period. Hammering a site that is
// already challenging us only makes the block worse.
type captchaCircuit struct {
	mu          sync.Mutex
	threshold   int
	cooldown    time.Duration
	now         func() time.Time
	consecutive int
	openUntil   time.Time
}

func newCaptchaCircuit(threshold int, cooldown time.Duration, now func() time.Time) *captchaCircuit {
	if now == nil {
		now = time.Now
	}
	return &captchaCircuit{
		threshold: threshold,
		cooldown:  cooldown,
		now:       now,
	}
}

// Allow reports whether a new scrape may start. A threshold of zero
// disables the circuit entirely.
func (c *captchaCircuit) Allow() bool {
	if c.threshold <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openUntil.IsZero() {
		return true
	}
	if c.now().After(c.openUntil) {
		c.openUntil = time.Time{}
		c.consecutive = 0
		return true
	}
	return false
}

// Record feeds one scrape outcome into the circuit. Any non-captcha
// outcome resets the run.
func (c *captchaCircuit) Record(status scraper.Status) {
	if c.threshold <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if status != scraper.StatusCaptcha {
		c.consecutive = 0
		return
	}
	c.consecutive++
	if c.consecutive >= c.threshold {
		c.openUntil = c.now().Add(c.cooldown)
	}
}

// RetryAfter returns how long callers should wait before retrying, rounded
// up to a whole second.
func (c *captchaCircuit) RetryAfter() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openUntil.IsZero() {
		return 0
	}
	remaining := c.openUntil.Sub(c.now())
	if remaining < 0 {
		return 0
	}
	return remaining.Round(time.Second) + time.Second
}
