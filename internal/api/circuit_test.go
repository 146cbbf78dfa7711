package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lettingsradar/zoopla-scraper/internal/scraper"
)

func TestCircuitTripsAfterThreshold(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := newCaptchaCircuit(3, 10*time.Minute, func() time.Time { return now })

	for i := 0; i < 2; i++ {
		c.Record(scraper.StatusCaptcha)
		assert.True(t, c.Allow(), "below threshold must stay closed")
	}
	c.Record(scraper.StatusCaptcha)
	assert.False(t, c.Allow())
}

func TestCircuitNonCaptchaResetsRun(t *testing.T) {
	c := newCaptchaCircuit(2, time.Minute, nil)

	c.Record(scraper.StatusCaptcha)
	c.Record(scraper.StatusOK)
	c.Record(scraper.StatusCaptcha)
	assert.True(t, c.Allow(), "interleaved outcomes must not trip")

	c.Record(scraper.StatusError)
	c.Record(scraper.StatusCaptcha)
	c.Record(scraper.StatusCaptcha)
	assert.False(t, c.Allow())
}

func TestCircuitReopensAfterCooldown(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := newCaptchaCircuit(1, 10*time.Minute, func() time.Time { return now })

	c.Record(scraper.StatusCaptcha)
	assert.False(t, c.Allow())

	now = now.Add(11 * time.Minute)
	assert.True(t, c.Allow())
	// The run counter reset with the cooldown.
	c.Record(scraper.StatusOK)
	assert.True(t, c.Allow())
}

func TestCircuitDisabledByZeroThreshold(t *testing.T) {
	c := newCaptchaCircuit(0, time.Minute, nil)
	for i := 0; i < 10; i++ {
		c.Record(scraper.StatusCaptcha)
	}
	assert.True(t, c.Allow())
}

func TestCircuitRetryAfter(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := newCaptchaCircuit(1, 10*time.Minute, func() time.Time { return now })

	assert.Zero(t, c.RetryAfter())
	c.Record(scraper.StatusCaptcha)
	got := c.RetryAfter()
	assert.Greater(t, got, 9*time.Minute)
	assert.LessOrEqual(t, got, 11*time.Minute)
}
