package scraper

import (
	"context"
	"math/rand"
	"time"
)

// politeDelay sleeps for a random duration in [min, max] or until the
// context is done. The jitter avoids a bursty, mechanical request cadence
// against the target site.
func politeDelay(ctx context.Context, min, max time.Duration) {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	delay := min
	if span := max - min; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span) + 1))
	}
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
