// Package artifacts persists scrape diagnostics, currently screenshots.
// A Store returns a URI or path for each saved artifact so it can be
// reported back to the caller alongside the scrape result.
package artifacts

import "context"

// Store persists one named artifact and returns where it ended up.
type Store interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// Noop discards artifacts. Used when screenshots are disabled entirely.
type Noop struct{}

// Save implements Store by dropping the data.
func (Noop) Save(context.Context, string, []byte) (string, error) {
	return "", nil
}
