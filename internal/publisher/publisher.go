// Package publisher emits scrape lifecycle events for downstream consumers
// such as alerting on captcha storms or feeding listing pipelines.
package publisher

import "context"

// Publisher delivers one event payload to a named topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// ScrapeCompleted is emitted after every scrape call, whatever its outcome.
type ScrapeCompleted struct {
	ScrapeID   string `json:"scrape_id"`
	Status     string `json:"status"`
	URL        string `json:"url"`
	Count      int    `json:"count"`
	Note       string `json:"note,omitempty"`
	Screenshot string `json:"screenshot,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	OccurredAt string `json:"occurred_at"`
}

// Noop discards events. Used when no broker is configured.
type Noop struct{}

// Publish implements Publisher by dropping the payload.
func (Noop) Publish(context.Context, string, any) (string, error) {
	return "", nil
}
