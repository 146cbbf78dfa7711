package preflight

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

// prober issues one plain GET against the target through a Colly collector.
// It only cares about the status code; the body is discarded.
type prober struct {
	base *colly.Collector
}

func newProber(userAgent string, timeout time.Duration) (*prober, error) {
	base := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
	})
	base.SetRequestTimeout(timeout)
	return &prober{base: base}, nil
}

type probeResult struct {
	status int
	err    error
}

// Probe fetches rawURL and returns the response status. Transport-level
// failures return an error with a zero status.
func (p *prober) Probe(ctx context.Context, rawURL string) (int, error) {
	collector := p.base.Clone()
	resultCh := make(chan probeResult, 1)
	var once sync.Once
	send := func(res probeResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnResponse(func(r *colly.Response) {
		send(probeResult{status: r.StatusCode})
	})
	collector.OnError(func(r *colly.Response, err error) {
		// Refusal statuses arrive here; they are a result, not a failure.
		if r != nil && r.StatusCode != 0 {
			send(probeResult{status: r.StatusCode})
			return
		}
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(probeResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return 0, err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return res.status, res.err
	default:
		return 0, errors.New("probe produced no result")
	}
}
