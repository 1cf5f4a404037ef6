// Package probe issues single bounded HTTP GET probes against service
// endpoints with an API key substituted in.
//
// The retry policy is deliberately asymmetric: transport failures
// (connect/read errors) are retried with exponential backoff because they
// say nothing about the key, while any HTTP response, 2xx or not, is a
// definitive answer from the API and is returned immediately. Retrying a
// 403 would only hammer the remote on a deterministic rejection.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/gmapper/internal/logger"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/types"
)

const userAgent = "Gmapper/1.0"

// maxBodyBytes caps how much of a probe response is read. Probe endpoints
// return small JSON documents; anything larger is truncated.
const maxBodyBytes = 1 << 20

// Prober executes probes with bounded retry.
type Prober struct {
	client     *http.Client
	maxRetries int
	logger     *logger.Logger

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

// New creates a Prober. maxRetries is the total number of attempts made
// on transport failure; values below 1 are clamped to 1.
func New(client *http.Client, maxRetries int, log *logger.Logger) *Prober {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Prober{
		client:     client,
		maxRetries: maxRetries,
		logger:     log.WithComponent("probe"),
		sleep:      time.Sleep,
	}
}

// Probe issues one GET against url. It retries only on transport failure,
// sleeping 1s, 2s, 4s, ... between attempts. A response with any status
// code ends the loop immediately. Probe never returns an error: failures
// are folded into the result.
func (p *Prober) Probe(ctx context.Context, url string) types.ProbeResult {
	var lastErr error

	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			// 2^(attempt-1) seconds before retry attempt N
			p.sleep(time.Duration(1<<(attempt-1)) * time.Second)
		}

		res, err := p.attempt(ctx, url)
		if err != nil {
			lastErr = err
			p.logger.Debugw("Probe attempt failed",
				"url", url,
				"attempt", attempt+1,
				"max_retries", p.maxRetries,
				"error", err.Error(),
			)
			continue
		}
		return res
	}

	errMsg := fmt.Sprintf("request failed after %d retries", p.maxRetries)
	if lastErr != nil {
		errMsg = lastErr.Error()
	}
	return types.ProbeResult{
		StatusCode: 0,
		Success:    false,
		Error:      errMsg,
	}
}

// attempt performs a single request. A returned error means transport
// failure (retryable); a returned result is definitive.
func (p *Prober) attempt(ctx context.Context, url string) (types.ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		// A malformed URL will not get better on retry, but it is still
		// a failure to reach the API rather than an answer from it.
		return types.ProbeResult{}, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return types.ProbeResult{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return types.ProbeResult{}, fmt.Errorf("reading response body: %w", err)
	}

	return types.ProbeResult{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
	}, nil
}

// WithSleep replaces the backoff sleep function. Used by tests.
func (p *Prober) WithSleep(fn func(time.Duration)) *Prober {
	p.sleep = fn
	return p
}

// MaxRetries returns the configured attempt ceiling.
func (p *Prober) MaxRetries() int {
	return p.maxRetries
}

// Host returns the host component of a probe URL, for rate limiting.
func Host(url string) string {
	s := url
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?"); i >= 0 {
		s = s[:i]
	}
	return s
}
