// Package httpclient builds the HTTP clients used for endpoint probing.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"time"
)

// ProbeClientConfig configures a probe client. Connect and read are
// bounded independently so a slow handshake cannot eat the whole read
// budget.
type ProbeClientConfig struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	MaxIdlePerHost int
}

// DefaultProbeConfig matches the validator's default per-call budget.
func DefaultProbeConfig() ProbeClientConfig {
	return ProbeClientConfig{
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		MaxIdlePerHost: 10,
	}
}

// NewProbeClient creates an HTTP client for API key probing:
//   - independent connect and read timeouts
//   - no redirect following (a redirect is a definitive answer, not
//     something to chase)
//   - pooled connections, since every probe hits the same few hosts
func NewProbeClient(cfg ProbeClientConfig) *http.Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	if cfg.MaxIdlePerHost <= 0 {
		cfg.MaxIdlePerHost = 10
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
			return dialer.DialContext(ctx, network, addr)
		},

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: cfg.MaxIdlePerHost,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		// Overall ceiling: connect plus read plus slack for the body.
		Timeout:   cfg.ConnectTimeout + 2*cfg.ReadTimeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
