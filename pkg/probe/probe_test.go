package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeMonkeyCybersecurity/gmapper/internal/config"
	"github.com/CodeMonkeyCybersecurity/gmapper/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "json"})
	require.NoError(t, err)
	return log
}

func newTestProber(t *testing.T, maxRetries int) (*Prober, *[]time.Duration) {
	t.Helper()
	var sleeps []time.Duration
	p := New(&http.Client{Timeout: 2 * time.Second}, maxRetries, testLogger(t)).
		WithSleep(func(d time.Duration) { sleeps = append(sleeps, d) })
	return p, &sleeps
}

func TestProbeSuccess(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"OK"}`))
	}))
	defer srv.Close()

	p, sleeps := newTestProber(t, 3)
	res := p.Probe(context.Background(), srv.URL)

	assert.True(t, res.Success)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, `{"status":"OK"}`, res.Body)
	assert.Empty(t, res.Error)
	assert.Equal(t, int64(1), requests.Load())
	assert.Empty(t, *sleeps)
}

func TestProbeNon2xxIsDefinitive(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"This API key is not authorized"}}`))
	}))
	defer srv.Close()

	p, sleeps := newTestProber(t, 3)
	res := p.Probe(context.Background(), srv.URL)

	assert.False(t, res.Success)
	assert.Equal(t, 403, res.StatusCode)
	// The API answered: exactly one attempt, no backoff.
	assert.Equal(t, int64(1), requests.Load())
	assert.Empty(t, *sleeps)
}

func TestProbeTransportFailureRetriesWithBackoff(t *testing.T) {
	// A server that is already closed fails at connect time.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p, sleeps := newTestProber(t, 3)
	res := p.Probe(context.Background(), url)

	assert.False(t, res.Success)
	assert.Equal(t, 0, res.StatusCode)
	assert.NotEmpty(t, res.Error)
	// Delays 1s then 2s between the three attempts.
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *sleeps)
}

func TestProbeRecoversAfterTransientFailure(t *testing.T) {
	var requests atomic.Int64
	var flaky *httptest.Server
	flaky = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			// Kill the connection without a response.
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer flaky.Close()

	p, sleeps := newTestProber(t, 3)
	res := p.Probe(context.Background(), flaky.URL)

	assert.True(t, res.Success)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, []time.Duration{1 * time.Second}, *sleeps)
}

func TestProbeClampsRetries(t *testing.T) {
	p := New(http.DefaultClient, 0, testLogger(t))
	assert.Equal(t, 1, p.MaxRetries())
}

func TestHost(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://maps.googleapis.com/maps/api/js?key=x", "maps.googleapis.com"},
		{"https://roads.googleapis.com/v1/nearestRoads?points=0,0", "roads.googleapis.com"},
		{"http://localhost:8080/path", "localhost:8080"},
		{"no-scheme/path", "no-scheme"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Host(tt.url), "url %s", tt.url)
	}
}
