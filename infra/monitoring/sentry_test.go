package monitoring

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetnav/config"
	coremon "github.com/kilianp07/fleetnav/core/monitoring"
)

type envelopeServer struct {
	mu     sync.Mutex
	bodies []string
}

func (e *envelopeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	e.mu.Lock()
	e.bodies = append(e.bodies, string(b))
	e.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (e *envelopeServer) joined() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return strings.Join(e.bodies, "\n")
}

func newTestMonitor(t *testing.T) (coremon.Monitor, *envelopeServer) {
	t.Helper()
	srv := &envelopeServer{}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	dsn := strings.Replace(ts.URL, "http://", "http://public@", 1) + "/1"
	mon, err := NewSentryMonitor(config.SentryConfig{DSN: dsn, Environment: "test"})
	require.NoError(t, err)
	return mon, srv
}

func TestEmptyDSNIsNop(t *testing.T) {
	mon, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, mon)
}

func TestInvalidDSN(t *testing.T) {
	_, err := NewSentryMonitor(config.SentryConfig{DSN: "://bad"})
	assert.Error(t, err)
}

func TestCaptureExceptionSendsTags(t *testing.T) {
	mon, srv := newTestMonitor(t)
	mon.CaptureException(errors.New("publish failed"), map[string]string{"module": "mqtt"})
	mon.Flush(2 * time.Second)
	body := srv.joined()
	assert.Contains(t, body, "publish failed")
	assert.Contains(t, body, `"module":"mqtt"`)
}

func TestRecoverPanicReportsAndRepanics(t *testing.T) {
	mon, srv := newTestMonitor(t)
	assert.PanicsWithValue(t, "boom", func() { mon.RecoverPanic("boom") })
	assert.Contains(t, srv.joined(), "boom")
}
