package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkch/paybot/pkg/logger"
	"github.com/mkch/paybot/pkg/metrics"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestRouter(checks map[string]Pinger) (http.Handler, *metrics.BotMetrics) {
	reg := prometheus.NewRegistry()
	m := metrics.NewBotMetrics(reg)
	return NewRouter(RouterParams{
		Env:      "test",
		Logger:   logger.Nop(),
		Gatherer: reg,
		Checks:   checks,
	}), m
}

func TestHealthLive(t *testing.T) {
	router, _ := newTestRouter(nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Paybot-Env"))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	var body successEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]any{"status": "live"}, body.Data)
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	router, _ := newTestRouter(map[string]Pinger{
		"redis": pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "TRANSPORT_FAILURE", body.Error.Code)
}

func TestHealthReadyOK(t *testing.T) {
	router, _ := newTestRouter(map[string]Pinger{
		"redis": pingerFunc(func(context.Context) error { return nil }),
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	req.Header.Set(requestIDHeader, "req-1")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get(requestIDHeader))
}

func TestMetricsEndpointExposesBotMetrics(t *testing.T) {
	router, m := newTestRouter(nil)
	m.IncPurchase("PASSCODE")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `paybot_purchases_total{item="PASSCODE"} 1`))
}

func TestNewServerValidation(t *testing.T) {
	_, err := NewServer("", http.NewServeMux(), logger.Nop())
	require.Error(t, err)
	srv, err := NewServer(":0", http.NewServeMux(), logger.Nop())
	require.NoError(t, err)
	require.NoError(t, srv.Shutdown(context.Background()))
}
