package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Rockthor1106/restaurant-management-api/internal/config"
)

func obsConfig() config.Config {
	return config.Config{Observability: config.Observability{
		ServiceName:      "restaurant-api",
		ServiceVersion:   "test",
		Environment:      "test",
		TraceExporter:    "none",
		TraceSampleRatio: 1,
		MetricsExporter:  "prometheus",
		PrometheusPath:   "/metrics",
	}}
}

func TestDisabledManagerHasNoProviders(t *testing.T) {
	lc := fxtest.NewLifecycle(t)

	mgr, err := NewManager(lc, obsConfig(), zap.NewNop())
	require.NoError(t, err)
	lc.RequireStart().RequireStop()

	assert.False(t, mgr.TracingEnabled())
	assert.False(t, mgr.MetricsEnabled())
	assert.Nil(t, mgr.MetricsHandler())
	assert.Equal(t, "/metrics", mgr.PrometheusPath())
}

func TestPrometheusHandlerExportsNamespacedInstruments(t *testing.T) {
	cfg := obsConfig()
	cfg.Observability.EnableMetrics = true

	mgr, err := build(context.Background(), cfg.Observability, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Shutdown(context.Background()) })
	require.True(t, mgr.MetricsEnabled())

	counter, err := mgr.meterProvider.Meter("test").Int64Counter("orders.created")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	rec := httptest.NewRecorder()
	mgr.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body), "restaurant_orders_created")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestUnsupportedExportersDisableProviders(t *testing.T) {
	cfg := obsConfig()
	cfg.Observability.EnableTracing = true
	cfg.Observability.TraceExporter = "zipkin"
	cfg.Observability.EnableMetrics = true
	cfg.Observability.MetricsExporter = "statsd"

	mgr, err := build(context.Background(), cfg.Observability, nil)
	require.NoError(t, err)

	assert.False(t, mgr.TracingEnabled())
	assert.False(t, mgr.MetricsEnabled())
}

func TestOTLPRequiresEndpoint(t *testing.T) {
	cfg := obsConfig()
	cfg.Observability.EnableTracing = true
	cfg.Observability.TraceExporter = "otlp"

	_, err := build(context.Background(), cfg.Observability, zap.NewNop())
	assert.ErrorContains(t, err, "OBS_OTLP_ENDPOINT")
}
