package observability

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNewMetricsWith_RegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg)

	m.RunsTotal.WithLabelValues("completed").Inc()
	m.EntityResults.WithLabelValues("success").Add(3)
	m.FetchAttempts.WithLabelValues("retry").Inc()
	m.StoreCache.WithLabelValues("hit").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"flood_risk_refresh_runs_total",
		"flood_risk_refresh_run_duration_seconds",
		"flood_risk_refresh_in_progress",
		"flood_risk_refresh_entity_results_total",
		"flood_risk_power_fetch_attempts_total",
		"flood_risk_store_cache_total",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
}

func TestNewMetricsWith_DuplicatePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetricsWith(reg)
	assert.Panics(t, func() { NewMetricsWith(reg) })
}

func TestInitTracing_Disabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	shutdown, err := InitTracing(context.Background(), false, "test", logger)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}
