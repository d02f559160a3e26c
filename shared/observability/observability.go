package observability

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// SetupPrometheusMetrics initializes Prometheus metrics exporter and exposes /metrics endpoint
func SetupPrometheusMetrics() *sdkmetric.MeterProvider {
	exp, err := prometheus.New()
	if err != nil {
		log.Fatalf("failed to initialize prometheus exporter: %v", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		_ = http.ListenAndServe(":2112", nil)
	}()
	return mp
}

// QueryMetrics observes query pipeline outcomes
type QueryMetrics struct {
	queries metric.Int64Counter
	latency metric.Float64Histogram
}

// NewQueryMetrics registers the query pipeline instruments on the meter provider
func NewQueryMetrics(mp *sdkmetric.MeterProvider) (*QueryMetrics, error) {
	meter := mp.Meter("medichat-client")

	queries, err := meter.Int64Counter("medichat_queries_total",
		metric.WithDescription("Completed query turns by input mode and outcome"))
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram("medichat_backend_latency_seconds",
		metric.WithDescription("Medicine backend round trip latency"))
	if err != nil {
		return nil, err
	}

	return &QueryMetrics{queries: queries, latency: latency}, nil
}

// RecordQuery records one resolved query turn
func (m *QueryMetrics) RecordQuery(ctx context.Context, mode string, outcome string, latency time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	)
	m.queries.Add(ctx, 1, attrs)
	m.latency.Record(ctx, latency.Seconds(), attrs)
}
