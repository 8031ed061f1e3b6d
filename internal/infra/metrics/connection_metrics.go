package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ascendpay/ascendpay-backend/internal/application/registry"
)

var _ registry.Metrics = (*connectionMetrics)(nil)

// connectionMetrics implements registry.Metrics.
type connectionMetrics struct {
	lookups         metric.Int64Counter
	handles         metric.Int64UpDownCounter
	connectSuccess  metric.Int64Counter
	connectFailure  metric.Int64Counter
	connectDuration metric.Float64Histogram
}

func newConnectionMetrics(mp metric.MeterProvider) (*connectionMetrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion(instrumentationVersion))

	m := new(connectionMetrics)
	var err error

	if m.lookups, err = meter.Int64Counter(
		"tenant_registry_lookups_total",
		metric.WithDescription("GetOrCreate calls by result"),
	); err != nil {
		return nil, err
	}

	if m.handles, err = meter.Int64UpDownCounter(
		"tenant_registry_handles",
		metric.WithDescription("Number of cached tenant connection handles"),
	); err != nil {
		return nil, err
	}

	if m.connectSuccess, err = meter.Int64Counter(
		"tenant_connection_success_total",
		metric.WithDescription("Tenant connections that were established"),
	); err != nil {
		return nil, err
	}

	if m.connectFailure, err = meter.Int64Counter(
		"tenant_connection_failure_total",
		metric.WithDescription("Tenant connections that failed, by step"),
	); err != nil {
		return nil, err
	}

	if m.connectDuration, err = meter.Float64Histogram(
		"tenant_connection_duration_seconds",
		metric.WithDescription("Time taken to establish a tenant connection"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *connectionMetrics) IncLookup(ctx context.Context, result registry.LookupResult) {
	m.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", string(result))))
}

func (m *connectionMetrics) AddHandles(ctx context.Context, delta int64) {
	m.handles.Add(ctx, delta)
}

func (m *connectionMetrics) IncConnectionSuccess(ctx context.Context, tenantID string) {
	m.connectSuccess.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant_id", tenantID)))
}

func (m *connectionMetrics) IncConnectionFailure(ctx context.Context, tenantID string, step string) {
	m.connectFailure.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("step", step),
	))
}

func (m *connectionMetrics) ObserveConnectDuration(ctx context.Context, tenantID string, state string, duration time.Duration) {
	m.connectDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("state", state),
	))
}
