package metrics

import (
	"context"

	"go.opentelemetry.io/otel/metric"

	"github.com/ascendpay/ascendpay-backend/internal/application/health"
)

var _ health.HealthMetrics = (*healthMetrics)(nil)

type healthMetrics struct {
	systemHealth metric.Int64Gauge
}

func newHealthMetrics(mp metric.MeterProvider) (*healthMetrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion(instrumentationVersion))

	m := new(healthMetrics)
	var err error

	if m.systemHealth, err = meter.Int64Gauge(
		"system_health",
		metric.WithDescription("Result of the last readiness check (1 ready, 0 not ready)"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *healthMetrics) SetSystemHealth(ctx context.Context, ready bool) {
	var v int64
	if ready {
		v = 1
	}
	m.systemHealth.Record(ctx, v)
}
