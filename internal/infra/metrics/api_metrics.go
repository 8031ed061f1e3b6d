package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ascendpay/ascendpay-backend/internal/application/sdk/mid"
)

var _ mid.APIMetrics = (*apiMetrics)(nil)

// apiMetrics implements mid.APIMetrics. Requests are labelled by route
// pattern so tenant ids in paths do not multiply series.
type apiMetrics struct {
	requestLatency   metric.Float64Histogram
	requestCount     metric.Int64Counter
	requestsInFlight metric.Int64UpDownCounter
}

func newAPIMetrics(mp metric.MeterProvider) (*apiMetrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion(instrumentationVersion))

	m := new(apiMetrics)
	var err error

	if m.requestLatency, err = meter.Float64Histogram(
		"api_request_latency_seconds",
		metric.WithDescription("Latency of API requests in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.requestCount, err = meter.Int64Counter(
		"api_request_total",
		metric.WithDescription("Total number of completed API requests"),
	); err != nil {
		return nil, err
	}

	if m.requestsInFlight, err = meter.Int64UpDownCounter(
		"api_requests_in_flight",
		metric.WithDescription("Number of API requests currently being served"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func requestAttrs(route, method string, statusCode int) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("method", method),
		attribute.Int("status_code", statusCode),
	)
}

// ObserveRequestLatency records the latency of a completed request.
func (m *apiMetrics) ObserveRequestLatency(ctx context.Context, route string, method string, statusCode int, duration time.Duration) {
	m.requestLatency.Record(ctx, duration.Seconds(), requestAttrs(route, method, statusCode))
}

// IncRequestCount counts a completed request.
func (m *apiMetrics) IncRequestCount(ctx context.Context, route string, method string, statusCode int) {
	m.requestCount.Add(ctx, 1, requestAttrs(route, method, statusCode))
}

// TrackInFlight counts f as in flight while it runs.
func (m *apiMetrics) TrackInFlight(ctx context.Context, method string, f func()) {
	attrs := metric.WithAttributes(attribute.String("method", method))
	m.requestsInFlight.Add(ctx, 1, attrs)
	defer m.requestsInFlight.Add(ctx, -1, attrs)

	f()
}
