// Package metrics provides the OpenTelemetry implementations of the metric
// interfaces declared by the application layer.
package metrics

import (
	"go.opentelemetry.io/otel/metric"

	"github.com/ascendpay/ascendpay-backend/internal/application/health"
	"github.com/ascendpay/ascendpay-backend/internal/application/registry"
	"github.com/ascendpay/ascendpay-backend/internal/application/sdk/mid"
)

const (
	namespace              = "ascendpay"
	instrumentationVersion = "v0.1.0"
)

// Registry provides access to all metric implementations.
// It centralizes the creation and management of metrics instances.
type Registry struct {
	API         mid.APIMetrics
	Connections registry.Metrics
	Health      health.HealthMetrics
}

// NewRegistry creates and initializes all metrics implementations.
// It uses a single meter provider to ensure consistent configuration.
func NewRegistry(mp metric.MeterProvider) (*Registry, error) {
	apiMetrics, err := newAPIMetrics(mp)
	if err != nil {
		return nil, err
	}

	connectionMetrics, err := newConnectionMetrics(mp)
	if err != nil {
		return nil, err
	}

	healthMetrics, err := newHealthMetrics(mp)
	if err != nil {
		return nil, err
	}

	return &Registry{
		API:         apiMetrics,
		Connections: connectionMetrics,
		Health:      healthMetrics,
	}, nil
}
