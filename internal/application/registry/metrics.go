package registry

import (
	"context"
	"time"
)

// LookupResult classifies a GetOrCreate call.
type LookupResult string

const (
	LookupHit     LookupResult = "hit"
	LookupMiss    LookupResult = "miss"
	LookupInvalid LookupResult = "invalid"
)

// Metrics defines metrics for the tenant connection registry.
type Metrics interface {
	// IncLookup counts GetOrCreate calls by outcome.
	IncLookup(ctx context.Context, result LookupResult)

	// AddHandles tracks the number of cached handles.
	AddHandles(ctx context.Context, delta int64)

	// IncConnectionSuccess counts establishments that reached connected.
	IncConnectionSuccess(ctx context.Context, tenantID string)

	// IncConnectionFailure counts establishments that failed, by step.
	IncConnectionFailure(ctx context.Context, tenantID string, step string)

	// ObserveConnectDuration records how long establishment took.
	ObserveConnectDuration(ctx context.Context, tenantID string, state string, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) IncLookup(context.Context, LookupResult)                               {}
func (noopMetrics) AddHandles(context.Context, int64)                                     {}
func (noopMetrics) IncConnectionSuccess(context.Context, string)                          {}
func (noopMetrics) IncConnectionFailure(context.Context, string, string)                  {}
func (noopMetrics) ObserveConnectDuration(context.Context, string, string, time.Duration) {}
