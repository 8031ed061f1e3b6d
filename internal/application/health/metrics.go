package health

import "context"

// HealthMetrics records the outcome of readiness checks.
type HealthMetrics interface {
	SetSystemHealth(ctx context.Context, ready bool)
}

type noopMetrics struct{}

func (noopMetrics) SetSystemHealth(context.Context, bool) {}
