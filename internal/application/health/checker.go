// Package health derives liveness and readiness from the state of the tenant
// connection registry.
package health

import (
	"context"
	"slices"

	"github.com/ascendpay/ascendpay-backend/internal/application/registry"
	"github.com/ascendpay/ascendpay-backend/internal/domain/tenant"
)

// Status values reported by the probes.
const (
	StatusUp   = "up"
	StatusDown = "down"
)

// SnapshotSource lists the cached tenant handles.
type SnapshotSource interface {
	Snapshot() []registry.HandleInfo
}

// Report is the readiness outcome. Tenants counts every cached handle;
// the remaining lists only name required tenants.
type Report struct {
	Status     string                         `json:"status"`
	Tenants    map[tenant.ConnectionState]int `json:"tenants"`
	Connecting []tenant.ID                    `json:"connecting,omitempty"`
	Failed     []tenant.ID                    `json:"failed,omitempty"`
	Missing    []tenant.ID                    `json:"missing,omitempty"`
}

// Ready reports whether the report describes a ready service.
func (r Report) Ready() bool { return r.Status == StatusUp }

// Checker evaluates readiness.
type Checker struct {
	source   SnapshotSource
	metrics  HealthMetrics
	required []tenant.ID
}

// NewChecker returns a checker over source. Readiness only looks at the
// required tenants, so handles created on demand for other identifiers never
// take the service out of rotation. A nil metrics sink is allowed.
func NewChecker(source SnapshotSource, metrics HealthMetrics, required []tenant.ID) *Checker {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Checker{source: source, metrics: metrics, required: slices.Clone(required)}
}

// Readiness is up only when every required tenant has a connected handle.
// With no required tenants the service is always ready.
func (c *Checker) Readiness(ctx context.Context) Report {
	report := Report{
		Status:  StatusUp,
		Tenants: make(map[tenant.ConnectionState]int),
	}

	states := make(map[tenant.ID]tenant.ConnectionState)
	for _, info := range c.source.Snapshot() {
		report.Tenants[info.State]++
		states[info.TenantID] = info.State
	}

	for _, id := range c.required {
		state, ok := states[id]
		switch {
		case !ok:
			report.Missing = append(report.Missing, id)
		case state == tenant.StateConnecting:
			report.Connecting = append(report.Connecting, id)
		case state == tenant.StateFailed:
			report.Failed = append(report.Failed, id)
		}
	}
	if len(report.Connecting) > 0 || len(report.Failed) > 0 || len(report.Missing) > 0 {
		report.Status = StatusDown
	}

	c.metrics.SetSystemHealth(ctx, report.Ready())
	return report
}
