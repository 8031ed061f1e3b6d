package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ascendpay/ascendpay-backend/internal/application/registry"
	"github.com/ascendpay/ascendpay-backend/internal/domain/tenant"
)

type staticSource []registry.HandleInfo

func (s staticSource) Snapshot() []registry.HandleInfo { return s }

type mockHealthMetrics struct{ mock.Mock }

func (m *mockHealthMetrics) SetSystemHealth(ctx context.Context, ready bool) { m.Called(ctx, ready) }

func TestChecker_Readiness(t *testing.T) {
	t.Parallel()

	banks := []tenant.ID{"absa", "fnb"}

	tests := []struct {
		name           string
		source         staticSource
		required       []tenant.ID
		wantReady      bool
		wantConnecting []tenant.ID
		wantFailed     []tenant.ID
		wantMissing    []tenant.ID
	}{
		{name: "nothing required", source: nil, wantReady: true},
		{
			name: "all connected",
			source: staticSource{
				{TenantID: "absa", State: tenant.StateConnected},
				{TenantID: "fnb", State: tenant.StateConnected},
			},
			required:  banks,
			wantReady: true,
		},
		{
			name: "one connecting",
			source: staticSource{
				{TenantID: "absa", State: tenant.StateConnected},
				{TenantID: "fnb", State: tenant.StateConnecting},
			},
			required:       banks,
			wantConnecting: []tenant.ID{"fnb"},
		},
		{
			name: "one failed",
			source: staticSource{
				{TenantID: "absa", State: tenant.StateFailed},
				{TenantID: "fnb", State: tenant.StateConnected},
			},
			required:   banks,
			wantFailed: []tenant.ID{"absa"},
		},
		{
			name:        "required tenant never registered",
			source:      staticSource{{TenantID: "fnb", State: tenant.StateConnected}},
			required:    banks,
			wantMissing: []tenant.ID{"absa"},
		},
		{
			name: "failed on-demand tenant is ignored",
			source: staticSource{
				{TenantID: "absa", State: tenant.StateConnected},
				{TenantID: "fnb", State: tenant.StateConnected},
				{TenantID: "no-such-bank", State: tenant.StateFailed},
				{TenantID: "nedbank", State: tenant.StateConnecting},
			},
			required:  banks,
			wantReady: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := new(mockHealthMetrics)
			metrics.On("SetSystemHealth", mock.Anything, tt.wantReady).Return().Once()

			report := NewChecker(tt.source, metrics, tt.required).Readiness(context.Background())

			assert.Equal(t, tt.wantReady, report.Ready())
			assert.Equal(t, tt.wantConnecting, report.Connecting)
			assert.Equal(t, tt.wantFailed, report.Failed)
			assert.Equal(t, tt.wantMissing, report.Missing)
			assert.Equal(t, len(tt.source), sum(report.Tenants))
			metrics.AssertExpectations(t)
		})
	}
}

func TestChecker_FailedOnDemandTenantStaysUp(t *testing.T) {
	t.Parallel()

	source := staticSource{{TenantID: "fnb", State: tenant.StateConnected}}
	checker := NewChecker(&source, nil, []tenant.ID{"fnb"})

	assert.Equal(t, StatusUp, checker.Readiness(context.Background()).Status)

	// A cached failure for an unknown bank never clears, and must not matter.
	source = append(source, registry.HandleInfo{TenantID: "no-such-bank", State: tenant.StateFailed})

	for range 2 {
		report := checker.Readiness(context.Background())
		assert.Equal(t, StatusUp, report.Status)
		assert.Empty(t, report.Failed)
		assert.Equal(t, 1, report.Tenants[tenant.StateFailed])
	}
}

func TestChecker_NilMetrics(t *testing.T) {
	t.Parallel()

	report := NewChecker(staticSource{{TenantID: "fnb", State: tenant.StateConnected}}, nil, nil).
		Readiness(context.Background())

	assert.Equal(t, StatusUp, report.Status)
	assert.Equal(t, 1, report.Tenants[tenant.StateConnected])
}

func sum(m map[tenant.ConnectionState]int) int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}
