package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ascendpay/ascendpay-backend/internal/application/registry"
	"github.com/ascendpay/ascendpay-backend/internal/domain/tenant"
)

// DefaultConnectTimeout is the default time to wait for a handle to settle.
const DefaultConnectTimeout = 30 * time.Second

// ErrConnectTimeout is returned when a handle doesn't settle in the expected time.
var ErrConnectTimeout = errors.New("tenant connection timeout")

// WaitForState polls a handle until it reaches the expected state, settles
// in a different one, or times out.
func WaitForState(
	ctx context.Context,
	t *testing.T,
	h *registry.Handle,
	expected tenant.ConnectionState,
	timeout time.Duration,
) (tenant.ConnectionState, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Logged on every tick so slow containers are visible in test output.
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return h.State(), ErrConnectTimeout
		case <-ticker.C:
			state := h.State()
			t.Logf("Tenant %s handle %s state: %s", h.TenantID(), h.ID(), state)

			if state == expected {
				return state, nil
			}

			if state.IsSettled() {
				t.Logf("Tenant %s settled in %s, but expected %s", h.TenantID(), state, expected)
				if err := h.Err(); err != nil {
					t.Logf("Error details for tenant %s: %v", h.TenantID(), err)
				}
				return state, nil
			}
		}
	}
}
