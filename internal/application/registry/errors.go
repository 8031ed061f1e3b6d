package registry

import (
	"errors"
	"fmt"

	"github.com/ascendpay/ascendpay-backend/internal/domain/tenant"
)

var (
	// ErrConnectionPending is returned by Handle.Conn while establishment is
	// still running.
	ErrConnectionPending = errors.New("tenant connection is still being established")
	// ErrRegistryClosed is returned once the registry has been shut down.
	ErrRegistryClosed = errors.New("tenant connection registry is closed")
)

// ConnectionError reports an asynchronous failure to establish a tenant's
// connection. It is never returned from GetOrCreate; callers observe it
// through the handle or a Listener.
type ConnectionError struct {
	TenantID tenant.ID
	// Step is the establishment step that failed ("open", "ping" or "prepare").
	Step string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting database for tenant %q failed at %s: %v", e.TenantID, e.Step, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
