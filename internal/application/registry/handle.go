package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ascendpay/ascendpay-backend/internal/domain/tenant"
)

// Handle is the registry's entry for one tenant. It is returned before the
// connection is usable; its state moves from connecting to connected or
// failed exactly once.
type Handle struct {
	id        uuid.UUID
	tenantID  tenant.ID
	target    string
	createdAt time.Time
	done      chan struct{}

	mu        sync.RWMutex
	state     tenant.ConnectionState
	conn      Conn
	err       error
	settledAt time.Time
	closed    bool
}

func newHandle(id tenant.ID, target string, now time.Time) *Handle {
	return &Handle{
		id:        uuid.New(),
		tenantID:  id,
		target:    target,
		createdAt: now,
		done:      make(chan struct{}),
		state:     tenant.StateConnecting,
	}
}

// ID uniquely identifies this handle instance.
func (h *Handle) ID() uuid.UUID { return h.id }

// TenantID returns the tenant the handle belongs to.
func (h *Handle) TenantID() tenant.ID { return h.tenantID }

// Target returns the connection address with credentials removed.
func (h *Handle) Target() string { return h.target }

// CreatedAt returns when the handle was placed in the registry.
func (h *Handle) CreatedAt() time.Time { return h.createdAt }

// Done is closed once establishment has settled.
func (h *Handle) Done() <-chan struct{} { return h.done }

// State returns the current connection state.
func (h *Handle) State() tenant.ConnectionState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Err returns the establishment failure, or nil.
func (h *Handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Conn returns the established connection without blocking. It returns
// ErrConnectionPending while connecting and the *ConnectionError once failed.
func (h *Handle) Conn() (Conn, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	switch {
	case h.closed:
		return nil, ErrRegistryClosed
	case h.state == tenant.StateConnected:
		return h.conn, nil
	case h.state == tenant.StateFailed:
		return nil, h.err
	default:
		return nil, ErrConnectionPending
	}
}

// Wait blocks until establishment settles or ctx is done.
func (h *Handle) Wait(ctx context.Context) (Conn, error) {
	select {
	case <-h.done:
		return h.Conn()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// HandleInfo is a point-in-time view of a handle.
type HandleInfo struct {
	TenantID  tenant.ID              `json:"tenant_id"`
	HandleID  uuid.UUID              `json:"handle_id"`
	Target    string                 `json:"target"`
	State     tenant.ConnectionState `json:"state"`
	Error     string                 `json:"error,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	SettledAt *time.Time             `json:"settled_at,omitempty"`
}

// Info returns a snapshot of the handle.
func (h *Handle) Info() HandleInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	info := HandleInfo{
		TenantID:  h.tenantID,
		HandleID:  h.id,
		Target:    h.target,
		State:     h.state,
		CreatedAt: h.createdAt,
	}
	if h.err != nil {
		info.Error = h.err.Error()
	}
	if !h.settledAt.IsZero() {
		settled := h.settledAt
		info.SettledAt = &settled
	}
	return info
}

// settle records the outcome of establishment. A connection delivered after
// the handle was closed is closed immediately.
func (h *Handle) settle(conn Conn, err error, now time.Time) {
	h.mu.Lock()
	if err != nil {
		h.state = tenant.StateFailed
		h.err = err
	} else {
		h.state = tenant.StateConnected
		h.conn = conn
	}
	h.settledAt = now
	closeNow := h.closed && conn != nil
	h.mu.Unlock()

	if closeNow {
		conn.Close()
	}
	close(h.done)
}

func (h *Handle) close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	conn := h.conn
	h.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}
