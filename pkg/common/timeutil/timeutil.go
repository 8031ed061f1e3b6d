// Package timeutil provides an injectable clock so code that stamps times
// (handle creation, connection settlement) can be tested deterministically.
package timeutil

import (
	"sync"
	"time"
)

// Provider defines an interface for reading the current time.
type Provider interface {
	// Now returns the current time.
	Now() time.Time
}

// RealProvider is the default implementation of Provider backed by the
// system clock.
type RealProvider struct{}

// Now returns the current time in UTC.
func (RealProvider) Now() time.Time { return time.Now().UTC() }

// Default returns a Provider implementation that uses the real system time.
func Default() Provider { return RealProvider{} }

// Mock is a Provider for tests. It is safe for concurrent use because the
// registry reads the clock from establishment goroutines.
type Mock struct {
	mu      sync.Mutex
	current time.Time
}

// NewMock creates a new mock time provider with the specified time.
func NewMock(t time.Time) *Mock { return &Mock{current: t} }

// Now returns the preset time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SetNow directly sets the current time to the provided time.
func (m *Mock) SetNow(t time.Time) {
	m.mu.Lock()
	m.current = t
	m.mu.Unlock()
}

// Advance moves the mock time forward by the specified duration.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.current = m.current.Add(d)
	m.mu.Unlock()
}
