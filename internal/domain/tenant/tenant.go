// Package tenant holds the domain types shared by everything that deals with
// per-bank databases: the tenant identifier and the connection lifecycle.
package tenant

import "errors"

// Common errors
var (
	// ErrInvalidTenantID is the InvalidArgument failure: the identifier was
	// missing or empty.
	ErrInvalidTenantID = errors.New("tenant id must be provided")
)

// ID names a logical customer (a bank such as "fnb" or "absa") whose data
// lives in its own database.
type ID string

// ParseID validates a raw identifier. Any non-empty string is accepted.
func ParseID(raw string) (ID, error) {
	if raw == "" {
		return "", ErrInvalidTenantID
	}
	return ID(raw), nil
}

// String returns the identifier as a plain string.
func (id ID) String() string { return string(id) }

// ConnectionState tracks a tenant connection from creation to settlement.
type ConnectionState string

// Predefined connection states. A connection starts as connecting and settles
// exactly once, into connected or failed.
const (
	StateConnecting ConnectionState = "connecting"
	StateConnected  ConnectionState = "connected"
	StateFailed     ConnectionState = "failed"
)

// IsSettled reports whether establishment has finished, successfully or not.
func (s ConnectionState) IsSettled() bool {
	return s == StateConnected || s == StateFailed
}

// IsValid reports whether s is one of the predefined states.
func (s ConnectionState) IsValid() bool {
	switch s {
	case StateConnecting, StateConnected, StateFailed:
		return true
	default:
		return false
	}
}
