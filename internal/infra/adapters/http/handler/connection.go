// Package httphandler translates HTTP requests into tenant registry calls and
// maps the results back to JSON responses.
package httphandler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/ascendpay/ascendpay-backend/internal/application/registry"
	"github.com/ascendpay/ascendpay-backend/internal/domain/tenant"
	"github.com/ascendpay/ascendpay-backend/pkg/common/validate"
)

// TenantRegistry is the part of the registry the handlers use.
type TenantRegistry interface {
	GetOrCreate(ctx context.Context, tenantID string) (*registry.Handle, error)
	Snapshot() []registry.HandleInfo
}

// connectionQuery holds the optional query parameters of GetConnection.
type connectionQuery struct {
	Wait time.Duration `json:"wait" validate:"gte=0s,lte=30s"`
}

// ConnectionsResponse lists every cached handle.
type ConnectionsResponse struct {
	Connections []registry.HandleInfo `json:"connections"`
	Count       int                   `json:"count"`
}

// ConnectionHandler serves tenant connection status.
type ConnectionHandler struct {
	registry  TenantRegistry
	validator *validate.Validator
}

// NewConnectionHandler creates a handler over reg.
func NewConnectionHandler(reg TenantRegistry, v *validate.Validator) *ConnectionHandler {
	return &ConnectionHandler{registry: reg, validator: v}
}

// GetConnection resolves the tenant's handle, creating it on first use, and
// optionally waits up to the "wait" query duration for it to settle.
// Connected handles answer 200, connecting ones 202 and failed ones 503.
func (h *ConnectionHandler) GetConnection(w http.ResponseWriter, r *http.Request) {
	// PathValue is already decoded and the binder unescapes again, so the
	// segment is re-escaped to keep ids containing '%' intact.
	var tenantID string
	err := runtime.BindStyledParameterWithOptions("simple", "tenantId", url.PathEscape(r.PathValue("tenantId")), &tenantID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_tenant_id", tenant.ErrInvalidTenantID.Error(),
			map[string]any{"error": err.Error()})
		return
	}

	query, err := h.parseQuery(r)
	if err != nil {
		var fields validate.FieldErrors
		if errors.As(err, &fields) {
			details := make(map[string]any, len(fields))
			for k, v := range fields {
				details[k] = v
			}
			writeError(w, http.StatusBadRequest, "invalid_query", "Invalid query parameters", details)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error(), nil)
		return
	}

	handle, err := h.registry.GetOrCreate(r.Context(), tenantID)
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrInvalidTenantID):
			writeError(w, http.StatusBadRequest, "invalid_tenant_id", err.Error(), nil)
		case errors.Is(err, registry.ErrRegistryClosed):
			writeError(w, http.StatusServiceUnavailable, "shutting_down", "The service is shutting down", nil)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "An internal error occurred",
				map[string]any{"error": err.Error()})
		}
		return
	}

	if query.Wait > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), query.Wait)
		// Settlement errors are reported through the handle info below.
		_, _ = handle.Wait(ctx)
		cancel()
	}

	info := handle.Info()
	status := http.StatusOK
	switch info.State {
	case tenant.StateConnecting:
		status = http.StatusAccepted
	case tenant.StateFailed:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, info)
}

// ListConnections returns a snapshot of every cached handle ordered by tenant.
func (h *ConnectionHandler) ListConnections(w http.ResponseWriter, _ *http.Request) {
	infos := h.registry.Snapshot()
	writeJSON(w, http.StatusOK, ConnectionsResponse{Connections: infos, Count: len(infos)})
}

func (h *ConnectionHandler) parseQuery(r *http.Request) (connectionQuery, error) {
	var q connectionQuery

	raw := r.URL.Query().Get("wait")
	if raw == "" {
		return q, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return q, validate.FieldErrors{"wait": "wait must be a duration such as 500ms or 5s"}
	}
	q.Wait = d

	if err := h.validator.Check(q); err != nil {
		return q, err
	}
	return q, nil
}
