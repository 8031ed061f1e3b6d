// Package http provides HTTP server components for the ascendpay backend.
package http

import (
	"net/http"
	"time"

	handler "github.com/ascendpay/ascendpay-backend/internal/infra/adapters/http/handler"
	"github.com/ascendpay/ascendpay-backend/pkg/common/logger"
)

// Route patterns served by the API handler.
const (
	ConnectionRoute  = "GET /api/v1/tenants/{tenantId}/connection"
	ConnectionsRoute = "GET /api/v1/tenants/connections"
)

// NewRouter registers the tenant connection endpoints.
func NewRouter(connections *handler.ConnectionHandler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(ConnectionRoute, connections.GetConnection)
	mux.HandleFunc(ConnectionsRoute, connections.ListConnections)
	return mux
}

// NewHTTPServer creates the listener configuration for h. Server errors are
// written through log.
func NewHTTPServer(addr string, h http.Handler, log *logger.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		// Requests may wait up to 30s for a tenant connection to settle.
		WriteTimeout: 40 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     logger.NewStdLogger(log, logger.LevelError),
	}
}
