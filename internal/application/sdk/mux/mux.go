// Package mux assembles the service's top level HTTP handler: health probes,
// optional debug endpoints and the middleware-wrapped API routes.
package mux

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/arl/statsviz"
	"go.opentelemetry.io/otel/trace"

	"github.com/ascendpay/ascendpay-backend/internal/application/health"
	"github.com/ascendpay/ascendpay-backend/internal/application/sdk/mid"
	"github.com/ascendpay/ascendpay-backend/pkg/common/logger"
)

// Health probe paths.
const (
	LivenessPath  = "/api/v1/health/liveness"
	ReadinessPath = "/api/v1/health/readiness"
)

// Options represent optional parameters.
type Options struct {
	corsOrigin []string
	statsviz   bool
}

// WithCORS provides configuration options for CORS.
func WithCORS(origins []string) func(opts *Options) {
	return func(opts *Options) {
		opts.corsOrigin = origins
	}
}

// WithStatsViz serves live runtime charts under /debug/statsviz/.
func WithStatsViz(enabled bool) func(opts *Options) {
	return func(opts *Options) {
		opts.statsviz = enabled
	}
}

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Build          string
	Service        string
	Log            *logger.Logger
	TracerProvider trace.TracerProvider
	APIMetrics     mid.APIMetrics
	Health         *health.Checker
}

// healthHandler provides health check endpoints for liveness and readiness probes.
type healthHandler struct {
	build   string
	checker *health.Checker
}

func newHealthHandler(build string, checker *health.Checker) *healthHandler {
	return &healthHandler{build: build, checker: checker}
}

// Liveness returns a simple handler for liveness probe.
// The liveness probe is used to know when to restart a container.
func (h *healthHandler) Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": health.StatusUp, "build": h.build})
	}
}

// Readiness returns a handler for readiness probe.
// The service is ready once every tenant connection it holds is established.
func (h *healthHandler) Readiness() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := h.checker.Readiness(r.Context())

		status := http.StatusOK
		if !report.Ready() {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WrapWithMiddleware applies the standard middleware stack to the API handler
// and mounts it next to the health probes, which bypass the middleware.
func WrapWithMiddleware(cfg Config, handler http.Handler, options ...func(opts *Options)) (http.Handler, error) {
	var opts Options
	for _, option := range options {
		option(&opts)
	}

	chain := mid.GetMiddlewareChain(cfg.Service, cfg.Log, cfg.TracerProvider, cfg.APIMetrics, opts.corsOrigin)
	wrappedHandler := mid.Chain(handler, chain...)

	finalMux := http.NewServeMux()

	healthHandler := newHealthHandler(cfg.Build, cfg.Health)
	finalMux.HandleFunc("GET "+LivenessPath, healthHandler.Liveness())
	finalMux.HandleFunc("GET "+ReadinessPath, healthHandler.Readiness())

	if opts.statsviz {
		if err := statsviz.Register(finalMux); err != nil {
			return nil, fmt.Errorf("registering statsviz: %w", err)
		}
	}

	finalMux.Handle("/", wrappedHandler)

	return finalMux, nil
}
