// Package mid provides app level middleware support.
package mid

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/ascendpay/ascendpay-backend/pkg/common/logger"
)

// HTTPMiddleware represents a standard Go HTTP middleware function. It wraps an HTTP
// handler and returns a new handler, allowing for pre and post-processing of requests.
type HTTPMiddleware func(http.Handler) http.Handler

// Chain wraps h so that the first middleware is the outermost.
func Chain(h http.Handler, mw ...HTTPMiddleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code and passes it to the wrapped ResponseWriter.
func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

// Write captures a 200 status if WriteHeader hasn't been called yet.
func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Status returns the status written so far, 200 if nothing was written.
func (w *statusWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// routeOf returns the pattern the mux matched, once the request was served.
func routeOf(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	return r.Pattern
}

// LoggerHTTP provides a standard HTTP middleware for request logging. It logs the
// start and completion of HTTP requests along with important request metadata
// such as method, path, status code, and duration.
func LoggerHTTP(log *logger.Logger) HTTPMiddleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			sw := &statusWriter{ResponseWriter: w}

			log.Debug(ctx, "request started",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			next.ServeHTTP(sw, r)

			log.Info(ctx, "request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"route", routeOf(r),
				"remote_addr", r.RemoteAddr,
				"status_code", sw.Status(),
				"took", time.Since(start).String(),
			)
		})
	}
}

// Panics recovers from panics in later handlers, logs the stack and answers
// 500 when nothing has been written yet.
func Panics(log *logger.Logger) HTTPMiddleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w}

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err := fmt.Errorf("panic: %v", rec)
				trace.SpanFromContext(r.Context()).RecordError(err)
				log.Error(r.Context(), "request panicked",
					"method", r.Method,
					"path", r.URL.Path,
					"error", err,
					"stack", string(debug.Stack()),
				)

				if sw.status == 0 {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{"error": http.StatusText(http.StatusInternalServerError)})
				}
			}()

			next.ServeHTTP(sw, r)
		})
	}
}

// OtelHTTP provides a standard HTTP middleware for OpenTelemetry tracing. It
// extracts the incoming trace context, opens a server span per request and
// records the standard HTTP server metrics.
func OtelHTTP(service string, tp trace.TracerProvider) HTTPMiddleware {
	return otelhttp.NewMiddleware(service,
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// CORS answers preflight requests and sets Access-Control-Allow-Origin for
// allowed origins. A "*" entry allows any origin.
func CORS(origins []string) HTTPMiddleware {
	allowed := func(origin string) bool {
		for _, host := range origins {
			if host == "*" || host == origin {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && allowed(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetMiddlewareChain returns the standard middleware stack, outermost first.
// Tracing wraps everything so logs and metrics carry the span context; panic
// recovery sits closest to the handlers.
func GetMiddlewareChain(
	service string,
	log *logger.Logger,
	tp trace.TracerProvider,
	metrics APIMetrics,
	corsOrigins []string,
) []HTTPMiddleware {
	chain := []HTTPMiddleware{OtelHTTP(service, tp)}
	if len(corsOrigins) > 0 {
		chain = append(chain, CORS(corsOrigins))
	}
	return append(chain,
		LoggerHTTP(log),
		MetricsMiddleware(metrics),
		Panics(log),
	)
}
