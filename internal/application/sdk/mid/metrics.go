package mid

import (
	"context"
	"net/http"
	"time"
)

// APIMetrics defines metrics for API operations.
type APIMetrics interface {
	// ObserveRequestLatency records the latency of a completed request.
	ObserveRequestLatency(ctx context.Context, route string, method string, statusCode int, duration time.Duration)

	// IncRequestCount counts a completed request by route and status.
	IncRequestCount(ctx context.Context, route string, method string, statusCode int)

	// TrackInFlight counts f as an in-flight request while it runs. The
	// route is not known until the mux has matched, so only the method is used.
	TrackInFlight(ctx context.Context, method string, f func())
}

// MetricsMiddleware creates middleware that records API metrics. The route is
// the pattern the mux matched, read after the request was served.
func MetricsMiddleware(metrics APIMetrics) HTTPMiddleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}

			metrics.TrackInFlight(r.Context(), r.Method, func() {
				next.ServeHTTP(sw, r)
			})

			route := routeOf(r)
			metrics.IncRequestCount(r.Context(), route, r.Method, sw.Status())
			metrics.ObserveRequestLatency(r.Context(), route, r.Method, sw.Status(), time.Since(start))
		})
	}
}
