package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/inkdrop/inkdrop/internal/metrics"
)

// UnmatchedRoute is the path label for requests no route matched.
const UnmatchedRoute = "unmatched"

// Prometheus records request duration and count for each request.
// The path label is the matched chi route pattern, or UnmatchedRoute, so every
// label value comes from the route table.
func Prometheus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrap := wrapWriter(w)
		next.ServeHTTP(wrap, r)
		if r.URL.Path == "/metrics" {
			return
		}
		path := routePattern(r)
		if path == "" {
			path = UnmatchedRoute
		}
		metrics.RecordRequest(r.Method, path, wrap.status, time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}
