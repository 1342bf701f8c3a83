package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HTTPMiddleware records request count, latency and in-flight requests per
// route pattern. Scrapes of metricsPath are not counted.
func HTTPMiddleware(registry Registry, metricsPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metricsPath != "" && r.URL.Path == metricsPath {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			registry.IncHTTPRequestsInFlight()
			defer registry.DecHTTPRequestsInFlight()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			registry.RecordHTTPRequest(r.Method, RoutePath(r), strconv.Itoa(status), time.Since(start).Seconds())
		})
	}
}

// RoutePath returns the chi route pattern that matched r. It is only complete
// once routing has finished.
func RoutePath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return NormalizePath(r.URL.Path)
}

// NormalizePath folds short codes out of unrouted paths so label
// cardinality stays bounded.
func NormalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}

	switch {
	case path == "/health", path == "/ready", path == "/healthz", path == "/metrics", path == "/redoc":
		return path
	case path == "/api/links" || path == "/api/links/":
		return "/api/links"
	case strings.HasPrefix(path, "/api/links/"):
		return "/api/links/{code}"
	case strings.HasPrefix(path, "/swagger"):
		return "/swagger/*"
	}

	if trimmed := strings.Trim(path, "/"); trimmed != "" && !strings.Contains(trimmed, "/") {
		return "/{code}"
	}
	return path
}
