package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/sp3dr4/snip/internal/pkg/logging"
)

const traceHeader = "X-Trace-Id"

// probePaths are polled by orchestrators and logged at debug level only.
var probePaths = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/healthz": true,
}

// LoggingMiddleware puts a request-scoped logger carrying request and trace ids
// into the context and logs one line per completed request.
func LoggingMiddleware(baseLogger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			traceID := r.Header.Get(traceHeader)
			if traceID == "" {
				traceID = logging.NewTraceID()
			}
			w.Header().Set(traceHeader, traceID)

			ctx, requestLogger := logging.Scoped(r.Context(), baseLogger, logging.Scope{
				RequestID: middleware.GetReqID(r.Context()),
				TraceID:   traceID,
			})

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			requestLogger.Log(ctx, completionLevel(r.URL.Path, status), "Request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"status_code", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", float64(time.Since(start).Nanoseconds())/1e6,
			)
		})
	}
}

func completionLevel(path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case probePaths[path]:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
