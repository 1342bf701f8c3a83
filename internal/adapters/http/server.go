package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpswagger "github.com/swaggo/http-swagger"

	"github.com/sp3dr4/snip/config"
	"github.com/sp3dr4/snip/internal/pkg/metrics"
)

const redocPage = `<!DOCTYPE html>
<html>
<head>
  <title>Snip API</title>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <style>body { margin: 0; }</style>
</head>
<body>
  <redoc spec-url="/swagger/doc.json"></redoc>
  <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
</body>
</html>`

// NewRouter mounts the probes, the docs, the link API and, last, the
// catch-all short code redirect.
func NewRouter(handlers *Handlers, logger *slog.Logger, cfg *config.Config, metricsRegistry metrics.Registry) chi.Router {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		LoggingMiddleware(logger),
		metrics.HTTPMiddleware(metricsRegistry, cfg.Metrics.Path),
		middleware.Recoverer,
	)

	r.Get("/health", handlers.HandleHealth)
	r.Get("/ready", handlers.HandleReady)
	r.Get("/healthz", handlers.HandleHealthz)

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, metricsRegistry.GetHandler())
	}

	docURL := strings.TrimRight(cfg.App.BaseURL, "/") + "/swagger/doc.json"
	r.Get("/swagger/*", httpswagger.Handler(httpswagger.URL(docURL)))
	r.Get("/redoc", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(redocPage))
	})

	r.Route("/api/links", func(r chi.Router) {
		r.Post("/", handlers.HandleCreateLink)
		r.Get("/", handlers.HandleListLinks)
		r.Get("/{code}", handlers.HandleGetLink)
		r.Delete("/{code}", handlers.HandleDeleteLink)
	})

	r.Get("/{code}", handlers.HandleRedirect)
	r.Head("/{code}", handlers.HandleRedirectHead)

	return r
}
