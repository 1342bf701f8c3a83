package http

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/sp3dr4/snip/config"
	httpAdapter "github.com/sp3dr4/snip/internal/adapters/http"
	"github.com/sp3dr4/snip/internal/server"
)

// HTTPModule builds the handlers, the router and the listener without starting it.
var HTTPModule = fx.Module("http",
	fx.Provide(
		ProvideHandlers,
		httpAdapter.NewRouter,
		ProvideHTTPServer,
	),
)

// HTTPLifecycleModule binds the listener on start and drains it on stop.
var HTTPLifecycleModule = fx.Module("http-lifecycle",
	fx.Invoke(RegisterHTTPServerHooks),
)

type serverHookParams struct {
	fx.In

	Server server.Server
	Config *config.Config
	Logger *slog.Logger
}

// RegisterHTTPServerHooks must be invoked after the core hooks so the listener
// stops before pending clicks are drained.
func RegisterHTTPServerHooks(lc fx.Lifecycle, params serverHookParams) {
	cfg := params.Config
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := params.Server.Start(ctx); err != nil {
				return err
			}
			params.Logger.Info("Snip listening",
				"addr", params.Server.Addr(),
				"base_url", cfg.App.BaseURL,
				"database", cfg.Database.Type,
				"cache_enabled", cfg.Cache.Enabled,
				"version", cfg.App.Version,
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			params.Logger.Info("Draining HTTP connections")
			if err := params.Server.Stop(ctx); err != nil {
				params.Logger.Error("HTTP shutdown did not complete", "error", err)
				return err
			}
			return nil
		},
	})
}
