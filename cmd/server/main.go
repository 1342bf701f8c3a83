// Package main runs the snip URL shortener.
//
//	@title			Snip URL Shortener API
//	@version		1.0
//	@description	Short links with cached redirects and click analytics
//	@host			localhost:8080
//	@BasePath		/
//	@schemes		http https
package main

import (
	"log/slog"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	_ "github.com/sp3dr4/snip/docs"
	snipfx "github.com/sp3dr4/snip/internal/fx"
)

func main() {
	fx.New(
		snipfx.ServerModules,
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger}
		}),
	).Run()
}
