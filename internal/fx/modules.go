package fx

import (
	"go.uber.org/fx"

	"github.com/sp3dr4/snip/config"
	httpFX "github.com/sp3dr4/snip/internal/fx/http"
)

// ConfigModule loads the configuration from file, .env and environment
var ConfigModule = fx.Module("config",
	fx.Provide(config.Load),
)

// InfrastructureModule provides the logger, the store and the cache
var InfrastructureModule = fx.Module("infrastructure",
	fx.Provide(ProvideLogger),
	fx.Provide(ProvideRepository),
	fx.Provide(ProvideRedisClient),
	fx.Provide(ProvideCache),
)

// ApplicationModule provides link resolution, click recording and health reporting
var ApplicationModule = fx.Module("application",
	fx.Provide(ProvideClickRecorder),
	fx.Provide(ProvideRecorder),
	fx.Provide(ProvideLinkService),
	fx.Provide(ProvideHealthReporter),
	fx.Provide(ProvideHealthMonitor),
)

// MetricsModule provides the Prometheus registry, or a no-op one
var MetricsModule = fx.Module("metrics",
	fx.Provide(ProvideMetricsRegistry),
)

// CoreLifecycleModule registers hooks shared by all entrypoints. Stop hooks run
// in reverse, so the recorder drains before the cache and repository close.
var CoreLifecycleModule = fx.Module("core-lifecycle",
	fx.Invoke(RegisterRepositoryHooks),
	fx.Invoke(RegisterCacheHooks),
	fx.Invoke(RegisterRecorderHooks),
	fx.Invoke(RegisterHealthMonitorHooks),
)

// CoreModules is everything except a transport.
var CoreModules = fx.Options(
	ConfigModule,
	InfrastructureModule,
	ApplicationModule,
	MetricsModule,
	CoreLifecycleModule,
)

// ServerModules is the HTTP server application run by cmd/server.
var ServerModules = fx.Options(
	CoreModules,
	httpFX.HTTPModule,
	httpFX.HTTPLifecycleModule,
)
