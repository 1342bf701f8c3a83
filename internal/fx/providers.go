package fx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/sp3dr4/snip/config"
	"github.com/sp3dr4/snip/internal/application"
	"github.com/sp3dr4/snip/internal/domain"
	cacheImpl "github.com/sp3dr4/snip/internal/infrastructure/cache"
	memoryRepo "github.com/sp3dr4/snip/internal/infrastructure/memory"
	postgresRepo "github.com/sp3dr4/snip/internal/infrastructure/postgres"
	redisCache "github.com/sp3dr4/snip/internal/infrastructure/redis"
	sqliteRepo "github.com/sp3dr4/snip/internal/infrastructure/sqlite"
	"github.com/sp3dr4/snip/internal/pkg/metrics"
	"github.com/sp3dr4/snip/migrations"
)

// ProvideLogger creates the application logger from the logging config and installs it as default
func ProvideLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Logging.Format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ProvideRepository creates the appropriate repository based on configuration
func ProvideRepository(cfg *config.Config, logger *slog.Logger) (domain.LinkRepository, error) {
	switch cfg.Database.Type {
	case "memory":
		logger.Info("Using in-memory repository")
		return memoryRepo.NewLinkRepository(), nil

	case "sqlite":
		dbPath := cfg.GetDatabaseURL()
		logger.Info("Using SQLite repository", "path", dbPath)

		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}

		db, err := sqlx.Connect("sqlite3", dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
		}
		// sqlite has a single writer
		db.SetMaxOpenConns(1)

		if err := migrations.Run(db.DB, migrations.DriverSQLite, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
		return sqliteRepo.NewLinkRepository(db), nil

	case "postgres":
		logger.Info("Using PostgreSQL repository")

		db, err := sqlx.Connect("postgres", cfg.GetDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}

		if err := migrations.Run(db.DB, migrations.DriverPostgres, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
		return postgresRepo.NewLinkRepository(db), nil

	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
}

// ProvideRedisClient creates the redis client, or nil when caching is disabled
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Cache.Enabled {
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:         cfg.Cache.Addr,
		Password:     cfg.Cache.Password,
		DB:           cfg.Cache.DB,
		DialTimeout:  cfg.Cache.DialTimeout,
		ReadTimeout:  cfg.Cache.ReadTimeout,
		WriteTimeout: cfg.Cache.WriteTimeout,
	})
}

// ProvideCache returns the redis cache, or an always-miss cache when caching is disabled
func ProvideCache(cfg *config.Config, client *redis.Client, logger *slog.Logger) domain.Cache {
	if client == nil {
		logger.Info("Cache disabled")
		return cacheImpl.NewNoOpCache()
	}

	logger.Info("Using Redis cache", "addr", cfg.Cache.Addr, "prefix", cfg.Cache.KeyPrefix)
	return redisCache.NewRedisCache(client, cfg.Cache.KeyPrefix, logger)
}

// ProvideMetricsRegistry creates the Prometheus registry, or a no-op one when metrics are disabled
func ProvideMetricsRegistry(cfg *config.Config) (metrics.Registry, error) {
	if !cfg.Metrics.Enabled {
		return metrics.NewNoOpRegistry(), nil
	}
	return metrics.NewPrometheusRegistry(cfg.Metrics)
}

// ProvideClickRecorder starts the background click workers
func ProvideClickRecorder(cfg *config.Config, repo domain.LinkRepository, cache domain.Cache, registry metrics.Registry, logger *slog.Logger) *application.ClickRecorder {
	return application.NewClickRecorder(repo, application.RecorderOptions{
		Workers:   cfg.Analytics.Workers,
		QueueSize: cfg.Analytics.QueueSize,
		Timeout:   cfg.Analytics.Timeout,
		Metrics:   registry,
		Cache:     cache,
	}, logger)
}

func ProvideRecorder(recorder *application.ClickRecorder) application.Recorder {
	return recorder
}

// LinkServiceParams holds the dependencies of the link service
type LinkServiceParams struct {
	fx.In

	Config     *config.Config
	Repository domain.LinkRepository
	Cache      domain.Cache
	Recorder   application.Recorder
	Metrics    metrics.Registry
	Logger     *slog.Logger
}

func ProvideLinkService(params LinkServiceParams) *application.LinkService {
	return application.NewLinkService(params.Repository, params.Cache, params.Recorder, application.Options{
		BaseURL:         params.Config.App.BaseURL,
		CacheTTL:        params.Config.App.CacheTTL,
		MaxCodeAttempts: params.Config.App.MaxCodeAttempts,
		Metrics:         params.Metrics,
	}, params.Logger)
}

// ProvideHealthReporter reports the cache as disabled unless it is configured
func ProvideHealthReporter(cfg *config.Config, repo domain.LinkRepository, cache domain.Cache, registry metrics.Registry, logger *slog.Logger) *application.HealthReporter {
	var probed domain.Cache
	if cfg.Cache.Enabled {
		probed = cache
	}

	return application.NewHealthReporter(repo, probed, application.HealthOptions{
		Version:      cfg.App.Version,
		ProbeTimeout: cfg.Health.ProbeTimeout,
		Metrics:      registry,
	}, logger)
}

func ProvideHealthMonitor(cfg *config.Config, reporter *application.HealthReporter, logger *slog.Logger) (*application.HealthMonitor, error) {
	return application.NewHealthMonitor(reporter, cfg.Health.ProbeSchedule, logger)
}

// RepositoryParams holds the parameters needed for repository lifecycle management
type RepositoryParams struct {
	fx.In

	Repository domain.LinkRepository
	Logger     *slog.Logger
}

// RegisterRepositoryHooks closes the repository after everything using it has stopped
func RegisterRepositoryHooks(lc fx.Lifecycle, params RepositoryParams) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := params.Repository.Close(); err != nil {
				params.Logger.Error("Failed to close repository resources", "error", err)
				return err
			}
			params.Logger.Info("Repository resources closed successfully")
			return nil
		},
	})
}

// CacheParams holds the parameters needed for cache lifecycle management
type CacheParams struct {
	fx.In

	Client *redis.Client `optional:"true"`
	Cache  domain.Cache
	Logger *slog.Logger
}

// RegisterCacheHooks checks the cache on start and closes the client on stop.
// An unreachable cache only degrades the service, so start never fails on it.
func RegisterCacheHooks(lc fx.Lifecycle, params CacheParams) {
	if params.Client == nil {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := params.Cache.Ping(ctx); err != nil {
				params.Logger.Warn("Cache unreachable at startup, serving from store", "error", err)
				return nil
			}
			params.Logger.Info("Cache connection established")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := params.Client.Close(); err != nil {
				params.Logger.Error("Failed to close cache client", "error", err)
				return err
			}
			params.Logger.Info("Cache client closed successfully")
			return nil
		},
	})
}

// RegisterRecorderHooks drains pending clicks before the repository closes
func RegisterRecorderHooks(lc fx.Lifecycle, recorder *application.ClickRecorder) {
	lc.Append(fx.Hook{
		OnStop: recorder.Close,
	})
}

// RegisterHealthMonitorHooks runs the background dependency prober for the app lifetime
func RegisterHealthMonitorHooks(lc fx.Lifecycle, monitor *application.HealthMonitor) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			monitor.Start()
			return nil
		},
		OnStop: monitor.Stop,
	})
}
