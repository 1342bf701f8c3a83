package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	postgresContainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	redisContainer "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sp3dr4/snip/internal/application"
	postgresRepo "github.com/sp3dr4/snip/internal/infrastructure/postgres"
	redisCache "github.com/sp3dr4/snip/internal/infrastructure/redis"
	"github.com/sp3dr4/snip/migrations"
)

const (
	testBaseURL   = "http://localhost:8080"
	testKeyPrefix = "snip:"
)

var (
	sharedPostgres *postgresContainer.PostgresContainer
	sharedRedis    *redisContainer.RedisContainer
	sharedDB       *sqlx.DB
	sharedClient   *redis.Client
	setupErr       error
	containerOnce  sync.Once
	cleanupOnce    sync.Once
)

// TestEnvironment holds the test setup
type TestEnvironment struct {
	DB          *sqlx.DB
	RedisClient *redis.Client
	Repo        *postgresRepo.LinkRepository
	Cache       *redisCache.RedisCache
	Recorder    *application.ClickRecorder
	Service     *application.LinkService
	Health      *application.HealthReporter
}

// SetupTestEnvironment starts shared PostgreSQL and Redis containers, cleans both and returns a wired LinkService
func SetupTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	containerOnce.Do(func() {
		setupErr = startContainers(context.Background())
	})
	if setupErr != nil {
		t.Fatalf("failed to set up test environment: %v", setupErr)
	}

	cleanState(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := postgresRepo.NewLinkRepository(sharedDB)
	cache := redisCache.NewRedisCache(sharedClient, testKeyPrefix, logger)

	recorder := application.NewClickRecorder(repo, application.RecorderOptions{Workers: 4, QueueSize: 64, Cache: cache}, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = recorder.Close(ctx)
	})

	service := application.NewLinkService(repo, cache, recorder, application.Options{
		BaseURL:  testBaseURL,
		CacheTTL: time.Hour,
	}, logger)

	return &TestEnvironment{
		DB:          sharedDB,
		RedisClient: sharedClient,
		Repo:        repo,
		Cache:       cache,
		Recorder:    recorder,
		Service:     service,
		Health:      application.NewHealthReporter(repo, cache, application.HealthOptions{Version: "integration"}, logger),
	}
}

func startContainers(ctx context.Context) error {
	pg, err := postgresContainer.Run(ctx,
		"postgres:16-alpine",
		postgresContainer.WithDatabase("snip_test"),
		postgresContainer.WithUsername("test"),
		postgresContainer.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return fmt.Errorf("failed to start postgres container: %w", err)
	}
	sharedPostgres = pg

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fmt.Errorf("failed to get connection string: %w", err)
	}

	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sharedDB = db

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := migrations.Run(db.DB, migrations.DriverPostgres, logger); err != nil {
		return err
	}

	rc, err := redisContainer.Run(ctx, "redis:7-alpine")
	if err != nil {
		return fmt.Errorf("failed to start redis container: %w", err)
	}
	sharedRedis = rc

	redisURL, err := rc.ConnectionString(ctx)
	if err != nil {
		return fmt.Errorf("failed to get redis connection string: %w", err)
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse redis url: %w", err)
	}
	sharedClient = redis.NewClient(opts)

	return sharedClient.Ping(ctx).Err()
}

// CleanupSharedResources should be called once at the end of all tests
func CleanupSharedResources() {
	cleanupOnce.Do(func() {
		ctx := context.Background()
		if sharedClient != nil {
			_ = sharedClient.Close()
		}
		if sharedDB != nil {
			_ = sharedDB.Close()
		}
		if sharedRedis != nil {
			_ = sharedRedis.Terminate(ctx)
		}
		if sharedPostgres != nil {
			_ = sharedPostgres.Terminate(ctx)
		}
	})
}

// cleanState truncates the links table and flushes redis to ensure test isolation
func cleanState(t *testing.T) {
	t.Helper()

	if _, err := sharedDB.Exec("TRUNCATE TABLE links RESTART IDENTITY CASCADE"); err != nil {
		t.Fatalf("failed to clean database: %v", err)
	}
	if err := sharedClient.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("failed to flush redis: %v", err)
	}
}
