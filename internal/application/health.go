package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sp3dr4/snip/internal/domain"
	"github.com/sp3dr4/snip/internal/pkg/metrics"
)

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusDisabled     = "disabled"

	DefaultProbeTimeout  = 2 * time.Second
	DefaultProbeSchedule = "@every 30s"
)

type HealthReport struct {
	OK        bool      `json:"ok"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
	Cache     string    `json:"cache"`
	Error     string    `json:"error,omitempty"`
}

type HealthOptions struct {
	Version      string
	ProbeTimeout time.Duration
	Metrics      metrics.Registry
	Now          func() time.Time
}

// HealthReporter probes the store and, when configured, the cache.
// A nil cache is reported as disabled.
type HealthReporter struct {
	repo      domain.LinkRepository
	cache     domain.Cache
	logger    *slog.Logger
	metrics   metrics.Registry
	version   string
	timeout   time.Duration
	now       func() time.Time
	startedAt time.Time
}

func NewHealthReporter(repo domain.LinkRepository, cache domain.Cache, opts HealthOptions, logger *slog.Logger) *HealthReporter {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoOpRegistry()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &HealthReporter{
		repo:      repo,
		cache:     cache,
		logger:    logger,
		metrics:   opts.Metrics,
		version:   opts.Version,
		timeout:   opts.ProbeTimeout,
		now:       opts.Now,
		startedAt: opts.Now(),
	}
}

// Report never fails because of a dependency. OK is false only when a
// probe panicked.
func (h *HealthReporter) Report(ctx context.Context) *HealthReport {
	now := h.now()
	report := &HealthReport{
		OK:        true,
		Version:   h.version,
		Uptime:    now.Sub(h.startedAt).Truncate(time.Second).String(),
		Timestamp: now.UTC(),
		Database:  StatusDisconnected,
		Cache:     StatusDisabled,
	}

	dbUp, cacheUp, err := h.probe(ctx)
	if err != nil {
		h.logger.Error("Health probe failed", "error", err)
		report.OK = false
		report.Error = err.Error()
		return report
	}

	if dbUp {
		report.Database = StatusConnected
	}
	if h.cache != nil {
		report.Cache = StatusDisconnected
		if cacheUp {
			report.Cache = StatusConnected
		}
	}
	return report
}

// Probe checks dependencies and publishes their state as gauges.
func (h *HealthReporter) Probe(ctx context.Context) {
	dbUp, cacheUp, err := h.probe(ctx)
	if err != nil {
		h.logger.Error("Health probe failed", "error", err)
	}

	h.metrics.SetDependencyUp(metrics.DependencyDatabase, dbUp)
	if h.cache != nil {
		h.metrics.SetDependencyUp(metrics.DependencyCache, cacheUp)
	}
	if !dbUp || (h.cache != nil && !cacheUp) {
		h.logger.Warn("Dependency probe failed", "database_up", dbUp, "cache_up", cacheUp)
	}
}

// probe checks the store and the cache concurrently, each under its own timeout.
// A panicking check is reported as down and surfaced as err.
func (h *HealthReporter) probe(ctx context.Context) (dbUp, cacheUp bool, err error) {
	type result struct {
		cache bool
		up    bool
		err   error
	}

	results := make(chan result, 2)
	check := func(cache bool, fn func(context.Context) error) {
		res := result{cache: cache}
		defer func() {
			if r := recover(); r != nil {
				res.err = fmt.Errorf("health check panicked: %v", r)
			}
			results <- res
		}()

		probeCtx, cancel := context.WithTimeout(ctx, h.timeout)
		defer cancel()
		res.up = fn(probeCtx) == nil
	}

	pending := 1
	go check(false, h.repo.HealthCheck)
	if h.cache != nil {
		pending++
		go check(true, h.cache.Ping)
	}

	for i := 0; i < pending; i++ {
		r := <-results
		if r.err != nil && err == nil {
			err = r.err
		}
		if r.cache {
			cacheUp = r.up
		} else {
			dbUp = r.up
		}
	}
	return dbUp, cacheUp, err
}

// HealthMonitor runs Probe on a cron schedule.
type HealthMonitor struct {
	cron     *cron.Cron
	reporter *HealthReporter
	logger   *slog.Logger
	schedule string
}

func NewHealthMonitor(reporter *HealthReporter, schedule string, logger *slog.Logger) (*HealthMonitor, error) {
	if schedule == "" {
		schedule = DefaultProbeSchedule
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	m := &HealthMonitor{cron: c, reporter: reporter, logger: logger, schedule: schedule}
	if _, err := c.AddFunc(schedule, func() { reporter.Probe(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid health probe schedule %q: %w", schedule, err)
	}
	return m, nil
}

func (m *HealthMonitor) Start() {
	m.reporter.Probe(context.Background())
	m.cron.Start()
	m.logger.Info("Health monitor started", "schedule", m.schedule)
}

// Stop halts the scheduler and waits for a running probe until ctx is done.
func (m *HealthMonitor) Stop(ctx context.Context) error {
	done := m.cron.Stop()
	select {
	case <-done.Done():
		m.logger.Info("Health monitor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
