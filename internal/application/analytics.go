package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sp3dr4/snip/internal/domain"
	"github.com/sp3dr4/snip/internal/pkg/metrics"
)

const (
	DefaultRecorderWorkers   = 4
	DefaultRecorderQueueSize = 1024
	DefaultRecorderTimeout   = 5 * time.Second
)

// Recorder accepts clicks without blocking the caller.
type Recorder interface {
	Record(code string, at time.Time)
}

type RecorderOptions struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
	Metrics   metrics.Registry

	// Cache, when set, has the code key of a click for a deleted link evicted.
	Cache domain.Cache
}

type click struct {
	code string
	at   time.Time
}

// ClickRecorder persists clicks in the background. Clicks that do not fit in
// the queue are written by a tracked goroutine, so none are dropped while the
// recorder is open. Close waits for everything accepted so far.
type ClickRecorder struct {
	repo     domain.LinkRepository
	cache    domain.Cache
	logger   *slog.Logger
	metrics  metrics.Registry
	timeout  time.Duration
	queue    chan click
	workers  sync.WaitGroup
	overflow sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewClickRecorder(repo domain.LinkRepository, opts RecorderOptions, logger *slog.Logger) *ClickRecorder {
	if opts.Workers <= 0 {
		opts.Workers = DefaultRecorderWorkers
	}
	if opts.QueueSize < 0 {
		opts.QueueSize = DefaultRecorderQueueSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRecorderTimeout
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoOpRegistry()
	}

	r := &ClickRecorder{
		repo:    repo,
		cache:   opts.Cache,
		logger:  logger,
		metrics: opts.Metrics,
		timeout: opts.Timeout,
		queue:   make(chan click, opts.QueueSize),
	}

	for i := 0; i < opts.Workers; i++ {
		r.workers.Add(1)
		go r.run()
	}
	return r
}

// Record enqueues a click. After Close it only counts the click as dropped.
func (r *ClickRecorder) Record(code string, at time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.metrics.IncClicksRecorded(metrics.StatusDropped)
		r.logger.Warn("Click recorder closed, dropping click", "code", code)
		return
	}

	c := click{code: code, at: at}
	select {
	case r.queue <- c:
	default:
		r.overflow.Add(1)
		go func() {
			defer r.overflow.Done()
			r.persist(c)
		}()
	}
}

func (r *ClickRecorder) run() {
	defer r.workers.Done()
	for c := range r.queue {
		r.persist(c)
	}
}

func (r *ClickRecorder) persist(c click) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	_, err := r.repo.RecordClick(ctx, c.code, c.at)
	switch {
	case err == nil:
		r.metrics.IncClicksRecorded(metrics.StatusSuccess)
	case errors.Is(err, domain.ErrLinkNotFound):
		// the link was deleted after the redirect was served
		r.metrics.IncClicksRecorded(metrics.StatusNotFound)
		r.logger.Debug("Click for deleted link ignored", "code", c.code)
		r.evict(ctx, c.code)
	default:
		r.metrics.IncClicksRecorded(metrics.StatusFailed)
		r.logger.Error("Failed to record click", "code", c.code, "error", err)
	}
}

// evict drops a code key that outlived its link, so the next resolve goes to the store.
func (r *ClickRecorder) evict(ctx context.Context, code string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, domain.CodeKey(code)); err != nil {
		r.metrics.IncCacheErrors("delete")
		r.logger.Warn("Failed to evict deleted link from cache", "code", code, "error", err)
	}
}

// Close stops accepting clicks and waits until pending ones are persisted or ctx is done.
func (r *ClickRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.workers.Wait()
		r.overflow.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Click recorder drained")
		return nil
	case <-ctx.Done():
		r.logger.Warn("Click recorder did not drain before deadline", "error", ctx.Err())
		return ctx.Err()
	}
}
