package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp3dr4/snip/config"
	"github.com/sp3dr4/snip/internal/domain"
	"github.com/sp3dr4/snip/internal/infrastructure/memory"
	"github.com/sp3dr4/snip/internal/pkg/metrics"
)

// blockingStore holds every RecordClick until release is closed.
type blockingStore struct {
	*memory.LinkRepository
	release chan struct{}
}

func (s *blockingStore) RecordClick(ctx context.Context, code string, at time.Time) (*domain.Link, error) {
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.LinkRepository.RecordClick(ctx, code, at)
}

func TestClickRecorder_PersistsClicks(t *testing.T) {
	repo := memory.NewLinkRepository()
	ctx := context.Background()
	_, err := repo.Create(ctx, domain.NewLink("abc123", "https://example.com", time.Now()))
	require.NoError(t, err)

	recorder := NewClickRecorder(repo, RecorderOptions{Workers: 1, QueueSize: 8}, discardLogger())

	clickedAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	recorder.Record("abc123", clickedAt)
	recorder.Record("abc123", clickedAt.Add(-time.Hour))
	require.NoError(t, recorder.Close(ctx))

	link, err := repo.FindByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(2), link.Clicks)
	require.NotNil(t, link.LastClicked)
	assert.True(t, clickedAt.Equal(*link.LastClicked))
}

func TestClickRecorder_EvictsCodeOfDeletedLink(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, domain.CodeKey("gone12"), `{"code":"gone12","url":"https://example.com"}`, time.Hour))
	require.NoError(t, c.Set(ctx, domain.CodeKey("live12"), `{"code":"live12","url":"https://example.org"}`, time.Hour))

	repo := memory.NewLinkRepository()
	_, err := repo.Create(ctx, domain.NewLink("live12", "https://example.org", time.Now()))
	require.NoError(t, err)

	recorder := NewClickRecorder(repo, RecorderOptions{Workers: 1, QueueSize: 8, Cache: c}, discardLogger())
	recorder.Record("gone12", time.Now())
	recorder.Record("live12", time.Now())
	require.NoError(t, recorder.Close(ctx))

	assert.False(t, mr.Exists("snip:code:gone12"))
	assert.True(t, mr.Exists("snip:code:live12"))
}

func TestClickRecorder_OverflowIsNotDropped(t *testing.T) {
	store := &blockingStore{LinkRepository: memory.NewLinkRepository(), release: make(chan struct{})}
	ctx := context.Background()
	_, err := store.Create(ctx, domain.NewLink("abc123", "https://example.com", time.Now()))
	require.NoError(t, err)

	recorder := NewClickRecorder(store, RecorderOptions{Workers: 1, QueueSize: 1, Timeout: 5 * time.Second}, discardLogger())

	const n = 20
	for i := 0; i < n; i++ {
		recorder.Record("abc123", time.Now())
	}
	close(store.release)

	require.NoError(t, recorder.Close(ctx))

	link, err := store.FindByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(n), link.Clicks)
}

func TestClickRecorder_CloseHonoursDeadline(t *testing.T) {
	store := &blockingStore{LinkRepository: memory.NewLinkRepository(), release: make(chan struct{})}
	_, err := store.Create(context.Background(), domain.NewLink("abc123", "https://example.com", time.Now()))
	require.NoError(t, err)

	recorder := NewClickRecorder(store, RecorderOptions{Workers: 1, QueueSize: 1, Timeout: time.Minute}, discardLogger())
	recorder.Record("abc123", time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, recorder.Close(ctx), context.DeadlineExceeded)

	close(store.release)
}

func TestClickRecorder_Metrics(t *testing.T) {
	registry, err := metrics.NewPrometheusRegistry(config.MetricsConfig{Enabled: true, Namespace: "test", Subsystem: "test"})
	require.NoError(t, err)

	repo := memory.NewLinkRepository()
	ctx := context.Background()
	_, err = repo.Create(ctx, domain.NewLink("abc123", "https://example.com", time.Now()))
	require.NoError(t, err)

	recorder := NewClickRecorder(repo, RecorderOptions{Workers: 2, QueueSize: 8, Metrics: registry}, discardLogger())
	recorder.Record("abc123", time.Now())
	recorder.Record("gone12", time.Now())
	require.NoError(t, recorder.Close(ctx))

	recorder.Record("abc123", time.Now())

	expected := map[string]float64{
		metrics.StatusSuccess:  1,
		metrics.StatusNotFound: 1,
		metrics.StatusDropped:  1,
	}
	families, err := registry.GetRegistry().Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "test_test_clicks_recorded_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == metrics.LabelStatus {
					got[label.GetValue()] = m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, expected, got)
}

func TestClickRecorder_ConcurrentRecordAndClose(t *testing.T) {
	repo := memory.NewLinkRepository()
	ctx := context.Background()
	_, err := repo.Create(ctx, domain.NewLink("abc123", "https://example.com", time.Now()))
	require.NoError(t, err)

	recorder := NewClickRecorder(repo, RecorderOptions{Workers: 2, QueueSize: 2}, discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recorder.Record("abc123", time.Now())
		}()
	}
	closeErr := make(chan error, 1)
	go func() { closeErr <- recorder.Close(ctx) }()
	wg.Wait()

	require.NoError(t, <-closeErr)
	require.NoError(t, recorder.Close(ctx), "second close is a no-op")
}
