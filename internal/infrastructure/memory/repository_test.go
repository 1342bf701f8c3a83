package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp3dr4/snip/internal/domain"
)

func newTestLink(code, url string, created time.Time) *domain.Link {
	return domain.NewLink(code, url, created)
}

func TestMemoryRepository_Create(t *testing.T) {
	repo := NewLinkRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, newTestLink("test123", "https://example.com", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Zero(t, created.Clicks)
	assert.Nil(t, created.LastClicked)

	// Try to create duplicate
	_, err = repo.Create(ctx, newTestLink("test123", "https://other.com", time.Now()))
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestMemoryRepository_CreateConcurrentSameCode(t *testing.T) {
	repo := NewLinkRepository()
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(ctx, newTestLink("race123", fmt.Sprintf("https://example%d.com", i), time.Now()))
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrDuplicateCode)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestMemoryRepository_FindByCode(t *testing.T) {
	repo := NewLinkRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, newTestLink("test123", "https://example.com", time.Now()))
	require.NoError(t, err)

	found, err := repo.FindByCode(ctx, "test123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", found.URL)

	// Returned values are copies
	found.URL = "https://mutated.com"
	again, err := repo.FindByCode(ctx, "test123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", again.URL)

	_, err = repo.FindByCode(ctx, "notfound")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestMemoryRepository_FindByURL(t *testing.T) {
	repo := NewLinkRepository()
	ctx := context.Background()
	now := time.Now()

	_, err := repo.Create(ctx, newTestLink("first1", "https://example.com", now))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newTestLink("second", "https://example.com", now.Add(time.Second)))
	require.NoError(t, err)

	found, err := repo.FindByURL(ctx, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "first1", found.Code)

	require.NoError(t, repo.Delete(ctx, "first1"))
	found, err = repo.FindByURL(ctx, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "second", found.Code)

	require.NoError(t, repo.Delete(ctx, "second"))
	_, err = repo.FindByURL(ctx, "https://example.com")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestMemoryRepository_RecordClick(t *testing.T) {
	repo := NewLinkRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.Create(ctx, newTestLink("test123", "https://example.com", now))
	require.NoError(t, err)

	updated, err := repo.RecordClick(ctx, "test123", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Clicks)
	require.NotNil(t, updated.LastClicked)

	// An older timestamp still counts but does not rewind last click
	updated, err = repo.RecordClick(ctx, "test123", now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Clicks)
	assert.True(t, now.Add(time.Minute).Equal(*updated.LastClicked))

	_, err = repo.RecordClick(ctx, "notfound", now)
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestMemoryRepository_RecordClickConcurrent(t *testing.T) {
	repo := NewLinkRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, newTestLink("test123", "https://example.com", time.Now()))
	require.NoError(t, err)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.RecordClick(ctx, "test123", time.Now())
		}()
	}
	wg.Wait()

	found, err := repo.FindByCode(ctx, "test123")
	require.NoError(t, err)
	assert.Equal(t, int64(n), found.Clicks)
}

func TestMemoryRepository_List(t *testing.T) {
	repo := NewLinkRepository()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, code := range []string{"aaaaaa", "bbbbbb", "cccccc"} {
		_, err := repo.Create(ctx, newTestLink(code, "https://example.com/"+code, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	links, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, []string{"cccccc", "bbbbbb", "aaaaaa"}, []string{links[0].Code, links[1].Code, links[2].Code})

	links, err = repo.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, links, 2)
}

func TestMemoryRepository_Exists(t *testing.T) {
	repo := NewLinkRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, newTestLink("test123", "https://example.com", time.Now()))
	require.NoError(t, err)

	exists, err := repo.Exists(ctx, "test123")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, "notfound")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryRepository_Delete(t *testing.T) {
	repo := NewLinkRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, newTestLink("test123", "https://example.com", time.Now()))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "test123"))
	assert.ErrorIs(t, repo.Delete(ctx, "test123"), domain.ErrLinkNotFound)

	exists, err := repo.Exists(ctx, "test123")
	require.NoError(t, err)
	assert.False(t, exists)
}
