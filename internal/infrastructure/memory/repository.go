package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sp3dr4/snip/internal/domain"
)

type LinkRepository struct {
	links  map[string]*domain.Link
	byURL  map[string][]string
	nextID int64
	mu     sync.RWMutex
}

func NewLinkRepository() *LinkRepository {
	return &LinkRepository{
		links: make(map[string]*domain.Link),
		byURL: make(map[string][]string),
	}
}

func (r *LinkRepository) Create(ctx context.Context, link *domain.Link) (*domain.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.links[link.Code]; exists {
		return nil, domain.ErrDuplicateCode
	}

	// Simulate database behavior: assign an id and timestamps
	r.nextID++
	created := link.Clone()
	created.ID = r.nextID
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	if created.UpdatedAt.IsZero() {
		created.UpdatedAt = created.CreatedAt
	}

	r.links[created.Code] = created
	r.byURL[created.URL] = append(r.byURL[created.URL], created.Code)
	return created.Clone(), nil
}

func (r *LinkRepository) FindByCode(ctx context.Context, code string) (*domain.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, exists := r.links[code]
	if !exists {
		return nil, domain.ErrLinkNotFound
	}
	return link.Clone(), nil
}

// FindByURL returns the oldest link pointing at url.
func (r *LinkRepository) FindByURL(ctx context.Context, url string) (*domain.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := r.byURL[url]
	if len(codes) == 0 {
		return nil, domain.ErrLinkNotFound
	}
	return r.links[codes[0]].Clone(), nil
}

func (r *LinkRepository) Exists(ctx context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.links[code]
	return exists, nil
}

func (r *LinkRepository) List(ctx context.Context, limit int) ([]*domain.Link, error) {
	r.mu.RLock()
	links := make([]*domain.Link, 0, len(r.links))
	for _, link := range r.links {
		links = append(links, link.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(links, func(i, j int) bool {
		if links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].ID > links[j].ID
		}
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})

	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}
	return links, nil
}

func (r *LinkRepository) RecordClick(ctx context.Context, code string, at time.Time) (*domain.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, exists := r.links[code]
	if !exists {
		return nil, domain.ErrLinkNotFound
	}

	link.RecordClick(at)
	return link.Clone(), nil
}

func (r *LinkRepository) Delete(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, exists := r.links[code]
	if !exists {
		return domain.ErrLinkNotFound
	}
	delete(r.links, code)

	codes := r.byURL[link.URL]
	for i, c := range codes {
		if c == code {
			codes = append(codes[:i], codes[i+1:]...)
			break
		}
	}
	if len(codes) == 0 {
		delete(r.byURL, link.URL)
	} else {
		r.byURL[link.URL] = codes
	}
	return nil
}

func (r *LinkRepository) Close() error {
	return nil
}

func (r *LinkRepository) HealthCheck(ctx context.Context) error {
	return nil
}
