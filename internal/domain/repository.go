package domain

import (
	"context"
	"time"
)

// LinkRepository is the durable store. Codes are unique at the storage level, so
// Create reports ErrDuplicateCode when a concurrent writer won the race.
type LinkRepository interface {
	Create(ctx context.Context, link *Link) (*Link, error)
	FindByCode(ctx context.Context, code string) (*Link, error)
	FindByURL(ctx context.Context, url string) (*Link, error)
	Exists(ctx context.Context, code string) (bool, error)
	// List returns links newest first. A limit <= 0 returns every link.
	List(ctx context.Context, limit int) ([]*Link, error)
	// RecordClick atomically adds one click and moves last_clicked_at forward to at.
	RecordClick(ctx context.Context, code string, at time.Time) (*Link, error)
	Delete(ctx context.Context, code string) error
	Close() error
	HealthCheck(ctx context.Context) error
}
