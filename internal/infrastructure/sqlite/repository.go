package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/sp3dr4/snip/internal/domain"
)

const linkColumns = "id, code, url, clicks, last_clicked_at, created_at, updated_at"

type LinkRepository struct {
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

func (r *LinkRepository) Create(ctx context.Context, link *domain.Link) (*domain.Link, error) {
	query := `
		INSERT INTO links (code, url, clicks, last_clicked_at, created_at, updated_at)
		VALUES (:code, :url, :clicks, :last_clicked_at, :created_at, :updated_at)
	`

	row := link.Clone()
	row.CreatedAt = row.CreatedAt.UTC()
	row.UpdatedAt = row.UpdatedAt.UTC()

	result, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return nil, translate(err, "create link")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, translate(err, "create link")
	}
	row.ID = id
	return row, nil
}

func (r *LinkRepository) FindByCode(ctx context.Context, code string) (*domain.Link, error) {
	var link domain.Link
	query := `SELECT ` + linkColumns + ` FROM links WHERE code = ?`

	if err := r.db.GetContext(ctx, &link, query, code); err != nil {
		return nil, translate(err, "find link by code")
	}
	return &link, nil
}

func (r *LinkRepository) FindByURL(ctx context.Context, url string) (*domain.Link, error) {
	var link domain.Link
	query := `SELECT ` + linkColumns + ` FROM links WHERE url = ? ORDER BY created_at ASC, id ASC LIMIT 1`

	if err := r.db.GetContext(ctx, &link, query, url); err != nil {
		return nil, translate(err, "find link by url")
	}
	return &link, nil
}

func (r *LinkRepository) Exists(ctx context.Context, code string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM links WHERE code = ?)`

	if err := r.db.GetContext(ctx, &exists, query, code); err != nil {
		return false, translate(err, "check link existence")
	}
	return exists, nil
}

func (r *LinkRepository) List(ctx context.Context, limit int) ([]*domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	links := []*domain.Link{}
	if err := r.db.SelectContext(ctx, &links, query, args...); err != nil {
		return nil, translate(err, "list links")
	}
	return links, nil
}

// RecordClick increments in a single UPDATE. Timestamps are stored in one UTC
// layout, so comparing them as text preserves time order.
func (r *LinkRepository) RecordClick(ctx context.Context, code string, at time.Time) (*domain.Link, error) {
	at = at.UTC()
	query := `
		UPDATE links
		SET clicks = clicks + 1,
		    last_clicked_at = CASE
		        WHEN last_clicked_at IS NULL OR last_clicked_at < ? THEN ?
		        ELSE last_clicked_at
		    END,
		    updated_at = ?
		WHERE code = ?
	`

	result, err := r.db.ExecContext(ctx, query, at, at, time.Now().UTC(), code)
	if err != nil {
		return nil, translate(err, "record click")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, translate(err, "record click")
	}
	if rowsAffected == 0 {
		return nil, domain.ErrLinkNotFound
	}

	return r.FindByCode(ctx, code)
}

func (r *LinkRepository) Delete(ctx context.Context, code string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM links WHERE code = ?`, code)
	if err != nil {
		return translate(err, "delete link")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translate(err, "delete link")
	}
	if rowsAffected == 0 {
		return domain.ErrLinkNotFound
	}
	return nil
}

func (r *LinkRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *LinkRepository) HealthCheck(ctx context.Context) error {
	if r.db == nil {
		return errors.New("database connection is nil")
	}
	return r.db.PingContext(ctx)
}

func translate(err error, operation string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return domain.ErrDuplicateCode
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrLinkNotFound
	}
	return &domain.StoreError{Op: operation, Err: err}
}
