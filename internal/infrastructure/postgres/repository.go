package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sp3dr4/snip/internal/domain"
)

const (
	codeUniqueConstraint = "links_code_key"
	linkColumns          = "id, code, url, clicks, last_clicked_at, created_at, updated_at"
)

type LinkRepository struct {
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

func (r *LinkRepository) Create(ctx context.Context, link *domain.Link) (*domain.Link, error) {
	query := `
		INSERT INTO links (code, url, clicks, last_clicked_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + linkColumns

	var result domain.Link
	err := r.db.QueryRowxContext(ctx, query,
		link.Code, link.URL, link.Clicks, link.LastClicked, link.CreatedAt, link.UpdatedAt,
	).StructScan(&result)
	if err != nil {
		return nil, r.handlePostgreSQLError(err, "create link")
	}

	slog.Debug("Link created successfully", "code", result.Code, "id", result.ID)
	return &result, nil
}

func (r *LinkRepository) FindByCode(ctx context.Context, code string) (*domain.Link, error) {
	var link domain.Link
	query := `SELECT ` + linkColumns + ` FROM links WHERE code = $1`

	if err := r.db.GetContext(ctx, &link, query, code); err != nil {
		return nil, r.handlePostgreSQLError(err, "find link by code")
	}
	return &link, nil
}

func (r *LinkRepository) FindByURL(ctx context.Context, url string) (*domain.Link, error) {
	var link domain.Link
	query := `SELECT ` + linkColumns + ` FROM links WHERE url = $1 ORDER BY created_at ASC, id ASC LIMIT 1`

	if err := r.db.GetContext(ctx, &link, query, url); err != nil {
		return nil, r.handlePostgreSQLError(err, "find link by url")
	}
	return &link, nil
}

func (r *LinkRepository) Exists(ctx context.Context, code string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM links WHERE code = $1)`

	if err := r.db.GetContext(ctx, &exists, query, code); err != nil {
		return false, r.handlePostgreSQLError(err, "check link existence")
	}
	return exists, nil
}

func (r *LinkRepository) List(ctx context.Context, limit int) ([]*domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	links := []*domain.Link{}
	if err := r.db.SelectContext(ctx, &links, query, args...); err != nil {
		return nil, r.handlePostgreSQLError(err, "list links")
	}
	return links, nil
}

// RecordClick relies on the row-level UPDATE for atomicity; GREATEST skips NULL.
func (r *LinkRepository) RecordClick(ctx context.Context, code string, at time.Time) (*domain.Link, error) {
	query := `
		UPDATE links
		SET clicks = clicks + 1,
		    last_clicked_at = GREATEST(last_clicked_at, $2),
		    updated_at = NOW()
		WHERE code = $1
		RETURNING ` + linkColumns

	var link domain.Link
	if err := r.db.QueryRowxContext(ctx, query, code, at.UTC()).StructScan(&link); err != nil {
		return nil, r.handlePostgreSQLError(err, "record click")
	}

	slog.Debug("Click recorded", "code", code, "new_count", link.Clicks)
	return &link, nil
}

func (r *LinkRepository) Delete(ctx context.Context, code string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM links WHERE code = $1`, code)
	if err != nil {
		return r.handlePostgreSQLError(err, "delete link")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return r.handlePostgreSQLError(err, "delete link")
	}
	if rowsAffected == 0 {
		return domain.ErrLinkNotFound
	}
	return nil
}

// handlePostgreSQLError converts PostgreSQL-specific errors to domain errors
func (r *LinkRepository) handlePostgreSQLError(err error, operation string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		slog.Error("PostgreSQL error",
			"operation", operation,
			"code", pqErr.Code,
			"message", pqErr.Message,
			"detail", pqErr.Detail,
		)

		switch pqErr.Code {
		case "23505": // unique_violation
			if pqErr.Constraint == codeUniqueConstraint {
				return domain.ErrDuplicateCode
			}
			return &domain.StoreError{Op: operation, Err: fmt.Errorf("unique constraint violation: %s", pqErr.Detail)}
		case "23502": // not_null_violation
			return &domain.StoreError{Op: operation, Err: fmt.Errorf("required field missing: %s", pqErr.Column)}
		case "23514": // check_violation
			return &domain.StoreError{Op: operation, Err: fmt.Errorf("check constraint violation: %s", pqErr.Detail)}
		case "08000", "08003", "08006": // connection errors
			return &domain.StoreError{Op: operation, Err: fmt.Errorf("database connection error: %s", pqErr.Message)}
		default:
			return &domain.StoreError{Op: operation, Err: fmt.Errorf("database error [%s]: %s", pqErr.Code, pqErr.Message)}
		}
	}

	// Handle standard SQL errors
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrLinkNotFound
	}

	return &domain.StoreError{Op: operation, Err: err}
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
