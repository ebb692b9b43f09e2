package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/apischeduler/scheduler/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TargetRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewTargetRepository(pool *pgxpool.Pool, logger *slog.Logger) *TargetRepository {
	return &TargetRepository{pool: pool, logger: logger.With("component", "target_repo")}
}

func (r *TargetRepository) Create(ctx context.Context, t *domain.Target) (*domain.Target, error) {
	query := `
		INSERT INTO targets (name, url, method, headers, body_template)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, url, method, headers, body_template, created_at, updated_at`

	row := r.pool.QueryRow(ctx, query, t.Name, t.URL, t.Method, t.Headers, t.BodyTemplate)
	return scanTarget(row)
}

func (r *TargetRepository) GetByID(ctx context.Context, id string) (*domain.Target, error) {
	query := `
		SELECT id, name, url, method, headers, body_template, created_at, updated_at
		FROM targets WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	return scanTarget(row)
}

func (r *TargetRepository) List(ctx context.Context) ([]*domain.Target, error) {
	query := `
		SELECT id, name, url, method, headers, body_template, created_at, updated_at
		FROM targets ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	var targets []*domain.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

func (r *TargetRepository) Update(ctx context.Context, t *domain.Target) (*domain.Target, error) {
	query := `
		UPDATE targets
		SET name = $2, url = $3, method = $4, headers = $5, body_template = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, url, method, headers, body_template, created_at, updated_at`

	row := r.pool.QueryRow(ctx, query, t.ID, t.Name, t.URL, t.Method, t.Headers, t.BodyTemplate)
	return scanTarget(row)
}

// Delete removes the target. Schedules, Runs and Attempts owned by it are
// removed via ON DELETE CASCADE foreign keys.
func (r *TargetRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM targets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTargetNotFound
	}
	return nil
}

func scanTarget(row rowScanner) (*domain.Target, error) {
	var t domain.Target
	err := row.Scan(&t.ID, &t.Name, &t.URL, &t.Method, &t.Headers, &t.BodyTemplate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTargetNotFound
		}
		return nil, fmt.Errorf("scan target: %w", err)
	}
	return &t, nil
}
