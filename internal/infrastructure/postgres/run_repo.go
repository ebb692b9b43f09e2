package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/apischeduler/scheduler/internal/domain"
	"github.com/apischeduler/scheduler/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RunRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewRunRepository(pool *pgxpool.Pool, logger *slog.Logger) *RunRepository {
	return &RunRepository{pool: pool, logger: logger.With("component", "run_repo")}
}

func (r *RunRepository) CreateRun(ctx context.Context, scheduleID string, startedAt time.Time) (*domain.Run, error) {
	query := `
		INSERT INTO runs (schedule_id, status, started_at)
		VALUES ($1, 'PENDING', $2)
		RETURNING id, schedule_id, status, started_at, completed_at, created_at`

	row := r.pool.QueryRow(ctx, query, scheduleID, startedAt)
	return scanRun(row)
}

func (r *RunRepository) CompleteRun(ctx context.Context, runID string, status domain.RunStatus, completedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE runs SET status = $2, completed_at = $3 WHERE id = $1 AND status = 'PENDING'`,
		runID, status, completedAt)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *RunRepository) AddAttempt(ctx context.Context, a *domain.Attempt) (*domain.Attempt, error) {
	query := `
		INSERT INTO attempts (
			run_id, attempt_number, status_code, latency_ms, response_size_bytes,
			error_type, error_message, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, run_id, attempt_number, status_code, latency_ms, response_size_bytes,
		          error_type, error_message, started_at, completed_at, created_at`

	row := r.pool.QueryRow(ctx, query,
		a.RunID, a.AttemptNumber, a.StatusCode, a.LatencyMS, a.ResponseSizeBytes,
		a.ErrorType, a.ErrorMessage, a.StartedAt, a.CompletedAt,
	)

	var out domain.Attempt
	err := row.Scan(
		&out.ID, &out.RunID, &out.AttemptNumber, &out.StatusCode, &out.LatencyMS, &out.ResponseSizeBytes,
		&out.ErrorType, &out.ErrorMessage, &out.StartedAt, &out.CompletedAt, &out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert attempt: %w", err)
	}
	return &out, nil
}

// runWhereClause builds the shared WHERE clause and args for run list
// queries, appending one predicate per non-nil filter field.
func runWhereClause(f store.ListRunsFilter) (string, []any, int) {
	where := " WHERE 1=1"
	var args []any
	argN := 1

	if f.ScheduleID != nil {
		where += fmt.Sprintf(" AND schedule_id = $%d", argN)
		args = append(args, *f.ScheduleID)
		argN++
	}
	if f.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, *f.Status)
		argN++
	}
	if f.StartTime != nil {
		where += fmt.Sprintf(" AND created_at >= $%d", argN)
		args = append(args, *f.StartTime)
		argN++
	}
	if f.EndTime != nil {
		where += fmt.Sprintf(" AND created_at <= $%d", argN)
		args = append(args, *f.EndTime)
		argN++
	}
	return where, args, argN
}

func (r *RunRepository) List(ctx context.Context, f store.ListRunsFilter) ([]*domain.Run, error) {
	where, args, argN := runWhereClause(f)

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `SELECT id, schedule_id, status, started_at, completed_at, created_at FROM runs` +
		where + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argN, argN+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *RunRepository) GetWithAttempts(ctx context.Context, id string) (*domain.Run, []*domain.Attempt, error) {
	run, err := scanRun(r.pool.QueryRow(ctx,
		`SELECT id, schedule_id, status, started_at, completed_at, created_at FROM runs WHERE id = $1`, id))
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, run_id, attempt_number, status_code, latency_ms, response_size_bytes,
		       error_type, error_message, started_at, completed_at, created_at
		FROM attempts WHERE run_id = $1 ORDER BY attempt_number ASC`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		if err := rows.Scan(
			&a.ID, &a.RunID, &a.AttemptNumber, &a.StatusCode, &a.LatencyMS, &a.ResponseSizeBytes,
			&a.ErrorType, &a.ErrorMessage, &a.StartedAt, &a.CompletedAt, &a.CreatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, &a)
	}
	return run, attempts, rows.Err()
}

// SweepStale marks PENDING runs started before cutoff as FAILED. Invoked
// once at engine startup to clean up runs orphaned by a crash mid-execution.
func (r *RunRepository) SweepStale(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE runs SET status = 'FAILED', completed_at = NOW()
		 WHERE status = 'PENDING' AND started_at < $1`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep stale runs: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		r.logger.Warn("swept stale pending runs", "count", n)
		return int(n), nil
	}
	return 0, nil
}

func scanRun(row rowScanner) (*domain.Run, error) {
	var run domain.Run
	err := row.Scan(&run.ID, &run.ScheduleID, &run.Status, &run.StartedAt, &run.CompletedAt, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return &run, nil
}
