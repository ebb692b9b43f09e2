package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/apischeduler/scheduler/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ScheduleRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewScheduleRepository(pool *pgxpool.Pool, logger *slog.Logger) *ScheduleRepository {
	return &ScheduleRepository{pool: pool, logger: logger.With("component", "schedule_repo")}
}

const scheduleColumns = `id, target_id, schedule_type, interval_seconds, duration_seconds,
	status, started_at, expires_at, last_run_at, max_retries, request_timeout_seconds,
	created_at, updated_at`

func (r *ScheduleRepository) Create(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error) {
	query := `
		INSERT INTO schedules (
			target_id, schedule_type, interval_seconds, duration_seconds,
			status, started_at, expires_at, max_retries, request_timeout_seconds
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + scheduleColumns

	row := r.pool.QueryRow(ctx, query,
		s.TargetID, s.Type, s.IntervalSeconds, s.DurationSeconds,
		s.Status, s.StartedAt, s.ExpiresAt, s.MaxRetries, s.RequestTimeoutSeconds,
	)
	return scanSchedule(row)
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`
	return scanSchedule(r.pool.QueryRow(ctx, query, id))
}

func (r *ScheduleRepository) List(ctx context.Context) ([]*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*domain.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

func (r *ScheduleRepository) LoadWithTarget(ctx context.Context, id string) (*domain.Schedule, *domain.Target, error) {
	query := `
		SELECT s.id, s.target_id, s.schedule_type, s.interval_seconds, s.duration_seconds,
		       s.status, s.started_at, s.expires_at, s.last_run_at, s.max_retries, s.request_timeout_seconds,
		       s.created_at, s.updated_at,
		       t.id, t.name, t.url, t.method, t.headers, t.body_template, t.created_at, t.updated_at
		FROM schedules s
		JOIN targets t ON t.id = s.target_id
		WHERE s.id = $1`

	var s domain.Schedule
	var t domain.Target
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.TargetID, &s.Type, &s.IntervalSeconds, &s.DurationSeconds,
		&s.Status, &s.StartedAt, &s.ExpiresAt, &s.LastRunAt, &s.MaxRetries, &s.RequestTimeoutSeconds,
		&s.CreatedAt, &s.UpdatedAt,
		&t.ID, &t.Name, &t.URL, &t.Method, &t.Headers, &t.BodyTemplate, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, domain.ErrScheduleNotFound
		}
		return nil, nil, fmt.Errorf("load schedule with target: %w", err)
	}
	return &s, &t, nil
}

func (r *ScheduleRepository) SetStatus(ctx context.Context, id string, status domain.ScheduleStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE schedules SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set schedule status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

// Delete removes the schedule. Runs and Attempts owned by it cascade via
// ON DELETE CASCADE foreign keys.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

// Tick atomically loads active schedules with their targets, expires any
// WINDOW schedule whose duration has elapsed, and returns up to limit
// schedules that are due to fire as of now — advancing last_run_at only
// for the ones it returns. Due schedules beyond limit are left untouched
// so they remain due on the next tick instead of losing a dispatch to a
// full engine. excludeIDs (already in flight in the engine) are never
// selected even if otherwise due. FOR UPDATE SKIP LOCKED means a second
// scheduler instance polling the same table concurrently would simply
// skip rows this tick has already locked, even though this spec assumes
// a single writer.
func (r *ScheduleRepository) Tick(ctx context.Context, now time.Time, excludeIDs []string, limit int) ([]domain.ScheduleWithTarget, error) {
	var due []domain.ScheduleWithTarget

	err := WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT s.id, s.target_id, s.schedule_type, s.interval_seconds, s.duration_seconds,
			       s.status, s.started_at, s.expires_at, s.last_run_at, s.max_retries, s.request_timeout_seconds,
			       s.created_at, s.updated_at,
			       t.id, t.name, t.url, t.method, t.headers, t.body_template, t.created_at, t.updated_at
			FROM schedules s
			JOIN targets t ON t.id = s.target_id
			WHERE s.status = 'ACTIVE' AND NOT (s.id = ANY($1))
			ORDER BY s.last_run_at NULLS FIRST
			FOR UPDATE OF s SKIP LOCKED`,
			excludeIDs,
		)
		if err != nil {
			return fmt.Errorf("load active schedules: %w", err)
		}

		var candidates []domain.ScheduleWithTarget
		for rows.Next() {
			var sw domain.ScheduleWithTarget
			if err := rows.Scan(
				&sw.Schedule.ID, &sw.Schedule.TargetID, &sw.Schedule.Type, &sw.Schedule.IntervalSeconds, &sw.Schedule.DurationSeconds,
				&sw.Schedule.Status, &sw.Schedule.StartedAt, &sw.Schedule.ExpiresAt, &sw.Schedule.LastRunAt, &sw.Schedule.MaxRetries, &sw.Schedule.RequestTimeoutSeconds,
				&sw.Schedule.CreatedAt, &sw.Schedule.UpdatedAt,
				&sw.Target.ID, &sw.Target.Name, &sw.Target.URL, &sw.Target.Method, &sw.Target.Headers, &sw.Target.BodyTemplate, &sw.Target.CreatedAt, &sw.Target.UpdatedAt,
			); err != nil {
				rows.Close()
				return fmt.Errorf("scan active schedule: %w", err)
			}
			candidates = append(candidates, sw)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate active schedules: %w", err)
		}

		for _, sw := range candidates {
			if sw.Schedule.IsWindowExpired(now) {
				if _, err := tx.Exec(ctx,
					`UPDATE schedules SET status = 'COMPLETED', updated_at = NOW() WHERE id = $1`,
					sw.Schedule.ID,
				); err != nil {
					return fmt.Errorf("complete expired schedule %s: %w", sw.Schedule.ID, err)
				}
				r.logger.Info("window schedule completed", "schedule_id", sw.Schedule.ID)
				continue
			}

			if !sw.Schedule.IsDue(now) {
				continue
			}

			if len(due) >= limit {
				continue
			}

			if _, err := tx.Exec(ctx,
				`UPDATE schedules SET last_run_at = $2, updated_at = NOW() WHERE id = $1`,
				sw.Schedule.ID, now,
			); err != nil {
				return fmt.Errorf("advance schedule %s: %w", sw.Schedule.ID, err)
			}
			sw.Schedule.LastRunAt = &now
			due = append(due, sw)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return due, nil
}

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var s domain.Schedule
	err := row.Scan(
		&s.ID, &s.TargetID, &s.Type, &s.IntervalSeconds, &s.DurationSeconds,
		&s.Status, &s.StartedAt, &s.ExpiresAt, &s.LastRunAt, &s.MaxRetries, &s.RequestTimeoutSeconds,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("scan schedule: %w", err)
	}
	return &s, nil
}
