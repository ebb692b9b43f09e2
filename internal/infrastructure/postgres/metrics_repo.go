package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/apischeduler/scheduler/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MetricsRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewMetricsRepository(pool *pgxpool.Pool, logger *slog.Logger) *MetricsRepository {
	return &MetricsRepository{pool: pool, logger: logger.With("component", "metrics_repo")}
}

func (r *MetricsRepository) ScheduleCounts(ctx context.Context) (total, active, paused int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'ACTIVE'),
		       COUNT(*) FILTER (WHERE status = 'PAUSED')
		FROM schedules`,
	).Scan(&total, &active, &paused)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("schedule counts: %w", err)
	}
	return total, active, paused, nil
}

// RunCounts follows the original aggregation's convention of deriving
// failure as total-minus-success rather than a separate FAILED count
// query, so a lingering PENDING run (before the startup sweep clears it)
// is not silently dropped from either bucket.
func (r *MetricsRepository) RunCounts(ctx context.Context) (total, success, failure int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'SUCCESS')
		FROM runs`,
	).Scan(&total, &success)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("run counts: %w", err)
	}
	return total, success, total - success, nil
}

func (r *MetricsRepository) AvgLatencyAll(ctx context.Context) (*float64, error) {
	var avg *float64
	err := r.pool.QueryRow(ctx, `SELECT ROUND(AVG(latency_ms)::numeric, 2) FROM attempts`).Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("avg latency: %w", err)
	}
	return avg, nil
}

func (r *MetricsRepository) PerScheduleMetrics(ctx context.Context) ([]domain.ScheduleMetrics, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id,
		       COUNT(DISTINCT r.id) AS total_runs,
		       COUNT(DISTINCT r.id) FILTER (WHERE r.status = 'SUCCESS') AS success_runs,
		       ROUND(AVG(a.latency_ms)::numeric, 2) AS avg_latency_ms,
		       s.last_run_at
		FROM schedules s
		LEFT JOIN runs r ON r.schedule_id = s.id
		LEFT JOIN attempts a ON a.run_id = r.id
		GROUP BY s.id
		ORDER BY s.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("per schedule metrics: %w", err)
	}
	defer rows.Close()

	var out []domain.ScheduleMetrics
	for rows.Next() {
		var m domain.ScheduleMetrics
		if err := rows.Scan(&m.ScheduleID, &m.TotalRuns, &m.SuccessRuns, &m.AvgLatencyMS, &m.LastRunAt); err != nil {
			return nil, fmt.Errorf("scan schedule metrics: %w", err)
		}
		m.FailureRuns = m.TotalRuns - m.SuccessRuns
		out = append(out, m)
	}
	return out, rows.Err()
}
