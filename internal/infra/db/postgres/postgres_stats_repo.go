package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/repository"
)

var _ repository.StatsRepository = (*PostgresStatsRepo)(nil)

type PostgresStatsRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresStatsRepo(pool *pgxpool.Pool) *PostgresStatsRepo {
	return &PostgresStatsRepo{pool: pool}
}

func (r *PostgresStatsRepo) IncrHourly(ctx context.Context, tx repository.Tx, tenantID string, at time.Time, outcome repository.SendOutcome) error {
	var success, failed, floods int
	switch outcome {
	case repository.OutcomeSuccess:
		success = 1
	case repository.OutcomeFailed:
		failed = 1
	case repository.OutcomeFloodWait:
		floods = 1
	default:
		return domain.ErrInvalidArgument
	}
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `
INSERT INTO hourly_stats (tenant_id, day_of_week, hour, sent, success, failed, flood_waits)
VALUES ($1,$2,$3,1,$4,$5,$6)
ON CONFLICT (tenant_id, day_of_week, hour)
DO UPDATE SET sent        = hourly_stats.sent + 1,
              success     = hourly_stats.success + $4,
              failed      = hourly_stats.failed + $5,
              flood_waits = hourly_stats.flood_waits + $6;`,
		tenantID, int(at.Weekday()), at.Hour(), success, failed, floods)
	return err
}

// GetBucket returns an empty bucket, not an error, for unvisited hours.
func (r *PostgresStatsRepo) GetBucket(ctx context.Context, tx repository.Tx, tenantID string, day time.Weekday, hour int) (*model.HourlyStatsBucket, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	row := ex.QueryRow(ctx, `
SELECT tenant_id, day_of_week, hour, sent, success, failed, flood_waits
  FROM hourly_stats
 WHERE tenant_id=$1 AND day_of_week=$2 AND hour=$3;`, tenantID, int(day), hour)
	var b model.HourlyStatsBucket
	var dow int
	if err := row.Scan(&b.TenantID, &dow, &b.Hour, &b.Sent, &b.Success, &b.Failed, &b.FloodWaits); err != nil {
		if err == pgx.ErrNoRows {
			return &model.HourlyStatsBucket{TenantID: tenantID, DayOfWeek: day, Hour: hour}, nil
		}
		return nil, err
	}
	b.DayOfWeek = time.Weekday(dow)
	return &b, nil
}

var _ repository.ErrorLogRepository = (*PostgresErrorLogRepo)(nil)

type PostgresErrorLogRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresErrorLogRepo(pool *pgxpool.Pool) *PostgresErrorLogRepo {
	return &PostgresErrorLogRepo{pool: pool}
}

func (r *PostgresErrorLogRepo) Save(ctx context.Context, tx repository.Tx, e *model.ErrorLog) error {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `
INSERT INTO error_logs (id, tenant_id, task_id, account_id, kind, message, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO NOTHING;`,
		e.ID, e.TenantID, e.TaskID, e.AccountID, e.Kind, e.Message, e.CreatedAt)
	return err
}
