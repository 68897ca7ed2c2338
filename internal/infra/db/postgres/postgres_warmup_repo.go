package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/repository"
)

var _ repository.WarmupRepository = (*PostgresWarmupRepo)(nil)

type PostgresWarmupRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresWarmupRepo(pool *pgxpool.Pool) *PostgresWarmupRepo {
	return &PostgresWarmupRepo{pool: pool}
}

const warmupColumns = `
  id, tenant_id, account_id, kind, total_days, current_day, status,
  completed_actions, last_action_at, warm_folder, created_at`

func (r *PostgresWarmupRepo) Save(ctx context.Context, tx repository.Tx, w *model.WarmupProgress) error {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `
INSERT INTO warmup_progress (
  id, tenant_id, account_id, kind, total_days, current_day, status,
  completed_actions, last_action_at, warm_folder, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  total_days=$5, current_day=$6, status=$7, completed_actions=$8,
  last_action_at=$9, warm_folder=$10;`,
		w.ID, w.TenantID, w.AccountID, w.Kind, w.TotalDays, w.CurrentDay, w.Status,
		w.CompletedActions, w.LastActionAt, w.WarmFolder, w.CreatedAt)
	return err
}

func (r *PostgresWarmupRepo) FindByAccount(ctx context.Context, tx repository.Tx, accountID string) (*model.WarmupProgress, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	row := ex.QueryRow(ctx, `SELECT`+warmupColumns+` FROM warmup_progress WHERE account_id=$1;`, accountID)
	w, err := scanWarmup(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return w, err
}

func (r *PostgresWarmupRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.WarmupProgress, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT`+warmupColumns+` FROM warmup_progress WHERE status='active' ORDER BY created_at;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.WarmupProgress
	for rows.Next() {
		w, err := scanWarmup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func scanWarmup(s rowScanner) (*model.WarmupProgress, error) {
	var w model.WarmupProgress
	err := s.Scan(&w.ID, &w.TenantID, &w.AccountID, &w.Kind, &w.TotalDays, &w.CurrentDay, &w.Status,
		&w.CompletedActions, &w.LastActionAt, &w.WarmFolder, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
