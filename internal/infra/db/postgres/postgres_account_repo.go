package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*PostgresAccountRepo)(nil)

type PostgresAccountRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountRepo(pool *pgxpool.Pool) *PostgresAccountRepo {
	return &PostgresAccountRepo{pool: pool}
}

const accountColumns = `
  id, tenant_id, phone, username, first_name, last_name, status, role, folder, proxy,
  daily_sent, daily_errors, daily_limit, reliability_score, consecutive_errors,
  total_flood_waits, flood_wait_until, warmup_status, created_at, updated_at`

func (r *PostgresAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	const q = `
INSERT INTO accounts (
  id, tenant_id, phone, username, first_name, last_name, status, role, folder, proxy,
  daily_sent, daily_errors, daily_limit, reliability_score, consecutive_errors,
  total_flood_waits, flood_wait_until, warmup_status, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
ON CONFLICT (id) DO UPDATE SET
  username=$4, first_name=$5, last_name=$6, status=$7, role=$8, folder=$9, proxy=$10,
  daily_sent=$11, daily_errors=$12, daily_limit=$13, reliability_score=$14,
  consecutive_errors=$15, total_flood_waits=$16, flood_wait_until=$17,
  warmup_status=$18, updated_at=$20;`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q,
		a.ID, a.TenantID, a.Phone, a.Username, a.FirstName, a.LastName, a.Status, a.Role, a.Folder, a.Proxy,
		a.DailySent, a.DailyErrors, a.DailyLimit, a.ReliabilityScore, a.ConsecutiveErrors,
		a.TotalFloodWaits, a.FloodWaitUntil, a.WarmupStatus, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *PostgresAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	row := ex.QueryRow(ctx, `SELECT`+accountColumns+` FROM accounts WHERE id=$1;`, id)
	return scanAccount(row)
}

func (r *PostgresAccountRepo) FindByPhone(ctx context.Context, tx repository.Tx, tenantID, phone string) (*model.Account, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	row := ex.QueryRow(ctx, `SELECT`+accountColumns+` FROM accounts WHERE tenant_id=$1 AND phone=$2;`, tenantID, phone)
	return scanAccount(row)
}

func (r *PostgresAccountRepo) ListByIDs(ctx context.Context, tx repository.Tx, ids []string) ([]*model.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT`+accountColumns+` FROM accounts WHERE id = ANY($1) ORDER BY created_at;`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (r *PostgresAccountRepo) ListByFolder(ctx context.Context, tx repository.Tx, tenantID, folder string) ([]*model.Account, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT`+accountColumns+` FROM accounts WHERE tenant_id=$1 AND folder=$2 ORDER BY created_at;`, tenantID, folder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (r *PostgresAccountRepo) ListByTenant(ctx context.Context, tx repository.Tx, tenantID string) ([]*model.Account, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT`+accountColumns+` FROM accounts WHERE tenant_id=$1 ORDER BY created_at;`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (r *PostgresAccountRepo) ResetDaily(ctx context.Context, tx repository.Tx, tenantID string) (int, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return 0, err
	}
	tag, err := ex.Exec(ctx, `UPDATE accounts SET daily_sent=0, daily_errors=0, updated_at=now() WHERE tenant_id=$1;`, tenantID)
	if err != nil {
		return 0, fmt.Errorf("reset daily: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.TenantID, &a.Phone, &a.Username, &a.FirstName, &a.LastName, &a.Status, &a.Role, &a.Folder, &a.Proxy,
		&a.DailySent, &a.DailyErrors, &a.DailyLimit, &a.ReliabilityScore, &a.ConsecutiveErrors,
		&a.TotalFloodWaits, &a.FloodWaitUntil, &a.WarmupStatus, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func scanAccounts(rows pgx.Rows) ([]*model.Account, error) {
	var out []*model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Phone, &a.Username, &a.FirstName, &a.LastName, &a.Status, &a.Role, &a.Folder, &a.Proxy,
			&a.DailySent, &a.DailyErrors, &a.DailyLimit, &a.ReliabilityScore, &a.ConsecutiveErrors,
			&a.TotalFloodWaits, &a.FloodWaitUntil, &a.WarmupStatus, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
