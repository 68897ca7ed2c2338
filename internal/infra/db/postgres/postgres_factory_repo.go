package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/repository"
)

var _ repository.FactoryTaskRepository = (*PostgresFactoryTaskRepo)(nil)

type PostgresFactoryTaskRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresFactoryTaskRepo(pool *pgxpool.Pool) *PostgresFactoryTaskRepo {
	return &PostgresFactoryTaskRepo{pool: pool}
}

const factoryColumns = `
  id, tenant_id, count, country, auto_warmup, warmup_days, role_distribution,
  status, status_reason, created_count, failed_count, errors, created_at, updated_at`

func (r *PostgresFactoryTaskRepo) Save(ctx context.Context, tx repository.Tx, t *model.FactoryTask) error {
	roles, err := json.Marshal(t.RoleDistribution)
	if err != nil {
		return err
	}
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `
INSERT INTO factory_tasks (
  id, tenant_id, count, country, auto_warmup, warmup_days, role_distribution,
  status, status_reason, created_count, failed_count, errors, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO UPDATE SET
  count=$3, country=$4, auto_warmup=$5, warmup_days=$6, role_distribution=$7,
  status=$8, status_reason=$9, created_count=$10, failed_count=$11, errors=$12, updated_at=$14;`,
		t.ID, t.TenantID, t.Count, t.Country, t.AutoWarmup, t.WarmupDays, roles,
		t.Status, t.StatusReason, t.CreatedCount, t.FailedCount, t.Errors, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *PostgresFactoryTaskRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.FactoryTask, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	row := ex.QueryRow(ctx, `SELECT`+factoryColumns+` FROM factory_tasks WHERE id=$1;`, id)
	t, err := scanFactoryTask(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return t, err
}

func (r *PostgresFactoryTaskRepo) ListRunnable(ctx context.Context, tx repository.Tx) ([]*model.FactoryTask, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `
SELECT`+factoryColumns+`
  FROM factory_tasks
 WHERE status IN ('pending','running') AND created_count + failed_count < count
 ORDER BY created_at;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.FactoryTask
	for rows.Next() {
		t, err := scanFactoryTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanFactoryTask(s rowScanner) (*model.FactoryTask, error) {
	var t model.FactoryTask
	var roles []byte
	err := s.Scan(&t.ID, &t.TenantID, &t.Count, &t.Country, &t.AutoWarmup, &t.WarmupDays, &roles,
		&t.Status, &t.StatusReason, &t.CreatedCount, &t.FailedCount, &t.Errors, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(roles) > 0 {
		if err := json.Unmarshal(roles, &t.RoleDistribution); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

var _ repository.AuthTaskRepository = (*PostgresAuthTaskRepo)(nil)

type PostgresAuthTaskRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAuthTaskRepo(pool *pgxpool.Pool) *PostgresAuthTaskRepo {
	return &PostgresAuthTaskRepo{pool: pool}
}

const authTaskColumns = `
  id, tenant_id, account_id, phone, proxy, status, code_hash, code, password,
  status_reason, code_sent_at, created_at, updated_at`

func (r *PostgresAuthTaskRepo) Save(ctx context.Context, tx repository.Tx, t *model.AuthTask) error {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `
INSERT INTO auth_tasks (
  id, tenant_id, account_id, phone, proxy, status, code_hash, code, password,
  status_reason, code_sent_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
  proxy=$5, status=$6, code_hash=$7, code=$8, password=$9,
  status_reason=$10, code_sent_at=$11, updated_at=$13;`,
		t.ID, t.TenantID, t.AccountID, t.Phone, t.Proxy, t.Status, t.CodeHash, t.Code, t.Password,
		t.StatusReason, t.CodeSentAt, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *PostgresAuthTaskRepo) ListActionable(ctx context.Context, tx repository.Tx) ([]*model.AuthTask, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `
SELECT`+authTaskColumns+`
  FROM auth_tasks
 WHERE status IN ('pending','code_sent','code_received')
 ORDER BY created_at;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.AuthTask
	for rows.Next() {
		var t model.AuthTask
		if err := rows.Scan(&t.ID, &t.TenantID, &t.AccountID, &t.Phone, &t.Proxy, &t.Status, &t.CodeHash, &t.Code, &t.Password,
			&t.StatusReason, &t.CodeSentAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
