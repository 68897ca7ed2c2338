package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/repository"
)

var _ repository.BlacklistRepository = (*PostgresBlacklistRepo)(nil)

type PostgresBlacklistRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresBlacklistRepo(pool *pgxpool.Pool) *PostgresBlacklistRepo {
	return &PostgresBlacklistRepo{pool: pool}
}

func (r *PostgresBlacklistRepo) IsBlacklisted(ctx context.Context, tx repository.Tx, tenantID string, telegramID int64, username string) (bool, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return false, err
	}
	var n int
	err = ex.QueryRow(ctx, `
SELECT COUNT(*) FROM blacklist
 WHERE tenant_id=$1
   AND (($2 <> 0 AND telegram_id=$2) OR ($3 <> '' AND lower(username)=lower($3)));`,
		tenantID, telegramID, username).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresBlacklistRepo) Upsert(ctx context.Context, tx repository.Tx, e *model.BlacklistEntry) error {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `
INSERT INTO blacklist (id, tenant_id, telegram_id, username, source, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (tenant_id, telegram_id, username) DO NOTHING;`,
		e.ID, e.TenantID, e.TelegramID, e.Username, e.Source, e.CreatedAt)
	return err
}

var _ repository.StopTriggerRepository = (*PostgresStopTriggerRepo)(nil)

type PostgresStopTriggerRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresStopTriggerRepo(pool *pgxpool.Pool) *PostgresStopTriggerRepo {
	return &PostgresStopTriggerRepo{pool: pool}
}

func (r *PostgresStopTriggerRepo) ListActive(ctx context.Context, tx repository.Tx, tenantID string) ([]*model.StopTrigger, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `
SELECT id, tenant_id, phrase, is_active, hits_count, created_at
  FROM stop_triggers
 WHERE tenant_id=$1 AND is_active=true
 ORDER BY created_at;`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.StopTrigger
	for rows.Next() {
		var t model.StopTrigger
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Phrase, &t.IsActive, &t.HitsCount, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *PostgresStopTriggerRepo) IncrementHit(ctx context.Context, tx repository.Tx, id string) error {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `UPDATE stop_triggers SET hits_count = hits_count + 1 WHERE id=$1;`, id)
	return err
}
