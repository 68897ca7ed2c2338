package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/repository"
)

var _ repository.CampaignRepository = (*PostgresCampaignRepo)(nil)

type PostgresCampaignRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCampaignRepo(pool *pgxpool.Pool) *PostgresCampaignRepo {
	return &PostgresCampaignRepo{pool: pool}
}

const campaignColumns = `
  id, tenant_id, name, audience_id, template, account_ids, folder, status, status_reason,
  sent_count, failed_count, total_count, current_account_id, next_account_index,
  warm_start, typing_sim, adaptive_delays, smart_personalization,
  delay_min_sec, delay_max_sec, adaptive_multiplier, scheduled_at, created_at, updated_at`

func (r *PostgresCampaignRepo) Save(ctx context.Context, tx repository.Tx, c *model.Campaign) error {
	const q = `
INSERT INTO campaigns (
  id, tenant_id, name, audience_id, template, account_ids, folder, status, status_reason,
  sent_count, failed_count, total_count, current_account_id, next_account_index,
  warm_start, typing_sim, adaptive_delays, smart_personalization,
  delay_min_sec, delay_max_sec, adaptive_multiplier, scheduled_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
ON CONFLICT (id) DO UPDATE SET
  name=$3, template=$5, account_ids=$6, folder=$7, status=$8, status_reason=$9,
  sent_count=$10, failed_count=$11, total_count=$12, current_account_id=$13,
  next_account_index=$14, warm_start=$15, typing_sim=$16, adaptive_delays=$17,
  smart_personalization=$18, delay_min_sec=$19, delay_max_sec=$20,
  adaptive_multiplier=$21, scheduled_at=$22, updated_at=$24;`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q,
		c.ID, c.TenantID, c.Name, c.AudienceID, c.Template, c.AccountIDs, c.Folder, c.Status, c.StatusReason,
		c.SentCount, c.FailedCount, c.TotalCount, c.CurrentAccountID, c.NextAccountIndex,
		c.Flags.WarmStart, c.Flags.TypingSim, c.Flags.AdaptiveDelays, c.Flags.SmartPersonalization,
		c.Pacing.DelayMinSec, c.Pacing.DelayMaxSec, c.AdaptiveMultiplier, c.ScheduledAt, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *PostgresCampaignRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Campaign, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	row := ex.QueryRow(ctx, `SELECT`+campaignColumns+` FROM campaigns WHERE id=$1;`, id)
	return scanCampaign(row)
}

func (r *PostgresCampaignRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Campaign, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT`+campaignColumns+` FROM campaigns WHERE status IN ('pending','running') ORDER BY created_at;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Campaign
	for rows.Next() {
		c, err := scanCampaignRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresCampaignRepo) PauseAllRunning(ctx context.Context, tx repository.Tx, tenantID, reason string) (int, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return 0, err
	}
	tag, err := ex.Exec(ctx,
		`UPDATE campaigns SET status='paused', status_reason=$2, updated_at=now() WHERE tenant_id=$1 AND status='running';`,
		tenantID, reason)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaignFrom(s rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	err := s.Scan(&c.ID, &c.TenantID, &c.Name, &c.AudienceID, &c.Template, &c.AccountIDs, &c.Folder, &c.Status, &c.StatusReason,
		&c.SentCount, &c.FailedCount, &c.TotalCount, &c.CurrentAccountID, &c.NextAccountIndex,
		&c.Flags.WarmStart, &c.Flags.TypingSim, &c.Flags.AdaptiveDelays, &c.Flags.SmartPersonalization,
		&c.Pacing.DelayMinSec, &c.Pacing.DelayMaxSec, &c.AdaptiveMultiplier, &c.ScheduledAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCampaign(row pgx.Row) (*model.Campaign, error) {
	c, err := scanCampaignFrom(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return c, err
}

func scanCampaignRows(rows pgx.Rows) (*model.Campaign, error) {
	return scanCampaignFrom(rows)
}
