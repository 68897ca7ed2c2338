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

var _ repository.SettingsRepository = (*PostgresSettingsRepo)(nil)

// PostgresSettingsRepo keeps the herder/factory sub-structures as JSONB so new
// knobs do not need a migration each time.
type PostgresSettingsRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresSettingsRepo(pool *pgxpool.Pool) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{pool: pool}
}

func (r *PostgresSettingsRepo) Get(ctx context.Context, tx repository.Tx, tenantID string) (*model.TenantSettings, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	row := ex.QueryRow(ctx, `
SELECT tenant_id, timezone, quiet_hours_start, quiet_hours_end, daily_limit_default,
       delay_min_sec, delay_max_sec, mailing_cache_ttl_days, auto_blacklist_enabled,
       warmup_before_mailing, warmup_duration_minutes, risk_tolerance, learning_mode,
       auto_recovery_mode, herder, factory, llm_api_key, llm_model, sms_api_key, notify_chat_id
  FROM tenant_settings WHERE tenant_id=$1;`, tenantID)

	var s model.TenantSettings
	var herder, factory []byte
	err = row.Scan(&s.TenantID, &s.Timezone, &s.QuietHoursStart, &s.QuietHoursEnd, &s.DailyLimitDefault,
		&s.DelayMinSec, &s.DelayMaxSec, &s.MailingCacheTTLDays, &s.AutoBlacklistEnabled,
		&s.WarmupBeforeMailing, &s.WarmupDurationMinutes, &s.RiskTolerance, &s.LearningMode,
		&s.AutoRecoveryMode, &herder, &factory, &s.LLMAPIKey, &s.LLMModel, &s.SMSAPIKey, &s.NotifyChatID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.DefaultTenantSettings(tenantID), nil
		}
		return nil, err
	}
	if len(herder) > 0 {
		if err := json.Unmarshal(herder, &s.Herder); err != nil {
			return nil, err
		}
	}
	if len(factory) > 0 {
		if err := json.Unmarshal(factory, &s.Factory); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func (r *PostgresSettingsRepo) Save(ctx context.Context, tx repository.Tx, s *model.TenantSettings) error {
	herder, err := json.Marshal(s.Herder)
	if err != nil {
		return err
	}
	factory, err := json.Marshal(s.Factory)
	if err != nil {
		return err
	}
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `
INSERT INTO tenant_settings (
  tenant_id, timezone, quiet_hours_start, quiet_hours_end, daily_limit_default,
  delay_min_sec, delay_max_sec, mailing_cache_ttl_days, auto_blacklist_enabled,
  warmup_before_mailing, warmup_duration_minutes, risk_tolerance, learning_mode,
  auto_recovery_mode, herder, factory, llm_api_key, llm_model, sms_api_key, notify_chat_id
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
ON CONFLICT (tenant_id) DO UPDATE SET
  timezone=$2, quiet_hours_start=$3, quiet_hours_end=$4, daily_limit_default=$5,
  delay_min_sec=$6, delay_max_sec=$7, mailing_cache_ttl_days=$8, auto_blacklist_enabled=$9,
  warmup_before_mailing=$10, warmup_duration_minutes=$11, risk_tolerance=$12,
  learning_mode=$13, auto_recovery_mode=$14, herder=$15, factory=$16,
  llm_api_key=$17, llm_model=$18, sms_api_key=$19, notify_chat_id=$20;`,
		s.TenantID, s.Timezone, s.QuietHoursStart, s.QuietHoursEnd, s.DailyLimitDefault,
		s.DelayMinSec, s.DelayMaxSec, s.MailingCacheTTLDays, s.AutoBlacklistEnabled,
		s.WarmupBeforeMailing, s.WarmupDurationMinutes, s.RiskTolerance, s.LearningMode,
		s.AutoRecoveryMode, herder, factory, s.LLMAPIKey, s.LLMModel, s.SMSAPIKey, s.NotifyChatID)
	return err
}

func (r *PostgresSettingsRepo) ListTenantIDs(ctx context.Context, tx repository.Tx) ([]string, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT tenant_id FROM tenant_settings ORDER BY tenant_id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

var _ repository.PanicFlagRepository = (*PostgresPanicFlagRepo)(nil)

type PostgresPanicFlagRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPanicFlagRepo(pool *pgxpool.Pool) *PostgresPanicFlagRepo {
	return &PostgresPanicFlagRepo{pool: pool}
}

func (r *PostgresPanicFlagRepo) Get(ctx context.Context, tx repository.Tx, tenantID string) (*model.PanicFlag, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	row := ex.QueryRow(ctx,
		`SELECT tenant_id, is_paused, reason, auto_resume_at, set_at FROM panic_flags WHERE tenant_id=$1;`, tenantID)
	var f model.PanicFlag
	if err := row.Scan(&f.TenantID, &f.IsPaused, &f.Reason, &f.AutoResumeAt, &f.SetAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *PostgresPanicFlagRepo) Save(ctx context.Context, tx repository.Tx, f *model.PanicFlag) error {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `
INSERT INTO panic_flags (tenant_id, is_paused, reason, auto_resume_at, set_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (tenant_id) DO UPDATE SET is_paused=$2, reason=$3, auto_resume_at=$4, set_at=$5;`,
		f.TenantID, f.IsPaused, f.Reason, f.AutoResumeAt, f.SetAt)
	return err
}
