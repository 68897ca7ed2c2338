package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/repository"
)

var _ repository.ScheduleRepository = (*PostgresScheduleRepo)(nil)

type PostgresScheduleRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresScheduleRepo(pool *pgxpool.Pool) *PostgresScheduleRepo {
	return &PostgresScheduleRepo{pool: pool}
}

func (r *PostgresScheduleRepo) Save(ctx context.Context, tx repository.Tx, s *model.ScheduledItem) error {
	payload, err := json.Marshal(s.Payload)
	if err != nil {
		return err
	}
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `
INSERT INTO scheduled_items (id, tenant_id, kind, payload, scheduled_at, repeat_mode, status, status_reason, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  payload=$4, scheduled_at=$5, repeat_mode=$6, status=$7, status_reason=$8;`,
		s.ID, s.TenantID, s.Kind, payload, s.ScheduledAt, s.RepeatMode, s.Status, s.StatusReason, s.CreatedAt)
	return err
}

func (r *PostgresScheduleRepo) ListDue(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.ScheduledItem, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `
SELECT id, tenant_id, kind, payload, scheduled_at, repeat_mode, status, status_reason, created_at
  FROM scheduled_items
 WHERE status='pending' AND scheduled_at <= $1
 ORDER BY scheduled_at;`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ScheduledItem
	for rows.Next() {
		var s model.ScheduledItem
		var payload []byte
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Kind, &payload, &s.ScheduledAt, &s.RepeatMode, &s.Status, &s.StatusReason, &s.CreatedAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &s.Payload); err != nil {
				return nil, err
			}
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *PostgresScheduleRepo) SaveTemplate(ctx context.Context, tx repository.Tx, t *model.ContentTemplate) error {
	weekdays := make([]int, 0, len(t.Weekdays))
	for _, w := range t.Weekdays {
		weekdays = append(weekdays, int(w))
	}
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `
INSERT INTO content_templates (id, tenant_id, channel, text, publish_time, weekdays, ai_rewrite, active, last_fired_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  channel=$3, text=$4, publish_time=$5, weekdays=$6, ai_rewrite=$7, active=$8, last_fired_at=$9;`,
		t.ID, t.TenantID, t.Channel, t.Text, t.PublishTime, weekdays, t.AIRewrite, t.Active, t.LastFiredAt, t.CreatedAt)
	return err
}

func (r *PostgresScheduleRepo) ListActiveTemplates(ctx context.Context, tx repository.Tx) ([]*model.ContentTemplate, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `
SELECT id, tenant_id, channel, text, publish_time, weekdays, ai_rewrite, active, last_fired_at, created_at
  FROM content_templates
 WHERE active=true
 ORDER BY created_at;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ContentTemplate
	for rows.Next() {
		var t model.ContentTemplate
		var weekdays []int
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Channel, &t.Text, &t.PublishTime, &weekdays, &t.AIRewrite, &t.Active, &t.LastFiredAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		for _, w := range weekdays {
			t.Weekdays = append(t.Weekdays, time.Weekday(w))
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
