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

var _ repository.AudienceRepository = (*PostgresAudienceRepo)(nil)

type PostgresAudienceRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAudienceRepo(pool *pgxpool.Pool) *PostgresAudienceRepo {
	return &PostgresAudienceRepo{pool: pool}
}

func (r *PostgresAudienceRepo) FindSource(ctx context.Context, tx repository.Tx, id string) (*model.AudienceSource, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	row := ex.QueryRow(ctx, `SELECT id, tenant_id, name, total, remaining, created_at FROM audience_sources WHERE id=$1;`, id)
	var s model.AudienceSource
	if err := row.Scan(&s.ID, &s.TenantID, &s.Name, &s.Total, &s.Remaining, &s.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *PostgresAudienceRepo) SaveSource(ctx context.Context, tx repository.Tx, s *model.AudienceSource) error {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `
INSERT INTO audience_sources (id, tenant_id, name, total, remaining, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET name=$3, total=$4, remaining=$5;`,
		s.ID, s.TenantID, s.Name, s.Total, s.Remaining, s.CreatedAt)
	return err
}

// FetchUnsentBatch orders by member id so the batch order is arbitrary but
// stable, as the ordering guarantee requires.
func (r *PostgresAudienceRepo) FetchUnsentBatch(ctx context.Context, tx repository.Tx, audienceID string, limit int) ([]*model.AudienceMember, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `
SELECT id, audience_id, telegram_id, username, first_name, last_name, sent, sent_at, fail_reason
  FROM audience_members
 WHERE audience_id=$1 AND sent=false
 ORDER BY id
 LIMIT $2;`, audienceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.AudienceMember
	for rows.Next() {
		var m model.AudienceMember
		if err := rows.Scan(&m.ID, &m.AudienceID, &m.TelegramID, &m.Username, &m.FirstName, &m.LastName, &m.Sent, &m.SentAt, &m.FailReason); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *PostgresAudienceRepo) CountUnsent(ctx context.Context, tx repository.Tx, audienceID string) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM audience_members WHERE audience_id=$1 AND sent=false;`, audienceID)
}

func (r *PostgresAudienceRepo) CountTotal(ctx context.Context, tx repository.Tx, audienceID string) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM audience_members WHERE audience_id=$1;`, audienceID)
}

func (r *PostgresAudienceRepo) count(ctx context.Context, tx repository.Tx, q, audienceID string) (int, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, q, audienceID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PostgresAudienceRepo) MarkSent(ctx context.Context, tx repository.Tx, memberID, failReason string) error {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx,
		`UPDATE audience_members SET sent=true, sent_at=now(), fail_reason=$2 WHERE id=$1 AND sent=false;`,
		memberID, failReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Already marked: the at-most-once contract makes this a no-op.
		return domain.ErrAlreadyExists
	}
	_, err = ex.Exec(ctx,
		`UPDATE audience_sources SET remaining = remaining - 1 WHERE id = (SELECT audience_id FROM audience_members WHERE id=$1) AND remaining > 0;`,
		memberID)
	return err
}

var _ repository.MailingCacheRepository = (*PostgresMailingCacheRepo)(nil)

// PostgresMailingCacheRepo is the durable audit copy of the mailing cache;
// the redis layer in front answers the hot-path lookups.
type PostgresMailingCacheRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresMailingCacheRepo(pool *pgxpool.Pool) *PostgresMailingCacheRepo {
	return &PostgresMailingCacheRepo{pool: pool}
}

func (r *PostgresMailingCacheRepo) Get(ctx context.Context, tx repository.Tx, tenantID string, telegramID int64) (*model.MailingCacheEntry, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	row := ex.QueryRow(ctx,
		`SELECT tenant_id, telegram_id, last_sent_at, ttl_days FROM mailing_cache WHERE tenant_id=$1 AND telegram_id=$2;`,
		tenantID, telegramID)
	var e model.MailingCacheEntry
	if err := row.Scan(&e.TenantID, &e.TelegramID, &e.LastSentAt, &e.TTLDays); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *PostgresMailingCacheRepo) Put(ctx context.Context, tx repository.Tx, e *model.MailingCacheEntry) error {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	if e.LastSentAt.IsZero() {
		e.LastSentAt = time.Now().UTC()
	}
	_, err = ex.Exec(ctx, `
INSERT INTO mailing_cache (tenant_id, telegram_id, last_sent_at, ttl_days)
VALUES ($1,$2,$3,$4)
ON CONFLICT (tenant_id, telegram_id) DO UPDATE SET last_sent_at=$3, ttl_days=$4;`,
		e.TenantID, e.TelegramID, e.LastSentAt, e.TTLDays)
	return err
}
