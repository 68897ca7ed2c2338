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

var _ repository.HerderRepository = (*PostgresHerderRepo)(nil)

// PostgresHerderRepo stores assignments with the action chain and settings
// as JSONB; the chain is an ordered document, not a relational shape.
type PostgresHerderRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresHerderRepo(pool *pgxpool.Pool) *PostgresHerderRepo {
	return &PostgresHerderRepo{pool: pool}
}

const herderColumns = `
  id, tenant_id, channel, account_ids, strategy, action_chain, settings, status,
  auto_resume_at, total_actions, total_comments, deleted_comments, created_at, updated_at`

func (r *PostgresHerderRepo) Save(ctx context.Context, tx repository.Tx, a *model.HerderAssignment) error {
	chain, err := json.Marshal(a.ActionChain)
	if err != nil {
		return err
	}
	settings, err := json.Marshal(a.Settings)
	if err != nil {
		return err
	}
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `
INSERT INTO herder_assignments (
  id, tenant_id, channel, account_ids, strategy, action_chain, settings, status,
  auto_resume_at, total_actions, total_comments, deleted_comments, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO UPDATE SET
  channel=$3, account_ids=$4, strategy=$5, action_chain=$6, settings=$7, status=$8,
  auto_resume_at=$9, total_actions=$10, total_comments=$11, deleted_comments=$12, updated_at=$14;`,
		a.ID, a.TenantID, a.Channel, a.AccountIDs, a.Strategy, chain, settings, a.Status,
		a.AutoResumeAt, a.TotalActions, a.TotalComments, a.DeletedComments, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *PostgresHerderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.HerderAssignment, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	row := ex.QueryRow(ctx, `SELECT`+herderColumns+` FROM herder_assignments WHERE id=$1;`, id)
	a, err := scanAssignment(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return a, err
}

func (r *PostgresHerderRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.HerderAssignment, error) {
	return r.list(ctx, tx, `SELECT`+herderColumns+` FROM herder_assignments WHERE status='active' ORDER BY created_at;`)
}

func (r *PostgresHerderRepo) ListAutoResumable(ctx context.Context, tx repository.Tx) ([]*model.HerderAssignment, error) {
	return r.list(ctx, tx, `SELECT`+herderColumns+` FROM herder_assignments WHERE status='paused' AND auto_resume_at IS NOT NULL AND auto_resume_at <= now();`)
}

func (r *PostgresHerderRepo) list(ctx context.Context, tx repository.Tx, q string) ([]*model.HerderAssignment, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.HerderAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAssignment(s rowScanner) (*model.HerderAssignment, error) {
	var a model.HerderAssignment
	var chain, settings []byte
	err := s.Scan(&a.ID, &a.TenantID, &a.Channel, &a.AccountIDs, &a.Strategy, &chain, &settings, &a.Status,
		&a.AutoResumeAt, &a.TotalActions, &a.TotalComments, &a.DeletedComments, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(chain) > 0 {
		if err := json.Unmarshal(chain, &a.ActionChain); err != nil {
			return nil, err
		}
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &a.Settings); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

func (r *PostgresHerderRepo) GetDailyCounter(ctx context.Context, tx repository.Tx, assignmentID, accountID, day string) (*model.HerderDailyCounter, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	row := ex.QueryRow(ctx,
		`SELECT assignment_id, account_id, day, actions, comments FROM herder_daily_counters WHERE assignment_id=$1 AND account_id=$2 AND day=$3;`,
		assignmentID, accountID, day)
	var c model.HerderDailyCounter
	if err := row.Scan(&c.AssignmentID, &c.AccountID, &c.Day, &c.Actions, &c.Comments); err != nil {
		if err == pgx.ErrNoRows {
			return &model.HerderDailyCounter{AssignmentID: assignmentID, AccountID: accountID, Day: day}, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *PostgresHerderRepo) IncrDailyCounter(ctx context.Context, tx repository.Tx, assignmentID, accountID, day string, comment bool) error {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	commentInc := 0
	if comment {
		commentInc = 1
	}
	_, err = ex.Exec(ctx, `
INSERT INTO herder_daily_counters (assignment_id, account_id, day, actions, comments)
VALUES ($1,$2,$3,1,$4)
ON CONFLICT (assignment_id, account_id, day)
DO UPDATE SET actions = herder_daily_counters.actions + 1,
              comments = herder_daily_counters.comments + $4;`,
		assignmentID, accountID, day, commentInc)
	return err
}

func (r *PostgresHerderRepo) SumCommentsForDay(ctx context.Context, tx repository.Tx, assignmentID, day string) (int, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	err = ex.QueryRow(ctx,
		`SELECT COALESCE(SUM(comments),0) FROM herder_daily_counters WHERE assignment_id=$1 AND day=$2;`,
		assignmentID, day).Scan(&n)
	return n, err
}
