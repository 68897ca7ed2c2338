package repository

import (
	"context"

	"telegram-fleet/internal/domain/model"
)

type HerderRepository interface {
	Save(ctx context.Context, tx Tx, a *model.HerderAssignment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.HerderAssignment, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.HerderAssignment, error)
	// ListAutoResumable returns paused assignments whose auto-resume moment
	// has passed.
	ListAutoResumable(ctx context.Context, tx Tx) ([]*model.HerderAssignment, error)

	GetDailyCounter(ctx context.Context, tx Tx, assignmentID, accountID, day string) (*model.HerderDailyCounter, error)
	// IncrDailyCounter bumps actions (and comments when comment is true) for
	// the per-account per-day quota bookkeeping.
	IncrDailyCounter(ctx context.Context, tx Tx, assignmentID, accountID, day string, comment bool) error
	// SumCommentsForDay returns total comments across an assignment's
	// accounts for one tenant-local day.
	SumCommentsForDay(ctx context.Context, tx Tx, assignmentID, day string) (int, error)
}
