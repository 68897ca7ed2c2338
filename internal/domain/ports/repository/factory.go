package repository

import (
	"context"

	"telegram-fleet/internal/domain/model"
)

type FactoryTaskRepository interface {
	Save(ctx context.Context, tx Tx, t *model.FactoryTask) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.FactoryTask, error)
	// ListRunnable returns pending and running tasks that still have quota.
	ListRunnable(ctx context.Context, tx Tx) ([]*model.FactoryTask, error)
}

type AuthTaskRepository interface {
	Save(ctx context.Context, tx Tx, t *model.AuthTask) error
	// ListActionable returns tasks in pending or code_received state.
	ListActionable(ctx context.Context, tx Tx) ([]*model.AuthTask, error)
}
