package repository

import (
	"context"

	"telegram-fleet/internal/domain/model"
)

type WarmupRepository interface {
	Save(ctx context.Context, tx Tx, w *model.WarmupProgress) error
	FindByAccount(ctx context.Context, tx Tx, accountID string) (*model.WarmupProgress, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.WarmupProgress, error)
}
