package repository

import (
	"context"

	"telegram-fleet/internal/domain/model"
)

type BlacklistRepository interface {
	// IsBlacklisted matches by telegram id or username, whichever is set.
	IsBlacklisted(ctx context.Context, tx Tx, tenantID string, telegramID int64, username string) (bool, error)
	Upsert(ctx context.Context, tx Tx, e *model.BlacklistEntry) error
}

type StopTriggerRepository interface {
	ListActive(ctx context.Context, tx Tx, tenantID string) ([]*model.StopTrigger, error)
	IncrementHit(ctx context.Context, tx Tx, id string) error
}
