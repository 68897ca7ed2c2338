package repository

import (
	"context"

	"telegram-fleet/internal/domain/model"
)

type AccountRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Account) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Account, error)
	FindByPhone(ctx context.Context, tx Tx, tenantID, phone string) (*model.Account, error)
	ListByIDs(ctx context.Context, tx Tx, ids []string) ([]*model.Account, error)
	ListByFolder(ctx context.Context, tx Tx, tenantID, folder string) ([]*model.Account, error)
	ListByTenant(ctx context.Context, tx Tx, tenantID string) ([]*model.Account, error)
	// ResetDaily zeroes daily_sent and daily_errors for every account of the
	// tenant; runs once per tenant-local midnight.
	ResetDaily(ctx context.Context, tx Tx, tenantID string) (int, error)
}
