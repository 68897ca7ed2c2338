package repository

import (
	"context"

	"telegram-fleet/internal/domain/model"
)

type SettingsRepository interface {
	// Get returns the tenant settings, falling back to documented defaults
	// for a tenant without a row.
	Get(ctx context.Context, tx Tx, tenantID string) (*model.TenantSettings, error)
	Save(ctx context.Context, tx Tx, s *model.TenantSettings) error
	ListTenantIDs(ctx context.Context, tx Tx) ([]string, error)
}

type PanicFlagRepository interface {
	Get(ctx context.Context, tx Tx, tenantID string) (*model.PanicFlag, error)
	Save(ctx context.Context, tx Tx, f *model.PanicFlag) error
}
