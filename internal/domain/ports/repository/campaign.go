package repository

import (
	"context"

	"telegram-fleet/internal/domain/model"
)

type CampaignRepository interface {
	Save(ctx context.Context, tx Tx, c *model.Campaign) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Campaign, error)
	// ListActive returns campaigns in pending or running state across all
	// tenants, oldest first.
	ListActive(ctx context.Context, tx Tx) ([]*model.Campaign, error)
	// PauseAllRunning is the multi-row conditional update "pause every
	// running campaign of tenant", used on peer-flood escalation and panic.
	PauseAllRunning(ctx context.Context, tx Tx, tenantID, reason string) (int, error)
}
