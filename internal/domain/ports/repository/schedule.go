package repository

import (
	"context"
	"time"

	"telegram-fleet/internal/domain/model"
)

type ScheduleRepository interface {
	Save(ctx context.Context, tx Tx, s *model.ScheduledItem) error
	// ListDue returns pending items with scheduled_at <= now.
	ListDue(ctx context.Context, tx Tx, now time.Time) ([]*model.ScheduledItem, error)

	SaveTemplate(ctx context.Context, tx Tx, t *model.ContentTemplate) error
	ListActiveTemplates(ctx context.Context, tx Tx) ([]*model.ContentTemplate, error)
}
