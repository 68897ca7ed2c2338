package repository

import (
	"context"

	"telegram-fleet/internal/domain/model"
)

type AudienceRepository interface {
	FindSource(ctx context.Context, tx Tx, id string) (*model.AudienceSource, error)
	SaveSource(ctx context.Context, tx Tx, s *model.AudienceSource) error
	// FetchUnsentBatch returns up to limit members with sent=false, in a
	// stable per-batch order.
	FetchUnsentBatch(ctx context.Context, tx Tx, audienceID string, limit int) ([]*model.AudienceMember, error)
	CountUnsent(ctx context.Context, tx Tx, audienceID string) (int, error)
	CountTotal(ctx context.Context, tx Tx, audienceID string) (int, error)
	// MarkSent writes the at-most-once idempotency mark. It must be called
	// inside the same transaction as the outcome record.
	MarkSent(ctx context.Context, tx Tx, memberID, failReason string) error
}

type MailingCacheRepository interface {
	Get(ctx context.Context, tx Tx, tenantID string, telegramID int64) (*model.MailingCacheEntry, error)
	Put(ctx context.Context, tx Tx, e *model.MailingCacheEntry) error
}
