package repository

import (
	"context"
	"time"

	"telegram-fleet/internal/domain/model"
)

// SendOutcome labels one send attempt for the hourly heatmap.
type SendOutcome string

const (
	OutcomeSuccess   SendOutcome = "success"
	OutcomeFailed    SendOutcome = "failed"
	OutcomeFloodWait SendOutcome = "flood_wait"
)

type StatsRepository interface {
	// IncrHourly bumps the (tenant, weekday, hour) bucket for one outcome.
	IncrHourly(ctx context.Context, tx Tx, tenantID string, at time.Time, outcome SendOutcome) error
	GetBucket(ctx context.Context, tx Tx, tenantID string, day time.Weekday, hour int) (*model.HourlyStatsBucket, error)
}

type ErrorLogRepository interface {
	Save(ctx context.Context, tx Tx, e *model.ErrorLog) error
}
