package model

import (
	"time"

	"github.com/google/uuid"

	"telegram-fleet/internal/domain"
)

type WarmupProgressStatus string

const (
	WarmupProgressActive    WarmupProgressStatus = "active"
	WarmupProgressCompleted WarmupProgressStatus = "completed"
	WarmupProgressPaused    WarmupProgressStatus = "paused"
	WarmupProgressFailed    WarmupProgressStatus = "failed"
)

type WarmupKind string

const (
	WarmupKindStandard WarmupKind = "standard" // day-staged ramp
	WarmupKindWarm     WarmupKind = "warm"     // 2-day maintenance cycle
)

// WarmupProgress is a per-account day-indexed activity program. At most one
// day advances per tenant-local calendar day (guarded by LastActionAt).
type WarmupProgress struct {
	ID               string
	TenantID         string
	AccountID        string
	Kind             WarmupKind
	TotalDays        int
	CurrentDay       int // 1-based, next day to execute
	Status           WarmupProgressStatus
	CompletedActions []string
	LastActionAt     *time.Time
	WarmFolder       string // optional folder to move the account to on completion
	CreatedAt        time.Time
}

func NewWarmupProgress(tenantID, accountID string, kind WarmupKind, totalDays int) (*WarmupProgress, error) {
	if tenantID == "" || accountID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if totalDays < 1 {
		totalDays = 7
	}
	if kind == WarmupKindWarm {
		totalDays = 2
	}
	return &WarmupProgress{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		AccountID:  accountID,
		Kind:       kind,
		TotalDays:  totalDays,
		CurrentDay: 1,
		Status:     WarmupProgressActive,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// AdvancedOn reports whether the progress already advanced on the given
// tenant-local date.
func (w *WarmupProgress) AdvancedOn(localDay string, loc *time.Location) bool {
	if w.LastActionAt == nil {
		return false
	}
	return w.LastActionAt.In(loc).Format("2006-01-02") == localDay
}

func (w *WarmupProgress) Done() bool { return w.CurrentDay > w.TotalDays }
