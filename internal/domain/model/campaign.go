package model

import (
	"time"

	"github.com/google/uuid"

	"telegram-fleet/internal/domain"
)

type CampaignStatus string

const (
	CampaignStatusPending   CampaignStatus = "pending"
	CampaignStatusRunning   CampaignStatus = "running"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusStopped   CampaignStatus = "stopped"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusError     CampaignStatus = "error"
)

// CampaignFlags toggle optional behaviors of the send loop.
type CampaignFlags struct {
	WarmStart            bool
	TypingSim            bool
	AdaptiveDelays       bool
	SmartPersonalization bool
}

// PacingParams is the per-campaign base delay window in seconds.
type PacingParams struct {
	DelayMinSec int
	DelayMaxSec int
}

// Campaign is a mass-send job consuming recipients from an audience source
// through a rotating pool of sender accounts.
type Campaign struct {
	ID                 string
	TenantID           string
	Name               string
	AudienceID         string
	Template           string
	AccountIDs         []string // explicit pool; empty means resolve by Folder
	Folder             string
	Status             CampaignStatus
	StatusReason       string
	SentCount          int
	FailedCount        int
	TotalCount         int
	CurrentAccountID   string
	NextAccountIndex   int
	Flags              CampaignFlags
	Pacing             PacingParams
	AdaptiveMultiplier float64 // >= 1.0, see usecase.Feedback
	ScheduledAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func NewCampaign(tenantID, name, audienceID, template string) (*Campaign, error) {
	if tenantID == "" || audienceID == "" || template == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &Campaign{
		ID:                 uuid.NewString(),
		TenantID:           tenantID,
		Name:               name,
		AudienceID:         audienceID,
		Template:           template,
		Status:             CampaignStatusPending,
		Pacing:             PacingParams{DelayMinSec: 30, DelayMaxSec: 90},
		AdaptiveMultiplier: 1.0,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// campaignTransitions is the campaign state machine. Terminal states have no row.
var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignStatusScheduled: {CampaignStatusPending, CampaignStatusStopped},
	CampaignStatusPending:   {CampaignStatusRunning, CampaignStatusStopped, CampaignStatusError},
	CampaignStatusRunning:   {CampaignStatusPaused, CampaignStatusStopped, CampaignStatusCompleted, CampaignStatusError},
	CampaignStatusPaused:    {CampaignStatusRunning, CampaignStatusStopped},
}

// CanTransition reports whether the state machine allows from -> to.
func (c *Campaign) CanTransition(to CampaignStatus) bool {
	for _, s := range campaignTransitions[c.Status] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition applies a status change, rejecting moves the machine forbids.
func (c *Campaign) Transition(to CampaignStatus, reason string) error {
	if !c.CanTransition(to) {
		return domain.ErrInvalidArgument
	}
	c.Status = to
	c.StatusReason = reason
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (c *Campaign) IsActive() bool {
	return c.Status == CampaignStatusPending || c.Status == CampaignStatusRunning
}
