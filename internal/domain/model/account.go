package model

import (
	"time"

	"github.com/google/uuid"

	"telegram-fleet/internal/domain"
)

type AccountStatus string

const (
	AccountStatusPending    AccountStatus = "pending"
	AccountStatusActive     AccountStatus = "active"
	AccountStatusFloodWait  AccountStatus = "flood_wait"
	AccountStatusBlocked    AccountStatus = "blocked"
	AccountStatusError      AccountStatus = "error"
	AccountStatusPausedRisk AccountStatus = "paused_risk"
)

type WarmupStatus string

const (
	WarmupNone       WarmupStatus = "none"
	WarmupInProgress WarmupStatus = "in_progress"
	WarmupCompleted  WarmupStatus = "completed"
	WarmupPaused     WarmupStatus = "paused"
)

type AccountRole string

const (
	RoleObserver    AccountRole = "observer"
	RoleExpert      AccountRole = "expert"
	RoleSupport     AccountRole = "support"
	RoleTrendsetter AccountRole = "trendsetter"
	RoleCommunity   AccountRole = "community"
)

// Account is one Telegram user identity driven by the worker fleet.
// Counters and the reliability score are mutated only through the feedback
// rules in usecase.Feedback; workers read them for eligibility decisions.
type Account struct {
	ID                string
	TenantID          string
	Phone             string
	Username          string
	FirstName         string
	LastName          string
	Status            AccountStatus
	Role              AccountRole
	Folder            string
	Proxy             string
	DailySent         int
	DailyErrors       int
	DailyLimit        int
	ReliabilityScore  float64 // [0, 100]
	ConsecutiveErrors int
	TotalFloodWaits   int
	FloodWaitUntil    *time.Time
	WarmupStatus      WarmupStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewAccount(tenantID, phone string, role AccountRole, dailyLimit int) (*Account, error) {
	if tenantID == "" || phone == "" {
		return nil, domain.ErrInvalidArgument
	}
	if role == "" {
		role = RoleObserver
	}
	if dailyLimit < 1 {
		dailyLimit = 30
	}
	now := time.Now().UTC()
	return &Account{
		ID:               uuid.NewString(),
		TenantID:         tenantID,
		Phone:            phone,
		Status:           AccountStatusPending,
		Role:             role,
		DailyLimit:       dailyLimit,
		ReliabilityScore: 100,
		WarmupStatus:     WarmupNone,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// DailyRemaining never reports negative even during a transient overshoot.
func (a *Account) DailyRemaining() int {
	rem := a.DailyLimit - a.DailySent
	if rem < 0 {
		return 0
	}
	return rem
}

// FloodWaitOver reports whether a flood_wait cooldown has elapsed.
func (a *Account) FloodWaitOver(now time.Time) bool {
	return a.Status == AccountStatusFloodWait &&
		(a.FloodWaitUntil == nil || !a.FloodWaitUntil.After(now))
}

// Reactivate clears the flood-wait cooldown state.
func (a *Account) Reactivate() {
	a.Status = AccountStatusActive
	a.FloodWaitUntil = nil
	a.ConsecutiveErrors = 0
}

// ResetDaily zeroes per-day counters; invoked at tenant-local midnight.
func (a *Account) ResetDaily() {
	a.DailySent = 0
	a.DailyErrors = 0
}
