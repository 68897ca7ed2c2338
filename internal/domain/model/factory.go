package model

import (
	"time"

	"github.com/google/uuid"

	"telegram-fleet/internal/domain"
)

type FactoryTaskStatus string

const (
	FactoryTaskPending   FactoryTaskStatus = "pending"
	FactoryTaskRunning   FactoryTaskStatus = "running"
	FactoryTaskPaused    FactoryTaskStatus = "paused"
	FactoryTaskCompleted FactoryTaskStatus = "completed"
	FactoryTaskError     FactoryTaskStatus = "error"
)

// FactoryTask asks the factory worker to provision Count accounts in Country,
// one per tick, with roles sampled from RoleDistribution.
type FactoryTask struct {
	ID               string
	TenantID         string
	Count            int
	Country          string
	AutoWarmup       bool
	WarmupDays       int
	RoleDistribution map[AccountRole]float64 // weights, sum <= 1.0
	Status           FactoryTaskStatus
	StatusReason     string
	CreatedCount     int
	FailedCount      int
	Errors           []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewFactoryTask(tenantID, country string, count int) (*FactoryTask, error) {
	if tenantID == "" || country == "" || count < 1 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &FactoryTask{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Count:     count,
		Country:   country,
		Status:    FactoryTaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Exhausted reports whether the task reached its quota of attempts.
func (t *FactoryTask) Exhausted() bool {
	return t.CreatedCount+t.FailedCount >= t.Count
}
