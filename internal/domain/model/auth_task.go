package model

import (
	"time"

	"github.com/google/uuid"

	"telegram-fleet/internal/domain"
)

type AuthTaskStatus string

const (
	AuthTaskPending      AuthTaskStatus = "pending"
	AuthTaskCodeSent     AuthTaskStatus = "code_sent"
	AuthTaskCodeReceived AuthTaskStatus = "code_received"
	AuthTaskCompleted    AuthTaskStatus = "completed"
	AuthTask2FARequired  AuthTaskStatus = "2fa_required"
	AuthTaskError        AuthTaskStatus = "error"
)

// codeTTL bounds how long a sent login code stays usable before the task is
// failed as expired.
const codeTTL = 5 * time.Minute

// AuthTask drives interactive authorization of a manually added account.
// The UI fills Code (and Password for 2FA) out of band; the auth worker
// advances the state machine.
type AuthTask struct {
	ID           string
	TenantID     string
	AccountID    string
	Phone        string
	Proxy        string
	Status       AuthTaskStatus
	CodeHash     string
	Code         string
	Password     string
	StatusReason string
	CodeSentAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewAuthTask(tenantID, accountID, phone string) (*AuthTask, error) {
	if tenantID == "" || accountID == "" || phone == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &AuthTask{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		AccountID: accountID,
		Phone:     phone,
		Status:    AuthTaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CodeExpired reports whether the login code outlived its TTL.
func (t *AuthTask) CodeExpired(now time.Time) bool {
	return t.CodeSentAt != nil && now.Sub(*t.CodeSentAt) > codeTTL
}
