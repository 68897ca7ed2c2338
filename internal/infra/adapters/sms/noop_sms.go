package sms

import (
	"context"
	"time"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/ports/adapter"
)

var _ adapter.SMSVendorAdapter = (*NoopSMSAdapter)(nil)

// NoopSMSAdapter reports a healthy balance and no numbers, so a deployment
// without an SMS key keeps factory tasks pending instead of failing them.
type NoopSMSAdapter struct{}

func NewNoopSMSAdapter() *NoopSMSAdapter { return &NoopSMSAdapter{} }

func (a *NoopSMSAdapter) Balance(_ context.Context) (float64, error) { return 0, nil }

func (a *NoopSMSAdapter) RentNumber(_ context.Context, _, _ string) (*adapter.RentedNumber, error) {
	return nil, domain.ErrUnreachable
}

func (a *NoopSMSAdapter) PollCode(_ context.Context, _ string, _ time.Duration) (string, error) {
	return "", domain.ErrNotFound
}

func (a *NoopSMSAdapter) Confirm(_ context.Context, _ string) error { return nil }

func (a *NoopSMSAdapter) Cancel(_ context.Context, _ string) error { return nil }
