package adapter

import (
	"context"
	"time"
)

// RentedNumber is a phone number leased from the SMS vendor. TZID is the
// vendor's activation handle used for polling and settlement.
type RentedNumber struct {
	Number string
	TZID   string
}

// SMSVendorAdapter is the account factory's gateway to the SMS activation
// vendor. PollCode returns domain.ErrNotFound while no code has arrived yet.
type SMSVendorAdapter interface {
	Balance(ctx context.Context) (float64, error)
	RentNumber(ctx context.Context, service, country string) (*RentedNumber, error)
	PollCode(ctx context.Context, tzid string, timeout time.Duration) (string, error)
	Confirm(ctx context.Context, tzid string) error
	Cancel(ctx context.Context, tzid string) error
}
