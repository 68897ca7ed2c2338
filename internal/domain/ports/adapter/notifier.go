package adapter

import "context"

// Notifier is the outbound one-way channel to the tenant operator: campaign
// started/completed/paused, account entered flood-wait. No acknowledgement
// semantics; failures are logged and dropped.
type Notifier interface {
	Notify(ctx context.Context, tenantID, message string)
}
