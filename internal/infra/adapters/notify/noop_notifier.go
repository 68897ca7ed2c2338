package notify

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-fleet/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier logs notifications instead of delivering them.
type NoopNotifier struct {
	log zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	return &NoopNotifier{log: logger.With().Str("component", "notifier").Logger()}
}

func (n *NoopNotifier) Notify(_ context.Context, tenantID, message string) {
	n.log.Info().Str("tenant_id", tenantID).Str("message", message).Msg("notification")
}
