package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/ports/repository"
)

// PanicGate is the single per-tenant kill switch consulted by every worker
// before acting. Paused reports true while the flag is set; an elapsed
// auto_resume_at clears the flag on first check.
type PanicGate struct {
	flags repository.PanicFlagRepository
	log   *zerolog.Logger
}

func NewPanicGate(flags repository.PanicFlagRepository, logger *zerolog.Logger) *PanicGate {
	l := logger.With().Str("component", "PanicGate").Logger()
	return &PanicGate{flags: flags, log: &l}
}

func (g *PanicGate) Paused(ctx context.Context, tenantID string) bool {
	flag, err := g.flags.Get(ctx, nil, tenantID)
	if err != nil {
		if err != domain.ErrNotFound {
			// Fail closed: an unreadable flag must not unleash the fleet.
			g.log.Error().Err(err).Str("tenant_id", tenantID).Msg("panic flag read failed")
			return true
		}
		return false
	}
	if !flag.IsPaused {
		return false
	}
	if flag.AutoResumeAt != nil && !flag.AutoResumeAt.After(time.Now().UTC()) {
		flag.IsPaused = false
		flag.AutoResumeAt = nil
		if err := g.flags.Save(ctx, nil, flag); err != nil {
			g.log.Error().Err(err).Str("tenant_id", tenantID).Msg("panic flag auto-resume failed")
			return true
		}
		g.log.Info().Str("tenant_id", tenantID).Msg("panic flag auto-resumed")
		return false
	}
	return true
}
