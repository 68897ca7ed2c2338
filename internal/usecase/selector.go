package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/repository"
)

// PickOptions tune one selection call. QuotaCheck lets herder/warmup callers
// veto candidates whose per-assignment daily quota is exhausted.
type PickOptions struct {
	Now        time.Time
	QuotaCheck func(a *model.Account) bool
}

// Selector picks the next sender account under the composite eligibility
// formula: active status, no live flood-wait, daily budget left, tenant not
// panicked, optional quota hook. Among the eligible the highest score wins:
//
//	score = daily_remaining × reliability/100 − consecutive_errors × 10
//
// ties broken by lowest daily_sent, then earliest created.
type Selector struct {
	accounts repository.AccountRepository
	gate     *PanicGate
	log      *zerolog.Logger
}

func NewSelector(accounts repository.AccountRepository, gate *PanicGate, logger *zerolog.Logger) *Selector {
	l := logger.With().Str("component", "Selector").Logger()
	return &Selector{accounts: accounts, gate: gate, log: &l}
}

// Pick returns the best eligible account or domain.ErrNoEligibleSender.
// Accounts whose flood-wait elapsed are atomically reactivated on the way.
func (s *Selector) Pick(ctx context.Context, tenantID string, candidates []*model.Account, opt PickOptions) (*model.Account, error) {
	if opt.Now.IsZero() {
		opt.Now = time.Now().UTC()
	}
	if s.gate != nil && s.gate.Paused(ctx, tenantID) {
		return nil, domain.ErrTenantPaused
	}

	var best *model.Account
	var bestScore float64
	for _, a := range candidates {
		if a.FloodWaitOver(opt.Now) {
			a.Reactivate()
			if err := s.accounts.Save(ctx, nil, a); err != nil {
				s.log.Error().Err(err).Str("account_id", a.ID).Msg("flood-wait reactivation failed")
				continue
			}
		}
		if !s.eligible(a, opt) {
			continue
		}
		score := Score(a)
		if best == nil || score > bestScore || (score == bestScore && tieBreak(a, best)) {
			best = a
			bestScore = score
		}
	}
	if best == nil {
		return nil, domain.ErrNoEligibleSender
	}
	return best, nil
}

func (s *Selector) eligible(a *model.Account, opt PickOptions) bool {
	if a.Status != model.AccountStatusActive {
		return false
	}
	if a.FloodWaitUntil != nil && a.FloodWaitUntil.After(opt.Now) {
		return false
	}
	if a.DailyRemaining() <= 0 {
		return false
	}
	if opt.QuotaCheck != nil && !opt.QuotaCheck(a) {
		return false
	}
	return true
}

// Score is the composite ranking formula.
func Score(a *model.Account) float64 {
	return float64(a.DailyRemaining())*a.ReliabilityScore/100 - float64(a.ConsecutiveErrors)*10
}

func tieBreak(a, b *model.Account) bool {
	if a.DailySent != b.DailySent {
		return a.DailySent < b.DailySent
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
