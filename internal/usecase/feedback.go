package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/repository"
)

// Reliability adjustments per outcome kind. The score stays clamped to
// [0, 100] whatever sequence of outcomes arrives.
const (
	reliabilityGainSuccess   = 0.1
	reliabilityLossTransient = 2
	reliabilityLossFloodWait = 5
)

// Adaptive multiplier rule, single-sourced here: up on adverse signals,
// down on calm ones, clamped to [1.0, 5.0].
const (
	adaptiveStepFloodWait = 0.5
	adaptiveStepPeerFlood = 0.2
	adaptiveStepSuccess   = 0.1
	adaptiveMin           = 1.0
	adaptiveMax           = 5.0
)

// peerFloodCooldown is the extended pause applied to an account that
// triggered PEER_FLOOD; far longer than a typical flood_wait.
const peerFloodCooldown = 24 * time.Hour

// Feedback applies the per-outcome side effects of every Telegram action to
// the acting account and the tenant's hourly heatmap. Account counters and
// the reliability score are mutated nowhere else.
type Feedback struct {
	accounts repository.AccountRepository
	stats    repository.StatsRepository
	errs     repository.ErrorLogRepository
	log      *zerolog.Logger
}

func NewFeedback(accounts repository.AccountRepository, stats repository.StatsRepository, errs repository.ErrorLogRepository, logger *zerolog.Logger) *Feedback {
	l := logger.With().Str("component", "Feedback").Logger()
	return &Feedback{accounts: accounts, stats: stats, errs: errs, log: &l}
}

// Apply mutates and persists the account row for one send/react/comment
// outcome (sendErr nil means success) and bumps the hourly bucket.
func (f *Feedback) Apply(ctx context.Context, tx repository.Tx, acc *model.Account, taskID string, sendErr error) error {
	now := time.Now().UTC()

	if sendErr == nil {
		acc.DailySent++
		acc.ConsecutiveErrors = 0
		acc.ReliabilityScore = clamp(acc.ReliabilityScore+reliabilityGainSuccess, 0, 100)
		acc.UpdatedAt = now
		if err := f.accounts.Save(ctx, tx, acc); err != nil {
			return err
		}
		return f.stats.IncrHourly(ctx, tx, acc.TenantID, now, repository.OutcomeSuccess)
	}

	kind := domain.TelegramErrorKindOf(sendErr)
	outcome := repository.OutcomeFailed

	switch kind {
	case domain.TGErrFloodWait:
		wait, _ := domain.IsFloodWait(sendErr)
		until := now.Add(wait)
		acc.Status = model.AccountStatusFloodWait
		acc.FloodWaitUntil = &until
		acc.TotalFloodWaits++
		acc.ReliabilityScore = clamp(acc.ReliabilityScore-reliabilityLossFloodWait, 0, 100)
		outcome = repository.OutcomeFloodWait
		f.log.Warn().Str("account_id", acc.ID).Dur("wait", wait).Msg("account entered flood wait")

	case domain.TGErrPeerFlood:
		until := now.Add(peerFloodCooldown)
		acc.Status = model.AccountStatusPausedRisk
		acc.FloodWaitUntil = &until
		acc.ReliabilityScore = clamp(acc.ReliabilityScore-reliabilityLossFloodWait, 0, 100)
		f.log.Warn().Str("account_id", acc.ID).Msg("peer flood: account put on extended cooldown")

	case domain.TGErrPrivacyRestricted, domain.TGErrUserBlocked:
		// Recipient-side condition; the sender's reliability is untouched.

	default:
		acc.ConsecutiveErrors++
		acc.DailyErrors++
		acc.ReliabilityScore = clamp(acc.ReliabilityScore-reliabilityLossTransient, 0, 100)
	}

	acc.UpdatedAt = now
	if err := f.accounts.Save(ctx, tx, acc); err != nil {
		return err
	}
	if err := f.stats.IncrHourly(ctx, tx, acc.TenantID, now, outcome); err != nil {
		return err
	}
	return f.recordError(ctx, tx, acc, taskID, kind, sendErr)
}

func (f *Feedback) recordError(ctx context.Context, tx repository.Tx, acc *model.Account, taskID string, kind domain.TelegramErrorKind, sendErr error) error {
	// Recipient-terminal kinds are routine; everything else gets a log row.
	if domain.RecipientTerminal(kind) {
		return nil
	}
	return f.errs.Save(ctx, tx, &model.ErrorLog{
		ID:        uuid.NewString(),
		TenantID:  acc.TenantID,
		TaskID:    taskID,
		AccountID: acc.ID,
		Kind:      string(kind),
		Message:   sendErr.Error(),
		CreatedAt: time.Now().UTC(),
	})
}

// ApplyAdaptive folds one outcome into a campaign's adaptive multiplier.
// Pure on the campaign struct; the caller persists the row.
func ApplyAdaptive(c *model.Campaign, sendErr error) {
	if c.AdaptiveMultiplier < adaptiveMin {
		c.AdaptiveMultiplier = adaptiveMin
	}
	switch domain.TelegramErrorKindOf(sendErr) {
	case domain.TGErrFloodWait:
		c.AdaptiveMultiplier += adaptiveStepFloodWait
	case domain.TGErrPeerFlood:
		c.AdaptiveMultiplier += adaptiveStepPeerFlood
	default:
		if sendErr == nil {
			c.AdaptiveMultiplier -= adaptiveStepSuccess
		}
	}
	c.AdaptiveMultiplier = clamp(c.AdaptiveMultiplier, adaptiveMin, adaptiveMax)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
