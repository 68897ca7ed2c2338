package usecase

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/repository"
)

const (
	// Warm-start ramp: delays are inflated until this many messages went out.
	warmStartCount      = 10
	warmStartMultiplier = 2.5

	// Hard cap so composed multipliers never starve a campaign.
	maxDelay = 10 * time.Minute

	// Typing simulation window, drawn independently of the inter-send delay.
	typingMin = 1 * time.Second
	typingMax = 5 * time.Second
)

// Pacing computes inter-send delays and the may-send predicate for
// campaigns. The delay is a uniform draw from the campaign's window scaled
// by warm-start, adaptive and hour-of-day factors.
type Pacing struct {
	stats repository.StatsRepository
	gate  *PanicGate
	log   *zerolog.Logger

	// randFloat is swapped in tests for determinism.
	randFloat func() float64
}

func NewPacing(stats repository.StatsRepository, gate *PanicGate, logger *zerolog.Logger) *Pacing {
	l := logger.With().Str("component", "Pacing").Logger()
	return &Pacing{stats: stats, gate: gate, log: &l, randFloat: rand.Float64}
}

// NextDelay computes the sleep before the campaign's next message.
func (p *Pacing) NextDelay(ctx context.Context, c *model.Campaign, now time.Time) time.Duration {
	lo := time.Duration(c.Pacing.DelayMinSec) * time.Second
	hi := time.Duration(c.Pacing.DelayMaxSec) * time.Second
	if hi < lo {
		hi = lo
	}
	d := lo + time.Duration(p.randFloat()*float64(hi-lo))

	if c.Flags.WarmStart && c.SentCount < warmStartCount {
		d = time.Duration(float64(d) * warmStartMultiplier)
	}
	if c.Flags.AdaptiveDelays && c.AdaptiveMultiplier > 1 {
		d = time.Duration(float64(d) * c.AdaptiveMultiplier)
	}
	d = time.Duration(float64(d) * p.hourFactor(ctx, c.TenantID, now))

	if d > maxDelay {
		d = maxDelay
	}
	return d
}

// hourFactor scales delays by the tenant's historical flood-wait ratio for
// the current (weekday, hour) bucket. An empty bucket is a no-op factor.
func (p *Pacing) hourFactor(ctx context.Context, tenantID string, now time.Time) float64 {
	b, err := p.stats.GetBucket(ctx, nil, tenantID, now.UTC().Weekday(), now.UTC().Hour())
	if err != nil || b == nil || b.Sent == 0 {
		return 1.0
	}
	switch ratio := b.FloodWaitRatio(); {
	case ratio > 0.10:
		return 2.0
	case ratio > 0.05:
		return 1.5
	case ratio < 0.01:
		return 0.8
	}
	return 1.0
}

// MaySend reports false when the tenant is panicked, inside
// quiet hours, the campaign is not running, or no sender is eligible.
func (p *Pacing) MaySend(ctx context.Context, c *model.Campaign, settings *model.TenantSettings, hasEligibleSender bool, now time.Time) bool {
	if p.gate != nil && p.gate.Paused(ctx, c.TenantID) {
		return false
	}
	if settings.InQuietHours(now) {
		return false
	}
	if c.Status != model.CampaignStatusRunning {
		return false
	}
	return hasEligibleSender
}

// TypingDelay draws the typing-simulation duration; zero when the campaign
// has the flag off.
func (p *Pacing) TypingDelay(c *model.Campaign) time.Duration {
	if !c.Flags.TypingSim {
		return 0
	}
	return typingMin + time.Duration(p.randFloat()*float64(typingMax-typingMin))
}
