//go:build !integration

package sched

import (
	"context"
	"time"

	"telegram-fleet/internal/domain/model"
)

// Test hooks: drive single units of work without the ticker loops, and pin
// the random draws.

func (w *CampaignWorker) ProcessCampaign(ctx context.Context, c *model.Campaign) error {
	return w.processCampaign(ctx, c)
}

func (w *HerderWorker) Tick(ctx context.Context) error { return w.tick(ctx) }

func (w *HerderWorker) SetRand(f func() float64, n func(int) int) {
	w.randFloat = f
	w.randIntn = n
}

func (w *WarmupWorker) Advance(ctx context.Context, p *model.WarmupProgress) error {
	return w.advance(ctx, p)
}

func (w *WarmupWorker) SetRand(f func() float64, n func(int) int) {
	w.randFloat = f
	w.randIntn = n
}

func (w *WarmupWorker) SetSleepUnit(d time.Duration) { w.sleepUnit = d }

func DayPlan(kind model.WarmupKind, day int, f func() float64, n func(int) int) []string {
	return dayPlan(kind, day, f, n)
}

func (w *FactoryWorker) Process(ctx context.Context, t *model.FactoryTask) error {
	return w.process(ctx, t)
}

func (w *FactoryWorker) SetRandFloat(f func() float64) { w.randFloat = f }

func (w *AuthWorker) Process(ctx context.Context, t *model.AuthTask) error {
	return w.process(ctx, t)
}

func (w *SchedulerWorker) Tick(ctx context.Context) error { return w.tick(ctx) }

func (w *ContentWorker) ProcessScheduled(ctx context.Context, now time.Time) error {
	return w.processScheduled(ctx, now)
}

func (w *ContentWorker) ProcessTemplates(ctx context.Context, now time.Time) error {
	return w.processTemplates(ctx, now)
}

func (w *DailyResetWorker) Tick(ctx context.Context) error { return w.tick(ctx) }
