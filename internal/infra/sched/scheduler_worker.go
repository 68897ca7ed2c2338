package sched

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/repository"
	"telegram-fleet/internal/infra/metrics"
	infraredis "telegram-fleet/internal/infra/redis"
	"telegram-fleet/internal/usecase"
)

const schedulerLockKey = "lock:scheduler"

// SchedulerWorker materializes due scheduled items into live rows: a mailing
// becomes a pending campaign, a task becomes a factory task. Recurring items
// re-arm by their period, one-shot items complete. The whole tick runs under
// a redis lock so only one replica materializes.
type SchedulerWorker struct {
	interval time.Duration

	schedules repository.ScheduleRepository
	campaigns repository.CampaignRepository
	factories repository.FactoryTaskRepository

	gate   *usecase.PanicGate
	locker infraredis.Locker

	log *zerolog.Logger
}

func NewSchedulerWorker(interval time.Duration, schedules repository.ScheduleRepository, campaigns repository.CampaignRepository, factories repository.FactoryTaskRepository, gate *usecase.PanicGate, locker infraredis.Locker, logger *zerolog.Logger) *SchedulerWorker {
	l := logger.With().Str("component", "SchedulerWorker").Logger()
	return &SchedulerWorker{
		interval:  interval,
		schedules: schedules,
		campaigns: campaigns,
		factories: factories,
		gate:      gate,
		locker:    locker,
		log:       &l,
	}
}

func (w *SchedulerWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting scheduler worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping scheduler worker")
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := w.tick(ctx); err != nil {
				metrics.IncTickError("scheduler")
				w.log.Error().Err(err).Msg("scheduler tick error")
			}
			metrics.ObserveTick("scheduler", time.Since(start).Seconds())
		}
	}
}

func (w *SchedulerWorker) tick(ctx context.Context) error {
	token, err := w.locker.TryLock(ctx, schedulerLockKey, w.interval)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil // another replica holds the tick
		}
		return err
	}
	defer func() { _ = w.locker.Unlock(ctx, schedulerLockKey, token) }()

	now := time.Now().UTC()
	due, err := w.schedules.ListDue(ctx, nil, now)
	if err != nil {
		return err
	}
	for _, item := range due {
		if item.Kind == model.ScheduledKindContent {
			continue // the content worker owns these
		}
		if w.gate.Paused(ctx, item.TenantID) {
			continue
		}
		if err := w.materialize(ctx, item); err != nil {
			item.Status = model.ScheduleError
			item.StatusReason = err.Error()
			w.log.Error().Err(err).Str("item_id", item.ID).Str("kind", string(item.Kind)).Msg("materialization failed")
		} else if period := item.Period(); period > 0 {
			item.ScheduledAt = item.ScheduledAt.Add(period)
			for !item.ScheduledAt.After(now) {
				item.ScheduledAt = item.ScheduledAt.Add(period)
			}
		} else {
			item.Status = model.ScheduleCompleted
		}
		if err := w.schedules.Save(ctx, nil, item); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (w *SchedulerWorker) materialize(ctx context.Context, item *model.ScheduledItem) error {
	switch item.Kind {
	case model.ScheduledKindMailing:
		return w.startMailing(ctx, item)
	case model.ScheduledKindTask:
		return w.startTask(ctx, item)
	}
	return fmt.Errorf("unknown scheduled kind %q", item.Kind)
}

// startMailing moves a pre-created scheduled campaign to pending, or builds a
// fresh campaign from the payload when no campaign_id is present.
func (w *SchedulerWorker) startMailing(ctx context.Context, item *model.ScheduledItem) error {
	if id := item.Payload["campaign_id"]; id != "" {
		c, err := w.campaigns.FindByID(ctx, nil, id)
		if err != nil {
			return err
		}
		if c.Status != model.CampaignStatusScheduled {
			return nil // already launched or cancelled by the operator
		}
		if err := c.Transition(model.CampaignStatusPending, ""); err != nil {
			return err
		}
		if err := w.campaigns.Save(ctx, nil, c); err != nil {
			return err
		}
		w.log.Info().Str("campaign_id", c.ID).Msg("scheduled campaign released")
		return nil
	}

	c, err := model.NewCampaign(item.TenantID, item.Payload["name"], item.Payload["audience_id"], item.Payload["template"])
	if err != nil {
		return err
	}
	c.Folder = item.Payload["folder"]
	if err := w.campaigns.Save(ctx, nil, c); err != nil {
		return err
	}
	w.log.Info().Str("campaign_id", c.ID).Msg("scheduled campaign created")
	return nil
}

func (w *SchedulerWorker) startTask(ctx context.Context, item *model.ScheduledItem) error {
	count, err := strconv.Atoi(item.Payload["count"])
	if err != nil {
		return fmt.Errorf("bad task count: %w", err)
	}
	t, err := model.NewFactoryTask(item.TenantID, item.Payload["country"], count)
	if err != nil {
		return err
	}
	t.AutoWarmup = item.Payload["auto_warmup"] == "true"
	if d, err := strconv.Atoi(item.Payload["warmup_days"]); err == nil {
		t.WarmupDays = d
	}
	if err := w.factories.Save(ctx, nil, t); err != nil {
		return err
	}
	w.log.Info().Str("task_id", t.ID).Int("count", count).Msg("scheduled factory task created")
	return nil
}
