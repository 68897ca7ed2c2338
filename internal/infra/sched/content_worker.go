package sched

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/adapter"
	"telegram-fleet/internal/domain/ports/repository"
	"telegram-fleet/internal/infra/metrics"
	"telegram-fleet/internal/usecase"
)

// ContentWorker publishes channel posts: one-shot scheduled content items and
// recurring templates that fire when the tenant-local minute matches their
// publish time on an allowed weekday.
type ContentWorker struct {
	interval time.Duration

	schedules repository.ScheduleRepository
	accounts  repository.AccountRepository
	settings  repository.SettingsRepository

	gate *usecase.PanicGate

	sessions adapter.SessionManager
	ai       adapter.AIServiceAdapter
	notifier adapter.Notifier

	log *zerolog.Logger
}

func NewContentWorker(interval time.Duration, schedules repository.ScheduleRepository, accounts repository.AccountRepository, settings repository.SettingsRepository, gate *usecase.PanicGate, sessions adapter.SessionManager, ai adapter.AIServiceAdapter, notifier adapter.Notifier, logger *zerolog.Logger) *ContentWorker {
	l := logger.With().Str("component", "ContentWorker").Logger()
	return &ContentWorker{
		interval:  interval,
		schedules: schedules,
		accounts:  accounts,
		settings:  settings,
		gate:      gate,
		sessions:  sessions,
		ai:        ai,
		notifier:  notifier,
		log:       &l,
	}
}

func (w *ContentWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting content worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping content worker")
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := w.tick(ctx); err != nil {
				metrics.IncTickError("content")
				w.log.Error().Err(err).Msg("content tick error")
			}
			metrics.ObserveTick("content", time.Since(start).Seconds())
		}
	}
}

func (w *ContentWorker) tick(ctx context.Context) error {
	now := time.Now().UTC()
	if err := w.processScheduled(ctx, now); err != nil {
		return err
	}
	return w.processTemplates(ctx, now)
}

// processScheduled publishes due one-shot and recurring content items.
func (w *ContentWorker) processScheduled(ctx context.Context, now time.Time) error {
	due, err := w.schedules.ListDue(ctx, nil, now)
	if err != nil {
		return err
	}
	for _, item := range due {
		if item.Kind != model.ScheduledKindContent {
			continue
		}
		if w.gate.Paused(ctx, item.TenantID) {
			continue
		}
		text := item.Payload["text"]
		if item.Payload["ai_rewrite"] == "true" {
			text = w.rewrite(ctx, text)
		}
		if err := w.publish(ctx, item.TenantID, item.Payload["channel"], text); err != nil {
			item.Status = model.ScheduleError
			item.StatusReason = err.Error()
			w.log.Error().Err(err).Str("item_id", item.ID).Msg("content publish failed")
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

// processTemplates fires templates whose publish time matches the current
// tenant-local minute on an allowed weekday.
func (w *ContentWorker) processTemplates(ctx context.Context, now time.Time) error {
	templates, err := w.schedules.ListActiveTemplates(ctx, nil)
	if err != nil {
		return err
	}
	for _, t := range templates {
		if w.gate.Paused(ctx, t.TenantID) {
			continue
		}
		settings, err := w.settings.Get(ctx, nil, t.TenantID)
		if err != nil {
			return err
		}
		loc := settings.Location()
		local := now.In(loc)
		if !t.AllowsDay(local.Weekday()) || local.Format("15:04") != t.PublishTime || t.FiredOn(now, loc) {
			continue
		}

		text := t.Text
		if t.AIRewrite {
			text = w.rewrite(ctx, text)
		}
		if err := w.publish(ctx, t.TenantID, t.Channel, text); err != nil {
			w.log.Error().Err(err).Str("template_id", t.ID).Str("channel", t.Channel).Msg("template publish failed")
			w.notifier.Notify(ctx, t.TenantID, fmt.Sprintf("Публикация в %s не удалась: %s", t.Channel, err.Error()))
			continue
		}
		fired := now
		t.LastFiredAt = &fired
		if err := w.schedules.SaveTemplate(ctx, nil, t); err != nil {
			return err
		}
		w.log.Info().Str("template_id", t.ID).Str("channel", t.Channel).Msg("template published")
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// publish sends text into the channel through the first active tenant account
// that can acquire a session.
func (w *ContentWorker) publish(ctx context.Context, tenantID, channel, text string) error {
	if channel == "" || strings.TrimSpace(text) == "" {
		return errors.New("empty channel or text")
	}
	accounts, err := w.accounts.ListByTenant(ctx, nil, tenantID)
	if err != nil {
		return err
	}
	var lastErr error
	for _, acc := range accounts {
		if acc.Status != model.AccountStatusActive {
			continue
		}
		s, err := w.sessions.Acquire(ctx, acc.ID, acc.Phone, acc.Proxy)
		if err != nil {
			lastErr = err
			continue
		}
		err = s.PublishToChannel(ctx, channel, text)
		w.sessions.Release(s)
		if err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr != nil {
		return lastErr
	}
	return errors.New("no active account available to publish")
}

// rewrite runs the optional AI pass, keeping the original on any failure.
func (w *ContentWorker) rewrite(ctx context.Context, text string) string {
	if w.ai == nil {
		return text
	}
	out, err := w.ai.Rewrite(ctx, text)
	metrics.IncAICall("rewrite", err == nil)
	if err != nil || strings.TrimSpace(out) == "" {
		return text
	}
	return out
}
