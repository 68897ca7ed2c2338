package sched

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/adapter"
	"telegram-fleet/internal/domain/ports/repository"
	"telegram-fleet/internal/infra/metrics"
	"telegram-fleet/internal/usecase"
)

// warmupChannels are public channels fresh accounts browse during the ramp.
var warmupChannels = []string{"telegram", "durov", "topor", "rian_ru", "meduzalive"}

// WarmupWorker advances every active warmup program by at most one day per
// tenant-local day. Early days only read, later days add reactions; the warm
// maintenance variant repeats a light 2-day cycle indefinitely.
type WarmupWorker struct {
	interval time.Duration

	warmups  repository.WarmupRepository
	accounts repository.AccountRepository
	settings repository.SettingsRepository

	feedback *usecase.Feedback
	gate     *usecase.PanicGate

	sessions adapter.SessionManager
	notifier adapter.Notifier

	randFloat func() float64
	randIntn  func(n int) int
	// sleepUnit scales the 10..60 pause between actions; a second in prod.
	sleepUnit time.Duration

	log *zerolog.Logger
}

func NewWarmupWorker(interval time.Duration, warmups repository.WarmupRepository, accounts repository.AccountRepository, settings repository.SettingsRepository, feedback *usecase.Feedback, gate *usecase.PanicGate, sessions adapter.SessionManager, notifier adapter.Notifier, logger *zerolog.Logger) *WarmupWorker {
	l := logger.With().Str("component", "WarmupWorker").Logger()
	return &WarmupWorker{
		interval:  interval,
		warmups:   warmups,
		accounts:  accounts,
		settings:  settings,
		feedback:  feedback,
		gate:      gate,
		sessions:  sessions,
		notifier:  notifier,
		randFloat: rand.Float64,
		randIntn:  rand.Intn,
		sleepUnit: time.Second,
		log:       &l,
	}
}

func (w *WarmupWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting warmup worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping warmup worker")
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := w.tick(ctx); err != nil {
				metrics.IncTickError("warmup")
				w.log.Error().Err(err).Msg("warmup tick error")
			}
			metrics.ObserveTick("warmup", time.Since(start).Seconds())
		}
	}
}

func (w *WarmupWorker) tick(ctx context.Context) error {
	active, err := w.warmups.ListActive(ctx, nil)
	if err != nil {
		return err
	}
	for _, p := range active {
		if err := w.advance(ctx, p); err != nil {
			w.log.Error().Err(err).Str("warmup_id", p.ID).Msg("warmup advance failed")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (w *WarmupWorker) advance(ctx context.Context, p *model.WarmupProgress) error {
	settings, err := w.settings.Get(ctx, nil, p.TenantID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if w.gate.Paused(ctx, p.TenantID) || settings.InQuietHours(now) {
		return nil
	}
	if p.AdvancedOn(settings.LocalDay(now), settings.Location()) {
		return nil
	}

	acc, err := w.accounts.FindByID(ctx, nil, p.AccountID)
	if err != nil {
		return err
	}
	if acc.Status != model.AccountStatusActive && acc.Status != model.AccountStatusPending {
		return nil
	}

	actions := dayPlan(p.Kind, p.CurrentDay, w.randFloat, w.randIntn)
	if err := w.execute(ctx, p, acc, actions); err != nil {
		return err
	}

	p.LastActionAt = &now
	p.CurrentDay++
	if p.Done() {
		if p.Kind == model.WarmupKindWarm {
			// maintenance cycle restarts instead of completing
			p.CurrentDay = 1
		} else {
			return w.complete(ctx, p, acc)
		}
	}
	return w.warmups.Save(ctx, nil, p)
}

// execute runs the day's actions, tolerating per-action failures: a failed
// read never fails the day, only the account feedback records it.
func (w *WarmupWorker) execute(ctx context.Context, p *model.WarmupProgress, acc *model.Account, actions []string) error {
	s, err := w.sessions.Acquire(ctx, acc.ID, acc.Phone, acc.Proxy)
	if err != nil {
		return err
	}
	defer w.sessions.Release(s)

	for _, action := range actions {
		channel := warmupChannels[w.randIntn(len(warmupChannels))]
		var actErr error
		switch action {
		case "join":
			actErr = s.JoinChannel(ctx, channel)
		case "read":
			if posts, err := s.GetChannelPosts(ctx, channel, 3); err != nil {
				actErr = err
			} else if len(posts) > 0 {
				actErr = s.MarkRead(ctx, channel, posts[0].MsgID)
			}
		case "react":
			posts, err := s.GetChannelPosts(ctx, channel, 3)
			if err != nil {
				actErr = err
			} else if len(posts) > 0 {
				actErr = s.SendReaction(ctx, channel, posts[0].MsgID, "👍")
			}
		}

		if ferr := w.feedback.Apply(ctx, nil, acc, p.ID, actErr); ferr != nil {
			return ferr
		}
		if actErr != nil {
			w.log.Warn().Err(actErr).Str("account_id", acc.ID).Str("action", action).Msg("warmup action failed")
			return nil // the day still advances; the ramp tolerates misses
		}
		p.CompletedActions = append(p.CompletedActions, fmt.Sprintf("day%d:%s:%s", p.CurrentDay, action, channel))

		select {
		case <-time.After(time.Duration(10+w.randIntn(50)) * w.sleepUnit):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (w *WarmupWorker) complete(ctx context.Context, p *model.WarmupProgress, acc *model.Account) error {
	p.Status = model.WarmupProgressCompleted
	if err := w.warmups.Save(ctx, nil, p); err != nil {
		return err
	}

	acc.WarmupStatus = model.WarmupCompleted
	if acc.Status == model.AccountStatusPending {
		acc.Status = model.AccountStatusActive
	}
	if p.WarmFolder != "" {
		acc.Folder = p.WarmFolder
	}
	acc.UpdatedAt = time.Now().UTC()
	if err := w.accounts.Save(ctx, nil, acc); err != nil {
		return err
	}

	w.notifier.Notify(ctx, p.TenantID, fmt.Sprintf("Прогрев аккаунта %s завершён", acc.Phone))
	w.log.Info().Str("account_id", acc.ID).Msg("warmup completed")
	return nil
}

// dayPlan maps a warmup day onto its actions. The standard ramp joins safe
// channels the first two days, browses with a 0.3 reaction chance through day
// five and browses more with a 0.5 chance after that. The warm maintenance
// cycle alternates a joins-plus-reactions day and a reactions-only day.
func dayPlan(kind model.WarmupKind, day int, randFloat func() float64, randIntn func(int) int) []string {
	if kind == model.WarmupKindWarm {
		if day%2 == 1 {
			plan := []string{"join", "join", "join"}
			if randIntn(2) == 1 {
				plan = append(plan, "join")
			}
			return append(plan, "react", "react")
		}
		plan := []string{"react", "react"}
		if randIntn(2) == 1 {
			plan = append(plan, "react")
		}
		return plan
	}

	switch {
	case day <= 2:
		plan := []string{"join", "join"}
		if randIntn(2) == 1 {
			plan = append(plan, "join")
		}
		return plan
	case day <= 5:
		plan := []string{"read", "read"}
		if randFloat() < 0.3 {
			plan = append(plan, "react")
		}
		return plan
	default:
		plan := []string{"read", "read", "read"}
		if randFloat() < 0.5 {
			plan = append(plan, "react")
		}
		return plan
	}
}
