package sched

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/adapter"
	"telegram-fleet/internal/domain/ports/repository"
	"telegram-fleet/internal/infra/metrics"
	"telegram-fleet/internal/usecase"
)

const (
	smsServiceTelegram = "tg"
	smsCodeTimeout     = 5 * time.Minute
)

// FactoryWorker provisions accounts for runnable factory tasks, one account
// per task per tick: rents a number, drives the code round-trip through the
// SMS vendor, and hands the fresh account to warmup when requested.
type FactoryWorker struct {
	interval   time.Duration
	minBalance float64

	factories repository.FactoryTaskRepository
	accounts  repository.AccountRepository
	warmups   repository.WarmupRepository
	settings  repository.SettingsRepository

	gate *usecase.PanicGate

	sms      adapter.SMSVendorAdapter
	sessions adapter.SessionManager
	notifier adapter.Notifier

	randFloat func() float64

	log *zerolog.Logger
}

func NewFactoryWorker(interval time.Duration, minBalance float64, factories repository.FactoryTaskRepository, accounts repository.AccountRepository, warmups repository.WarmupRepository, settings repository.SettingsRepository, gate *usecase.PanicGate, sms adapter.SMSVendorAdapter, sessions adapter.SessionManager, notifier adapter.Notifier, logger *zerolog.Logger) *FactoryWorker {
	l := logger.With().Str("component", "FactoryWorker").Logger()
	return &FactoryWorker{
		interval:   interval,
		minBalance: minBalance,
		factories:  factories,
		accounts:   accounts,
		warmups:    warmups,
		settings:   settings,
		gate:       gate,
		sms:        sms,
		sessions:   sessions,
		notifier:   notifier,
		randFloat:  rand.Float64,
		log:        &l,
	}
}

func (w *FactoryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting factory worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping factory worker")
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := w.tick(ctx); err != nil {
				metrics.IncTickError("factory")
				w.log.Error().Err(err).Msg("factory tick error")
			}
			metrics.ObserveTick("factory", time.Since(start).Seconds())
		}
	}
}

func (w *FactoryWorker) tick(ctx context.Context) error {
	tasks, err := w.factories.ListRunnable(ctx, nil)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if w.gate.Paused(ctx, t.TenantID) {
			continue
		}
		if err := w.process(ctx, t); err != nil {
			w.log.Error().Err(err).Str("task_id", t.ID).Msg("factory task failed")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (w *FactoryWorker) process(ctx context.Context, t *model.FactoryTask) error {
	balance, err := w.sms.Balance(ctx)
	if err != nil {
		return err
	}
	if balance < w.minBalance {
		return w.pauseTask(ctx, t, fmt.Sprintf("баланс SMS-сервиса %.2f ниже минимума %.2f", balance, w.minBalance))
	}

	if t.Status == model.FactoryTaskPending {
		t.Status = model.FactoryTaskRunning
		t.UpdatedAt = time.Now().UTC()
		if err := w.factories.Save(ctx, nil, t); err != nil {
			return err
		}
	}

	if err := w.provisionOne(ctx, t); err != nil {
		t.FailedCount++
		t.Errors = append(t.Errors, err.Error())
		metrics.IncFactoryAccount("failed")
		w.log.Warn().Err(err).Str("task_id", t.ID).Msg("account provisioning failed")
	} else {
		t.CreatedCount++
		metrics.IncFactoryAccount("created")
	}
	t.UpdatedAt = time.Now().UTC()

	if t.Exhausted() {
		t.Status = model.FactoryTaskCompleted
		w.notifier.Notify(ctx, t.TenantID,
			fmt.Sprintf("Фабрика: задача завершена, создано %d из %d аккаунтов", t.CreatedCount, t.Count))
	}
	return w.factories.Save(ctx, nil, t)
}

// provisionOne runs the full number rent / code / authorization round-trip.
func (w *FactoryWorker) provisionOne(ctx context.Context, t *model.FactoryTask) error {
	rented, err := w.sms.RentNumber(ctx, smsServiceTelegram, t.Country)
	if err != nil {
		return fmt.Errorf("rent number: %w", err)
	}

	settings, err := w.settings.Get(ctx, nil, t.TenantID)
	if err != nil {
		return err
	}
	role := usecase.DrawRole(t.RoleDistribution, w.randFloat())
	acc, err := model.NewAccount(t.TenantID, rented.Number, role, settings.DailyLimitDefault)
	if err != nil {
		return err
	}

	codeHash, err := w.sessions.StartAuth(ctx, acc.ID, rented.Number, "")
	if err != nil {
		_ = w.sms.Cancel(ctx, rented.TZID)
		return fmt.Errorf("send code: %w", err)
	}

	code, err := w.sms.PollCode(ctx, rented.TZID, smsCodeTimeout)
	if err != nil {
		_ = w.sms.Cancel(ctx, rented.TZID)
		if errors.Is(err, domain.ErrNotFound) {
			return errors.New("sms code did not arrive in time")
		}
		return fmt.Errorf("poll code: %w", err)
	}

	user, err := w.sessions.CompleteAuth(ctx, acc.ID, code, codeHash, "")
	if err != nil {
		_ = w.sms.Cancel(ctx, rented.TZID)
		return fmt.Errorf("complete auth: %w", err)
	}
	_ = w.sms.Confirm(ctx, rented.TZID)

	acc.Username = user.Username
	acc.FirstName = user.FirstName
	acc.LastName = user.LastName
	if t.AutoWarmup {
		acc.WarmupStatus = model.WarmupInProgress
	} else {
		acc.Status = model.AccountStatusActive
	}
	if err := w.accounts.Save(ctx, nil, acc); err != nil {
		return err
	}

	if t.AutoWarmup {
		days := t.WarmupDays
		if days <= 0 {
			days = settings.Factory.DefaultWarmupDays
		}
		progress, err := model.NewWarmupProgress(t.TenantID, acc.ID, model.WarmupKindStandard, days)
		if err != nil {
			return err
		}
		if err := w.warmups.Save(ctx, nil, progress); err != nil {
			return err
		}
	}

	w.log.Info().Str("account_id", acc.ID).Str("phone", acc.Phone).Str("role", string(role)).Msg("account provisioned")
	return nil
}

func (w *FactoryWorker) pauseTask(ctx context.Context, t *model.FactoryTask, reason string) error {
	if t.Status == model.FactoryTaskPaused {
		return nil
	}
	t.Status = model.FactoryTaskPaused
	t.StatusReason = reason
	t.UpdatedAt = time.Now().UTC()
	if err := w.factories.Save(ctx, nil, t); err != nil {
		return err
	}
	w.notifier.Notify(ctx, t.TenantID, "Фабрика аккаунтов на паузе: "+reason)
	return nil
}
