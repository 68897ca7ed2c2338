package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/ports/repository"
	"telegram-fleet/internal/infra/metrics"
	infraredis "telegram-fleet/internal/infra/redis"
)

// DailyResetWorker zeroes per-account daily counters once per tenant-local
// day. The redis lock keyed by tenant and local date makes the reset run
// exactly once even with overlapping ticks or multiple replicas; herder daily
// counters need no reset since they are keyed by the local date itself.
type DailyResetWorker struct {
	interval time.Duration

	accounts repository.AccountRepository
	settings repository.SettingsRepository

	locker infraredis.Locker

	log *zerolog.Logger
}

func NewDailyResetWorker(interval time.Duration, accounts repository.AccountRepository, settings repository.SettingsRepository, locker infraredis.Locker, logger *zerolog.Logger) *DailyResetWorker {
	l := logger.With().Str("component", "DailyResetWorker").Logger()
	return &DailyResetWorker{
		interval: interval,
		accounts: accounts,
		settings: settings,
		locker:   locker,
		log:      &l,
	}
}

func (w *DailyResetWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting daily reset worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping daily reset worker")
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := w.tick(ctx); err != nil {
				metrics.IncTickError("daily_reset")
				w.log.Error().Err(err).Msg("daily reset tick error")
			}
			metrics.ObserveTick("daily_reset", time.Since(start).Seconds())
		}
	}
}

func (w *DailyResetWorker) tick(ctx context.Context) error {
	tenants, err := w.settings.ListTenantIDs(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, tenantID := range tenants {
		if err := w.resetTenant(ctx, tenantID, now); err != nil {
			w.log.Error().Err(err).Str("tenant_id", tenantID).Msg("daily reset failed")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (w *DailyResetWorker) resetTenant(ctx context.Context, tenantID string, now time.Time) error {
	settings, err := w.settings.Get(ctx, nil, tenantID)
	if err != nil {
		return err
	}
	day := settings.LocalDay(now)

	// the lock doubles as the once-per-day marker; 26h outlives any DST shift
	key := "lock:daily-reset:" + tenantID + ":" + day
	if _, err := w.locker.TryLock(ctx, key, 26*time.Hour); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil // already reset for this local day
		}
		return err
	}

	n, err := w.accounts.ResetDaily(ctx, nil, tenantID)
	if err != nil {
		return err
	}
	if n > 0 {
		w.log.Info().Str("tenant_id", tenantID).Str("day", day).Int("accounts", n).Msg("daily counters reset")
	}
	return nil
}
