package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/adapter"
	"telegram-fleet/internal/domain/ports/repository"
	"telegram-fleet/internal/infra/metrics"
)

// AuthWorker advances interactive authorization tasks for manually added
// accounts. The operator supplies the code (and the 2FA password) out of
// band; this loop moves the state machine between their inputs.
type AuthWorker struct {
	interval time.Duration

	tasks    repository.AuthTaskRepository
	accounts repository.AccountRepository

	sessions adapter.SessionManager
	notifier adapter.Notifier

	log *zerolog.Logger
}

func NewAuthWorker(interval time.Duration, tasks repository.AuthTaskRepository, accounts repository.AccountRepository, sessions adapter.SessionManager, notifier adapter.Notifier, logger *zerolog.Logger) *AuthWorker {
	l := logger.With().Str("component", "AuthWorker").Logger()
	return &AuthWorker{
		interval: interval,
		tasks:    tasks,
		accounts: accounts,
		sessions: sessions,
		notifier: notifier,
		log:      &l,
	}
}

func (w *AuthWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting auth worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping auth worker")
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := w.tick(ctx); err != nil {
				metrics.IncTickError("auth")
				w.log.Error().Err(err).Msg("auth tick error")
			}
			metrics.ObserveTick("auth", time.Since(start).Seconds())
		}
	}
}

func (w *AuthWorker) tick(ctx context.Context) error {
	tasks, err := w.tasks.ListActionable(ctx, nil)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if err := w.process(ctx, t); err != nil {
			w.log.Error().Err(err).Str("task_id", t.ID).Msg("auth task failed")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (w *AuthWorker) process(ctx context.Context, t *model.AuthTask) error {
	now := time.Now().UTC()
	switch t.Status {
	case model.AuthTaskPending:
		codeHash, err := w.sessions.StartAuth(ctx, t.AccountID, t.Phone, t.Proxy)
		if err != nil {
			return w.fail(ctx, t, err)
		}
		t.Status = model.AuthTaskCodeSent
		t.CodeHash = codeHash
		t.CodeSentAt = &now
		t.UpdatedAt = now
		w.notifier.Notify(ctx, t.TenantID, "Код авторизации отправлен на "+t.Phone)
		return w.tasks.Save(ctx, nil, t)

	case model.AuthTaskCodeSent:
		// waiting on the operator; only the TTL can move us
		if t.CodeExpired(now) {
			t.Status = model.AuthTaskError
			t.StatusReason = "код авторизации истёк"
			t.UpdatedAt = now
			w.notifier.Notify(ctx, t.TenantID, "Код авторизации для "+t.Phone+" истёк")
			return w.tasks.Save(ctx, nil, t)
		}
		return nil

	case model.AuthTaskCodeReceived:
		if t.CodeExpired(now) {
			t.Status = model.AuthTaskError
			t.StatusReason = "код авторизации истёк"
			t.UpdatedAt = now
			return w.tasks.Save(ctx, nil, t)
		}
		user, err := w.sessions.CompleteAuth(ctx, t.AccountID, t.Code, t.CodeHash, t.Password)
		if err != nil {
			if domain.TelegramErrorKindOf(err) == domain.TGErrPasswordNeeded {
				t.Status = model.AuthTask2FARequired
				t.UpdatedAt = now
				w.notifier.Notify(ctx, t.TenantID, "Для "+t.Phone+" требуется пароль 2FA")
				return w.tasks.Save(ctx, nil, t)
			}
			return w.fail(ctx, t, err)
		}
		return w.complete(ctx, t, user)
	}
	return nil
}

func (w *AuthWorker) complete(ctx context.Context, t *model.AuthTask, user *adapter.AuthorizedUser) error {
	acc, err := w.accounts.FindByID(ctx, nil, t.AccountID)
	if err != nil {
		return err
	}
	acc.Username = user.Username
	acc.FirstName = user.FirstName
	acc.LastName = user.LastName
	acc.Status = model.AccountStatusActive
	acc.UpdatedAt = time.Now().UTC()
	if err := w.accounts.Save(ctx, nil, acc); err != nil {
		return err
	}

	t.Status = model.AuthTaskCompleted
	t.Code = ""
	t.Password = ""
	t.UpdatedAt = time.Now().UTC()
	if err := w.tasks.Save(ctx, nil, t); err != nil {
		return err
	}
	w.notifier.Notify(ctx, t.TenantID, "Аккаунт "+t.Phone+" авторизован")
	w.log.Info().Str("account_id", t.AccountID).Msg("account authorized")
	return nil
}

func (w *AuthWorker) fail(ctx context.Context, t *model.AuthTask, cause error) error {
	t.Status = model.AuthTaskError
	t.StatusReason = cause.Error()
	t.UpdatedAt = time.Now().UTC()
	if err := w.tasks.Save(ctx, nil, t); err != nil {
		return err
	}
	w.notifier.Notify(ctx, t.TenantID, "Авторизация "+t.Phone+" не удалась: "+cause.Error())
	return cause
}
