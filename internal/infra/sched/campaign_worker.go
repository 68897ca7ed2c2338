package sched

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/adapter"
	"telegram-fleet/internal/domain/ports/repository"
	"telegram-fleet/internal/infra/metrics"
	"telegram-fleet/internal/infra/redis"
	"telegram-fleet/internal/infra/worker"
	"telegram-fleet/internal/usecase"
)

// hourlySendCap bounds sends per account per hour across replicas. Pacing
// normally keeps throughput well under it.
const hourlySendCap = 15

// consecutiveErrorLimit pauses a campaign once one account accumulates this
// many transient errors in a row.
const consecutiveErrorLimit = 5

// CampaignWorker drives every active campaign: each tick it fans the
// campaigns out over the pool and advances each one through a batch of
// recipients, honoring pacing, quiet hours, the panic gate and the
// at-most-once recipient contract.
type CampaignWorker struct {
	interval    time.Duration
	batchSize   int
	reportEvery int

	txm       repository.TransactionManager
	campaigns repository.CampaignRepository
	audiences repository.AudienceRepository
	accounts  repository.AccountRepository
	blacklist repository.BlacklistRepository
	mailAudit repository.MailingCacheRepository
	settings  repository.SettingsRepository

	selector *usecase.Selector
	pacing   *usecase.Pacing
	feedback *usecase.Feedback
	renderer *usecase.Renderer
	gate     *usecase.PanicGate

	sessions adapter.SessionManager
	notifier adapter.Notifier
	cache    *redis.MailingCache
	limiter  *redis.RateLimiter
	pool     *worker.Pool

	mu       sync.Mutex
	inFlight map[string]bool

	log *zerolog.Logger
}

type CampaignWorkerDeps struct {
	Txm       repository.TransactionManager
	Campaigns repository.CampaignRepository
	Audiences repository.AudienceRepository
	Accounts  repository.AccountRepository
	Blacklist repository.BlacklistRepository
	MailAudit repository.MailingCacheRepository
	Settings  repository.SettingsRepository
	Selector  *usecase.Selector
	Pacing    *usecase.Pacing
	Feedback  *usecase.Feedback
	Renderer  *usecase.Renderer
	Gate      *usecase.PanicGate
	Sessions  adapter.SessionManager
	Notifier  adapter.Notifier
	Cache     *redis.MailingCache
	Limiter   *redis.RateLimiter
	Pool      *worker.Pool
}

func NewCampaignWorker(interval time.Duration, batchSize, reportEvery int, d CampaignWorkerDeps, logger *zerolog.Logger) *CampaignWorker {
	l := logger.With().Str("component", "CampaignWorker").Logger()
	return &CampaignWorker{
		interval:    interval,
		batchSize:   batchSize,
		reportEvery: reportEvery,
		txm:         d.Txm,
		campaigns:   d.Campaigns,
		audiences:   d.Audiences,
		accounts:    d.Accounts,
		blacklist:   d.Blacklist,
		mailAudit:   d.MailAudit,
		settings:    d.Settings,
		selector:    d.Selector,
		pacing:      d.Pacing,
		feedback:    d.Feedback,
		renderer:    d.Renderer,
		gate:        d.Gate,
		sessions:    d.Sessions,
		notifier:    d.Notifier,
		cache:       d.Cache,
		limiter:     d.Limiter,
		pool:        d.Pool,
		inFlight:    map[string]bool{},
		log:         &l,
	}
}

func (w *CampaignWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting campaign worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping campaign worker")
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := w.tick(ctx); err != nil {
				metrics.IncTickError("campaign")
				w.log.Error().Err(err).Msg("campaign tick error")
			}
			metrics.ObserveTick("campaign", time.Since(start).Seconds())
		}
	}
}

func (w *CampaignWorker) tick(ctx context.Context) error {
	active, err := w.campaigns.ListActive(ctx, nil)
	if err != nil {
		return err
	}
	for _, c := range active {
		c := c
		if !w.claim(c.ID) {
			continue
		}
		err := w.pool.Submit(func(ctx context.Context) error {
			defer w.release(c.ID)
			return w.processCampaign(ctx, c)
		})
		if err != nil {
			w.release(c.ID)
			w.log.Warn().Err(err).Str("campaign_id", c.ID).Msg("pool saturated, deferring campaign")
		}
	}
	return nil
}

func (w *CampaignWorker) claim(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight[id] {
		return false
	}
	w.inFlight[id] = true
	return true
}

func (w *CampaignWorker) release(id string) {
	w.mu.Lock()
	delete(w.inFlight, id)
	w.mu.Unlock()
}

// processCampaign advances one campaign through at most one batch.
func (w *CampaignWorker) processCampaign(ctx context.Context, c *model.Campaign) error {
	settings, err := w.settings.Get(ctx, nil, c.TenantID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	if w.gate.Paused(ctx, c.TenantID) || settings.InQuietHours(now) {
		return nil
	}

	if c.Status == model.CampaignStatusPending {
		total, err := w.audiences.CountTotal(ctx, nil, c.AudienceID)
		if err != nil {
			return err
		}
		c.TotalCount = total
		if err := c.Transition(model.CampaignStatusRunning, ""); err != nil {
			return err
		}
		if err := w.campaigns.Save(ctx, nil, c); err != nil {
			return err
		}
		w.notifier.Notify(ctx, c.TenantID, fmt.Sprintf("Рассылка «%s» запущена", c.Name))
	}

	pool, err := w.accountPool(ctx, c)
	if err != nil {
		return err
	}

	batch, err := w.audiences.FetchUnsentBatch(ctx, nil, c.AudienceID, w.batchSize)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return w.complete(ctx, c)
	}

	for _, m := range batch {
		halt, err := w.sendOne(ctx, c, settings, pool, m)
		if err != nil {
			w.log.Error().Err(err).Str("campaign_id", c.ID).Str("member_id", m.ID).Msg("send failed hard")
		}
		if halt || ctx.Err() != nil {
			break
		}
	}
	return nil
}

func (w *CampaignWorker) accountPool(ctx context.Context, c *model.Campaign) ([]*model.Account, error) {
	if len(c.AccountIDs) > 0 {
		return w.accounts.ListByIDs(ctx, nil, c.AccountIDs)
	}
	return w.accounts.ListByFolder(ctx, nil, c.TenantID, c.Folder)
}

// sendOne handles a single recipient end to end, switching to another sender
// when the current one enters flood wait. The returned halt flag stops the
// batch (campaign paused, tenant gated, no senders left).
func (w *CampaignWorker) sendOne(ctx context.Context, c *model.Campaign, settings *model.TenantSettings, pool []*model.Account, m *model.AudienceMember) (bool, error) {
	// an operator pause or stop written mid-batch wins over our in-memory row
	if fresh, err := w.campaigns.FindByID(ctx, nil, c.ID); err == nil {
		c.Status = fresh.Status
		c.StatusReason = fresh.StatusReason
	}
	now := time.Now().UTC()
	if !w.pacing.MaySend(ctx, c, settings, len(pool) > 0, now) {
		return true, nil
	}

	skipped, err := w.skipIneligibleRecipient(ctx, c, settings, m)
	if err != nil || skipped {
		return false, err
	}

	text := w.renderer.Render(ctx, c, m)

	for {
		acc, err := w.selector.Pick(ctx, c.TenantID, rotated(pool, c.NextAccountIndex), usecase.PickOptions{Now: time.Now().UTC()})
		if err != nil {
			if errors.Is(err, domain.ErrNoEligibleSender) {
				return true, w.pause(ctx, c, "нет доступных аккаунтов")
			}
			if errors.Is(err, domain.ErrTenantPaused) {
				return true, nil
			}
			return true, err
		}

		if w.limiter != nil {
			ok, lerr := w.limiter.Allow(ctx, redis.AccountActionKey(acc.ID, "send"), hourlySendCap, time.Hour)
			if lerr != nil {
				w.log.Debug().Err(lerr).Msg("rate limiter unavailable")
			} else if !ok {
				// every pick converges on the same capped account; wait out the window
				return true, nil
			}
		}

		sendErr := w.deliver(ctx, acc, m, text, w.pacing.TypingDelay(c))

		if err := w.settle(ctx, c, acc, m, len(pool), sendErr); err != nil {
			return true, err
		}

		kind := domain.TelegramErrorKindOf(sendErr)
		metrics.IncSend(outcomeLabel(sendErr))
		if kind == domain.TGErrFloodWait {
			metrics.IncFloodWait()
			w.notifier.Notify(ctx, c.TenantID, fmt.Sprintf("Аккаунт %s получил FLOOD_WAIT, переключаюсь", acc.Phone))
			// same recipient, next eligible sender; feedback already benched this one
			continue
		}
		if sendErr != nil && kind == domain.TGErrPeerFlood {
			// Mass restriction: stop everything for the tenant, recipient stays unsent.
			reason := fmt.Sprintf("PEER_FLOOD: аккаунт %s", acc.Phone)
			n, perr := w.campaigns.PauseAllRunning(ctx, nil, c.TenantID, reason)
			if perr != nil {
				return true, perr
			}
			w.log.Warn().Str("tenant_id", c.TenantID).Int("paused", n).Msg("peer flood: campaigns paused")
			w.notifier.Notify(ctx, c.TenantID, fmt.Sprintf("PEER_FLOOD на аккаунте %s: все рассылки остановлены", acc.Phone))
			return true, nil
		}
		if sendErr != nil && acc.ConsecutiveErrors > consecutiveErrorLimit {
			return true, w.pause(ctx, c, fmt.Sprintf("серия ошибок на аккаунте %s", acc.Phone))
		}

		if sendErr == nil {
			if c.SentCount%w.reportEvery == 0 {
				w.notifier.Notify(ctx, c.TenantID,
					fmt.Sprintf("Рассылка «%s»: отправлено %d из %d", c.Name, c.SentCount, c.TotalCount))
			}
		}

		return false, w.sleep(ctx, w.pacing.NextDelay(ctx, c, time.Now().UTC()))
	}
}

// rotated reorders the pool so the campaign's rotation index goes first; the
// selector keeps input order on full score ties.
func rotated(pool []*model.Account, idx int) []*model.Account {
	if len(pool) < 2 {
		return pool
	}
	idx %= len(pool)
	if idx < 0 {
		idx = 0
	}
	out := make([]*model.Account, 0, len(pool))
	out = append(out, pool[idx:]...)
	return append(out, pool[:idx]...)
}

// skipIneligibleRecipient marks blacklisted and recently-mailed recipients as
// done without a send.
func (w *CampaignWorker) skipIneligibleRecipient(ctx context.Context, c *model.Campaign, settings *model.TenantSettings, m *model.AudienceMember) (bool, error) {
	blocked, err := w.blacklist.IsBlacklisted(ctx, nil, c.TenantID, m.TelegramID, m.Username)
	if err != nil {
		return false, err
	}
	reason := ""
	switch {
	case blocked:
		reason = "blacklisted"
	case m.TelegramID != 0 && w.cache != nil && w.cache.Seen(ctx, c.TenantID, m.TelegramID):
		reason = "mailing_cache"
	case m.TelegramID != 0:
		if entry, err := w.mailAudit.Get(ctx, nil, c.TenantID, m.TelegramID); err == nil && !entry.Expired(time.Now().UTC()) {
			reason = "mailing_cache"
		}
	}
	if reason == "" {
		return false, nil
	}
	err = w.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := w.audiences.MarkSent(ctx, tx, m.ID, reason); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
			return err
		}
		c.FailedCount++
		c.UpdatedAt = time.Now().UTC()
		return w.campaigns.Save(ctx, tx, c)
	})
	return true, err
}

func (w *CampaignWorker) deliver(ctx context.Context, acc *model.Account, m *model.AudienceMember, text string, typing time.Duration) error {
	s, err := w.sessions.Acquire(ctx, acc.ID, acc.Phone, acc.Proxy)
	if err != nil {
		return err
	}
	defer w.sessions.Release(s)
	return s.SendMessage(ctx, adapter.SendTarget{TelegramID: m.TelegramID, Username: m.Username}, text, typing)
}

// settle persists the outcome atomically: recipient mark, account feedback,
// campaign counters and the adaptive multiplier move in one transaction.
func (w *CampaignWorker) settle(ctx context.Context, c *model.Campaign, acc *model.Account, m *model.AudienceMember, poolLen int, sendErr error) error {
	kind := domain.TelegramErrorKindOf(sendErr)
	return w.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := w.feedback.Apply(ctx, tx, acc, c.ID, sendErr); err != nil {
			return err
		}

		switch {
		case sendErr == nil:
			if err := w.audiences.MarkSent(ctx, tx, m.ID, ""); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
				return err
			}
			c.SentCount++
			if poolLen > 0 {
				c.NextAccountIndex = (c.NextAccountIndex + 1) % poolLen
			}
			if m.TelegramID != 0 {
				entry := &model.MailingCacheEntry{TenantID: c.TenantID, TelegramID: m.TelegramID, LastSentAt: time.Now().UTC(), TTLDays: 30}
				if err := w.mailAudit.Put(ctx, tx, entry); err != nil {
					return err
				}
			}
		case domain.RecipientTerminal(kind):
			if err := w.audiences.MarkSent(ctx, tx, m.ID, string(kind)); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
				return err
			}
			c.FailedCount++
		default:
			// flood_wait, peer_flood, network: recipient stays unsent for retry
		}

		// never write our stale status over a pause or stop landed meanwhile
		if fresh, err := w.campaigns.FindByID(ctx, tx, c.ID); err == nil && fresh.Status != c.Status {
			c.Status = fresh.Status
			c.StatusReason = fresh.StatusReason
		}
		usecase.ApplyAdaptive(c, sendErr)
		c.CurrentAccountID = acc.ID
		c.UpdatedAt = time.Now().UTC()
		if err := w.campaigns.Save(ctx, tx, c); err != nil {
			return err
		}

		if sendErr == nil && m.TelegramID != 0 && w.cache != nil {
			// Best effort; the durable row above is the source of truth.
			if err := w.cache.Remember(ctx, c.TenantID, m.TelegramID, 30); err != nil {
				w.log.Debug().Err(err).Msg("mailing cache remember failed")
			}
		}
		return nil
	})
}

func (w *CampaignWorker) complete(ctx context.Context, c *model.Campaign) error {
	if c.Status != model.CampaignStatusRunning {
		return nil
	}
	if err := c.Transition(model.CampaignStatusCompleted, ""); err != nil {
		return err
	}
	if err := w.campaigns.Save(ctx, nil, c); err != nil {
		return err
	}
	w.notifier.Notify(ctx, c.TenantID,
		fmt.Sprintf("Рассылка «%s» завершена: %d отправлено, %d пропущено", c.Name, c.SentCount, c.FailedCount))
	w.log.Info().Str("campaign_id", c.ID).Int("sent", c.SentCount).Int("failed", c.FailedCount).Msg("campaign completed")
	return nil
}

func (w *CampaignWorker) pause(ctx context.Context, c *model.Campaign, reason string) error {
	if !c.CanTransition(model.CampaignStatusPaused) {
		return nil
	}
	if err := c.Transition(model.CampaignStatusPaused, reason); err != nil {
		return err
	}
	if err := w.campaigns.Save(ctx, nil, c); err != nil {
		return err
	}
	w.notifier.Notify(ctx, c.TenantID, fmt.Sprintf("Рассылка «%s» на паузе: %s", c.Name, reason))
	return nil
}

func (w *CampaignWorker) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func outcomeLabel(sendErr error) string {
	if sendErr == nil {
		return "success"
	}
	return string(domain.TelegramErrorKindOf(sendErr))
}
