package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"telegram-fleet/internal/config"
	"telegram-fleet/internal/domain/ports/adapter"
	aiAdapters "telegram-fleet/internal/infra/adapters/ai"
	"telegram-fleet/internal/infra/adapters/notify"
	smsAdapters "telegram-fleet/internal/infra/adapters/sms"
	pg "telegram-fleet/internal/infra/db/postgres"
	"telegram-fleet/internal/infra/logging"
	"telegram-fleet/internal/infra/metrics"
	red "telegram-fleet/internal/infra/redis"
	"telegram-fleet/internal/infra/sched"
	tele "telegram-fleet/internal/infra/telegram"
	"telegram-fleet/internal/infra/worker"
	"telegram-fleet/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (verbose logs, no redaction)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	txm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	mailCache := red.NewMailingCache(redisClient)

	// ---- Repositories ----
	accountRepo := pg.NewPostgresAccountRepo(pool)
	campaignRepo := pg.NewPostgresCampaignRepo(pool)
	audienceRepo := pg.NewPostgresAudienceRepo(pool)
	mailAuditRepo := pg.NewPostgresMailingCacheRepo(pool)
	herderRepo := pg.NewPostgresHerderRepo(pool)
	warmupRepo := pg.NewPostgresWarmupRepo(pool)
	factoryRepo := pg.NewPostgresFactoryTaskRepo(pool)
	authRepo := pg.NewPostgresAuthTaskRepo(pool)
	scheduleRepo := pg.NewPostgresScheduleRepo(pool)
	statsRepo := pg.NewPostgresStatsRepo(pool)
	errorLogRepo := pg.NewPostgresErrorLogRepo(pool)
	blacklistRepo := pg.NewPostgresBlacklistRepo(pool)
	stopTriggerRepo := pg.NewPostgresStopTriggerRepo(pool)
	settingsRepo := pg.NewPostgresSettingsRepo(pool)
	panicFlagRepo := pg.NewPostgresPanicFlagRepo(pool)

	// ---- Notifier ----
	var notifier adapter.Notifier
	if cfg.Notifier.BotToken != "" {
		notifier, err = notify.NewBotNotifier(cfg.Notifier.BotToken, settingsRepo, logger)
		if err != nil {
			log.Fatalf("notifier: %v", err)
		}
	} else {
		notifier = notify.NewNoopNotifier(logger)
	}

	// ---- AI adapter ----
	var ai adapter.AIServiceAdapter
	if cfg.AI.APIKey != "" {
		ai, err = aiAdapters.NewOpenAIAdapter(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.DefaultModel)
		if err != nil {
			log.Fatalf("ai adapter: %v", err)
		}
		logger.Info().Str("base_url", cfg.AI.BaseURL).Str("model", cfg.AI.DefaultModel).Msg("AI adapter enabled")
	} else {
		ai = aiAdapters.NewNoopAIAdapter()
	}

	// ---- SMS adapter ----
	var sms adapter.SMSVendorAdapter
	if cfg.SMS.APIKey != "" {
		sms, err = smsAdapters.NewSMSHubAdapter(cfg.SMS.APIKey, cfg.SMS.BaseURL)
		if err != nil {
			log.Fatalf("sms adapter: %v", err)
		}
	} else {
		sms = smsAdapters.NewNoopSMSAdapter()
	}

	// ---- Use cases ----
	gate := usecase.NewPanicGate(panicFlagRepo, logger)
	selector := usecase.NewSelector(accountRepo, gate, logger)
	pacing := usecase.NewPacing(statsRepo, gate, logger)
	feedback := usecase.NewFeedback(accountRepo, statsRepo, errorLogRepo, logger)
	renderer := usecase.NewRenderer(ai, logger)
	stopTriggers := usecase.NewStopTriggerService(stopTriggerRepo, blacklistRepo, settingsRepo, notifier, logger)

	// ---- Telegram session manager ----
	sessions, err := tele.NewManager(&cfg.Telegram, logger)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}
	defer sessions.CloseAll()

	// incoming replies feed the stop-trigger scan; the manager only knows the
	// account, the tenant is resolved here
	sessions.OnIncoming(func(ctx context.Context, msg adapter.IncomingMessage) {
		acc, err := accountRepo.FindByID(ctx, nil, msg.AccountID)
		if err != nil {
			logger.Error().Err(err).Str("account_id", msg.AccountID).Msg("incoming: account lookup failed")
			return
		}
		msg.TenantID = acc.TenantID
		if _, err := stopTriggers.HandleReply(ctx, msg); err != nil {
			logger.Error().Err(err).Str("account_id", msg.AccountID).Msg("stop trigger scan failed")
		}
	})

	// ---- Workers ----
	campaignPool := worker.NewPool(cfg.Workers.CampaignWorkers, logger)
	campaignPool.Start(ctx)
	defer campaignPool.Stop()

	tick := cfg.Workers.TickInterval
	campaignWorker := sched.NewCampaignWorker(tick, cfg.Workers.CampaignBatchSize, cfg.Workers.ReportEvery, sched.CampaignWorkerDeps{
		Txm:       txm,
		Campaigns: campaignRepo,
		Audiences: audienceRepo,
		Accounts:  accountRepo,
		Blacklist: blacklistRepo,
		MailAudit: mailAuditRepo,
		Settings:  settingsRepo,
		Selector:  selector,
		Pacing:    pacing,
		Feedback:  feedback,
		Renderer:  renderer,
		Gate:      gate,
		Sessions:  sessions,
		Notifier:  notifier,
		Cache:     mailCache,
		Limiter:   red.NewRateLimiter(redisClient),
		Pool:      campaignPool,
	}, logger)

	workers := []interface {
		Run(ctx context.Context) error
	}{
		campaignWorker,
		sched.NewHerderWorker(tick, herderRepo, accountRepo, settingsRepo, selector, feedback, gate, sessions, ai, notifier, logger),
		sched.NewWarmupWorker(tick, warmupRepo, accountRepo, settingsRepo, feedback, gate, sessions, notifier, logger),
		sched.NewFactoryWorker(tick, cfg.SMS.MinBalance, factoryRepo, accountRepo, warmupRepo, settingsRepo, gate, sms, sessions, notifier, logger),
		sched.NewAuthWorker(tick, authRepo, accountRepo, sessions, notifier, logger),
		sched.NewSchedulerWorker(tick, scheduleRepo, campaignRepo, factoryRepo, gate, locker, logger),
		sched.NewContentWorker(tick, scheduleRepo, accountRepo, settingsRepo, gate, sessions, ai, notifier, logger),
		sched.NewDailyResetWorker(tick, accountRepo, settingsRepo, locker, logger),
	}
	for _, w := range workers {
		go func(w interface {
			Run(ctx context.Context) error
		}) {
			_ = w.Run(ctx)
		}(w)
	}

	// ---- Metrics ----
	if cfg.Metrics.Port > 0 {
		metrics.MustRegister()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: mux}
		go func() {
			logger.Info().Str("addr", server.Addr).Msg("metrics listening")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
		defer server.Close()
	}

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
}
