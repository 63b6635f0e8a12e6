package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/uptimecore/internal/config"
	"github.com/hamed0406/uptimecore/internal/httpapi"
	apimw "github.com/hamed0406/uptimecore/internal/httpapi/middleware"
	"github.com/hamed0406/uptimecore/internal/incident"
	"github.com/hamed0406/uptimecore/internal/kv"
	kvmem "github.com/hamed0406/uptimecore/internal/kv/memory"
	kvsqlite "github.com/hamed0406/uptimecore/internal/kv/sqlite"
	"github.com/hamed0406/uptimecore/internal/logging"
	"github.com/hamed0406/uptimecore/internal/notify"
	"github.com/hamed0406/uptimecore/internal/probe"
	"github.com/hamed0406/uptimecore/internal/recorder"
	"github.com/hamed0406/uptimecore/internal/repo"
	"github.com/hamed0406/uptimecore/internal/repo/memory"
	pg "github.com/hamed0406/uptimecore/internal/repo/postgres"
	"github.com/hamed0406/uptimecore/internal/scheduler"
	"github.com/hamed0406/uptimecore/internal/stats"
)

type datastore interface {
	repo.Datastore
	repo.Seeder
}

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store_open_error", zap.Error(err))
	}
	defer closeStore()

	seed, err := config.LoadSeed(cfg.SeedFile)
	if err != nil {
		logger.Fatal("seed_load_error", zap.String("file", cfg.SeedFile), zap.Error(err))
	}
	if err := repo.ApplySeed(ctx, store, seed); err != nil {
		logger.Fatal("seed_apply_error", zap.Error(err))
	}
	logger.Info("seed_applied", zap.Int("monitors", len(seed.Monitors)), zap.Int("contacts", len(seed.Contacts)))

	kvStore, sweeper, closeKV, err := openKV(ctx, cfg)
	if err != nil {
		logger.Fatal("kv_open_error", zap.String("path", cfg.KVPath), zap.Error(err))
	}
	defer closeKV()

	executor := probe.NewExecutor(probe.ExecutorConfig{
		KV:             kvStore,
		Region:         cfg.Region,
		CertInspector:  probe.PeerCertInspector{},
		DNSDiagnostics: cfg.DNSDiagnostics,
		Logger:         logger,
	})

	email := notify.NewEmail(cfg.SMTP)
	if !email.Configured() {
		logger.Info("smtp_not_configured")
	}
	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		Store: store,
		KV:    kvStore,
		Channels: []notify.Channel{
			email,
			notify.NewWebhook(),
			notify.NewDiscord(),
			notify.NewSlack(),
			notify.NewTelegram(os.Getenv("TELEGRAM_API_BASE")),
		},
		PerMinute: cfg.NotifyPerMinute,
		DedupTTL:  cfg.NotifyDedupTTL,
		Logger:    logger,
	})
	defer dispatcher.Stop()

	host, _ := os.Hostname()
	cycle := scheduler.NewCycleRunner(scheduler.CycleConfig{
		Store:       store,
		Prober:      executor,
		Recorder:    recorder.New(store, logger),
		Incidents:   incident.NewManager(store, logger),
		Notifier:    dispatcher,
		Leaser:      kv.NewLeaser(kvStore, host+"-"+uuid.NewString()),
		Interval:    cfg.CheckInterval,
		Concurrency: cfg.MaxConcurrent,
		Logger:      logger,
	})

	backstop := scheduler.NewBackstop(store, dispatcher, scheduler.BackstopConfig{
		Window:       cfg.BackstopWindow,
		PollInterval: cfg.BackstopInterval,
	}, logger)

	aggregator := stats.NewAggregator(store, time.Duration(cfg.RetentionDays)*24*time.Hour, logger)
	nightly, err := scheduler.NewNightly(cfg.AggregateCron, aggregator, sweeper, logger)
	if err != nil {
		logger.Fatal("nightly_schedule_error", zap.String("spec", cfg.AggregateCron), zap.Error(err))
	}

	workers := startWorkers(ctx, logger, map[string]func(context.Context) error{
		"cycle": func(ctx context.Context) error {
			cycle.Run(ctx)
			return nil
		},
		"backstop": backstop.Run,
	})
	nightly.Start()

	api := httpapi.NewServer(logger, store, kvStore, aggregator)
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: api.Router(httpapi.Options{
			Keys:          apimw.Keys{Public: cfg.PublicKeys, Admin: cfg.AdminKeys},
			PushPerMinute: cfg.PushPerMinute,
			PushBurst:     cfg.PushBurst,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_listen_error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown_started")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_error", zap.Error(err))
	}
	nightly.Stop(shutdownCtx)
	_ = workers.Wait()
	logger.Info("shutdown_done")
}

// startWorkers runs each loop until ctx ends. Wait on the returned group
// before closing the stores the loops use.
func startWorkers(ctx context.Context, logger *zap.Logger, loops map[string]func(context.Context) error) *errgroup.Group {
	var g errgroup.Group
	for name, run := range loops {
		g.Go(func() error {
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("worker_stopped", zap.String("worker", name), zap.Error(err))
			}
			return nil
		})
	}
	return &g
}

// openStore uses Postgres when DATABASE_URL is set and the in-memory store
// otherwise.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (datastore, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("store_memory")
		return memory.New(), func() {}, nil
	}
	s, err := pg.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, nil, err
	}
	logger.Info("store_postgres")
	return s, s.Close, nil
}

// openKV uses SQLite when KV_PATH is set and the in-memory KV otherwise.
func openKV(ctx context.Context, cfg config.Config) (kv.Store, scheduler.Sweeper, func(), error) {
	if cfg.KVPath == "" {
		s := kvmem.New()
		return s, s, func() {}, nil
	}
	s, err := kvsqlite.New(ctx, cfg.KVPath)
	if err != nil {
		return nil, nil, nil, err
	}
	return s, s, func() { _ = s.Close() }, nil
}
