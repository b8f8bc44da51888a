package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/mkch/paybot/internal/admin"
	"github.com/mkch/paybot/internal/bot"
	"github.com/mkch/paybot/internal/catalog"
	"github.com/mkch/paybot/internal/fulfillment"
	"github.com/mkch/paybot/internal/httpserver"
	"github.com/mkch/paybot/internal/inventory"
	"github.com/mkch/paybot/internal/sessions"
	"github.com/mkch/paybot/internal/settings"
	"github.com/mkch/paybot/internal/stats"
	"github.com/mkch/paybot/internal/telegram"
	"github.com/mkch/paybot/pkg/config"
	"github.com/mkch/paybot/pkg/instance"
	"github.com/mkch/paybot/pkg/logger"
	"github.com/mkch/paybot/pkg/metrics"
	"github.com/mkch/paybot/pkg/redis"
	"github.com/mkch/paybot/pkg/shutdown"
)

const (
	serviceName      = "paybot"
	idempotencyScope = "payment"
	shutdownTimeout  = 20 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "paybot stopped with error", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "paybot stopped")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	queue := shutdown.NewQueue()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := queue.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "shutdown tasks failed", err)
		}
	}()

	cat, err := catalog.Load(cfg.Store.CatalogPath)
	if err != nil {
		return err
	}

	settingsStore, source, err := settings.Open(cfg.Store.SettingsPath, cfg.Store.BootstrapAdmins)
	if err != nil {
		return err
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"settings_path":   cfg.Store.SettingsPath,
		"settings_source": string(source),
		"admins":          len(settingsStore.ListAdmins()),
	}), "settings loaded")

	codes, err := inventory.NewStore(cfg.Store.CodesPath)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	botMetrics := metrics.NewBotMetrics(reg)
	if n, err := codes.Count(); err == nil {
		botMetrics.SetCodesRemaining(n)
		logg.Info(logg.WithField(ctx, "codes_remaining", n), "inventory opened")
	}

	var (
		aggregator stats.Aggregator = stats.NewMemoryAggregator()
		guard      fulfillment.Guard = fulfillment.NewMemoryGuard(cfg.Eventing.IdempotencyTTL)
		checks                       = map[string]httpserver.Pinger{}
	)
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		queue.AddCloser("redis", redisClient.Close)
		checks["redis"] = redisClient

		if aggregator, err = stats.NewRedisAggregator(redisClient); err != nil {
			return err
		}
		if guard, err = fulfillment.NewRedisGuard(redisClient, cfg.Eventing.IdempotencyTTL, idempotencyScope); err != nil {
			return err
		}
	} else {
		logg.Warn(ctx, "redis not configured; stats and payment dedupe are process-local")
	}

	tg, err := telegram.New(cfg.Telegram, logg)
	if err != nil {
		return err
	}

	engine, err := fulfillment.NewEngine(fulfillment.EngineParams{
		Catalog:   cat,
		Settings:  settingsStore,
		Inventory: codes,
		Stats:     aggregator,
		Guard:     guard,
		Replier:   tg,
		Logger:    logg,
		Metrics:   botMetrics,

		ReplyTimeout: cfg.Telegram.RequestTimeout,
	})
	if err != nil {
		return err
	}

	adminSvc, err := admin.NewService(admin.ServiceParams{
		Settings:  settingsStore,
		Stats:     aggregator,
		Inventory: codes,
		Logger:    logg,
		Metrics:   botMetrics,
	})
	if err != nil {
		return err
	}

	machine := sessions.NewMachine(cat, settingsStore)
	dispatcher, err := bot.NewDispatcher(bot.DispatcherParams{
		Catalog:        cat,
		Sessions:       machine,
		Admin:          adminSvc,
		Fulfillment:    engine,
		Messenger:      tg,
		Logger:         logg,
		Metrics:        botMetrics,
		WelcomePhoto:   cfg.Telegram.WelcomePhoto,
		Currency:       cfg.Telegram.Currency,
		RequestTimeout: cfg.Telegram.RequestTimeout,
	})
	if err != nil {
		return err
	}

	pool, err := bot.NewPool(dispatcher, cfg.Eventing.Workers, cfg.Eventing.QueueSize, logg)
	if err != nil {
		return err
	}
	pool.Start()
	queue.Add(pool.Close)

	janitor, err := bot.NewJanitor(machine, cfg.Eventing.SessionTTL, logg)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.HTTP.Addr != "" {
		router := httpserver.NewRouter(httpserver.RouterParams{
			Env:      cfg.App.Env,
			Logger:   logg,
			Gatherer: reg,
			Checks:   checks,
		})
		srv, err := httpserver.NewServer(cfg.HTTP.Addr, router, logg)
		if err != nil {
			return err
		}
		g.Go(func() error { return srv.ListenAndServe(gctx) })
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error { return ignoreCanceled(janitor.Run(gctx)) })
	g.Go(func() error { return ignoreCanceled(tg.Run(gctx, pool.Submit)) })

	logg.Info(logg.WithFields(ctx, map[string]any{
		"instance": instance.GetID(),
		"items":    len(cat.Items()),
		"workers":  cfg.Eventing.Workers,
	}), "paybot started")
	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
