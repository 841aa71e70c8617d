package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/parkgolf/notify-backend/internal/deadletter"
	"github.com/parkgolf/notify-backend/internal/delivery"
	"github.com/parkgolf/notify-backend/internal/devices"
	"github.com/parkgolf/notify-backend/internal/notifications"
	"github.com/parkgolf/notify-backend/internal/preferences"
	"github.com/parkgolf/notify-backend/internal/push"
	"github.com/parkgolf/notify-backend/internal/scheduler"
	"github.com/parkgolf/notify-backend/pkg/config"
	"github.com/parkgolf/notify-backend/pkg/db"
	"github.com/parkgolf/notify-backend/pkg/logger"
	"github.com/parkgolf/notify-backend/pkg/metrics"
	"github.com/parkgolf/notify-backend/pkg/migrate"
	"github.com/parkgolf/notify-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "scheduler-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "scheduler-worker"

	logg = logger.New(logger.Options{
		ServiceName: "scheduler-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	coordinator, store, deadLetterService := buildPipeline(cfg, logg, dbClient)

	processDue, err := scheduler.NewProcessDueJob(scheduler.ProcessDueJobParams{
		Store:       store,
		Coordinator: coordinator,
		BatchLimit:  cfg.Scheduler.BatchLimit,
		ClaimLease:  cfg.Scheduler.ClaimLease,
		Interval:    cfg.Scheduler.DueInterval,
		Workers:     cfg.Scheduler.DeliveryWorkers,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create process-due job", err)
		os.Exit(1)
	}

	retryFailed, err := scheduler.NewRetryFailedJob(scheduler.RetryFailedJobParams{
		Store:       store,
		Coordinator: coordinator,
		BatchLimit:  cfg.Scheduler.BatchLimit,
		ClaimLease:  cfg.Scheduler.ClaimLease,
		Interval:    cfg.Scheduler.RetryInterval,
		Workers:     cfg.Scheduler.DeliveryWorkers,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create retry-failed job", err)
		os.Exit(1)
	}

	dlqSweep, err := scheduler.NewDLQSweepJob(scheduler.DLQSweepJobParams{
		Store:      store,
		DeadLetter: deadLetterService,
		BatchLimit: cfg.Scheduler.BatchLimit,
		ClaimLease: cfg.Scheduler.ClaimLease,
		Interval:   cfg.Scheduler.SweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dlq-sweep job", err)
		os.Exit(1)
	}

	dlqCleanup, err := scheduler.NewDLQCleanupJob(scheduler.DLQCleanupJobParams{
		DeadLetter:    deadLetterService,
		RetentionDays: cfg.Scheduler.RetentionDays,
		Interval:      cfg.Scheduler.CleanupInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dlq-cleanup job", err)
		os.Exit(1)
	}

	dlqStats, err := scheduler.NewDLQStatsJob(scheduler.DLQStatsJobParams{
		DeadLetter: deadLetterService,
		Logger:     logg,
		Interval:   cfg.Scheduler.StatsInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dlq-stats job", err)
		os.Exit(1)
	}

	registry := scheduler.NewRegistry(processDue, retryFailed, dlqSweep, dlqCleanup, dlqStats)

	service, err := scheduler.NewService(scheduler.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Metrics:  metrics.NewSchedulerTickMetrics(prometheus.DefaultRegisterer),
		NewLock: func(jobName string) (scheduler.Lock, error) {
			return scheduler.NewRedisLock(redisClient, jobName, cfg.Scheduler.LockTTL)
		},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduler service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting scheduler worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "scheduler worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "scheduler worker shutting down gracefully")
}

func buildPipeline(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*delivery.Coordinator, notifications.Service, deadletter.Service) {
	store, err := notifications.NewService(notifications.ServiceParams{
		Repo:    notifications.NewRepository(dbClient.DB()),
		Backoff: delivery.NewExponentialBackoff(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	prefs, err := preferences.NewService(preferences.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create preferences service", err)
		os.Exit(1)
	}

	deadLetterService, err := deadletter.NewService(deadletter.ServiceParams{
		Repo:          deadletter.NewRepository(dbClient.DB()),
		Notifications: notifications.NewRepository(dbClient.DB()),
		Tx:            dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dead letter service", err)
		os.Exit(1)
	}

	deviceRegistry, err := devices.NewClient(cfg.Devices.BaseURL, logg, devices.WithTimeout(cfg.Devices.Timeout))
	if err != nil {
		logg.Error(context.Background(), "failed to create device registry client", err)
		os.Exit(1)
	}

	pushSender, err := push.NewSender(context.Background(), push.SenderParams{
		Firebase: cfg.Firebase,
		Registry: deviceRegistry,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create push sender", err)
		os.Exit(1)
	}

	coordinator, err := delivery.NewCoordinator(delivery.CoordinatorParams{
		Store:   store,
		Prefs:   prefs,
		Push:    pushSender,
		Email:   delivery.NewEmailSender(cfg.Email, logg),
		SMS:     delivery.NewSMSSender(cfg.SMS, logg),
		Logger:  logg,
		Timeout: cfg.Scheduler.DeliveryTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery coordinator", err)
		os.Exit(1)
	}

	return coordinator, store, deadLetterService
}
