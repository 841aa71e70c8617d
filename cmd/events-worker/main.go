package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/parkgolf/notify-backend/internal/delivery"
	"github.com/parkgolf/notify-backend/internal/devices"
	"github.com/parkgolf/notify-backend/internal/events"
	"github.com/parkgolf/notify-backend/internal/notifications"
	"github.com/parkgolf/notify-backend/internal/preferences"
	"github.com/parkgolf/notify-backend/internal/push"
	"github.com/parkgolf/notify-backend/internal/templates"
	"github.com/parkgolf/notify-backend/pkg/config"
	"github.com/parkgolf/notify-backend/pkg/db"
	"github.com/parkgolf/notify-backend/pkg/logger"
	"github.com/parkgolf/notify-backend/pkg/migrate"
	"github.com/parkgolf/notify-backend/pkg/pubsub"
	"github.com/parkgolf/notify-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "events-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "events-worker"

	logg = logger.New(logger.Options{
		ServiceName: "events-worker",
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	coordinator, store := buildPipeline(cfg, logg, dbClient)

	templatesService, err := templates.NewService(templates.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create templates service", err)
		os.Exit(1)
	}

	consumer, err := events.NewConsumer(events.ConsumerParams{
		Subscription:   pubsubClient.DomainSubscription(),
		Store:          store,
		Templates:      templatesService,
		Deliverer:      coordinator,
		Idempotency:    redisClient,
		IdempotencyTTL: cfg.PubSub.IdempotencyTTL,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create event consumer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting events worker")

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "events worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "events worker shutting down gracefully")
}

func buildPipeline(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*delivery.Coordinator, notifications.Service) {
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

	return coordinator, store
}
