package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mljjcooking/storefront-backend/internal/notifications"
	"github.com/mljjcooking/storefront-backend/pkg/config"
	"github.com/mljjcooking/storefront-backend/pkg/logger"
	"github.com/mljjcooking/storefront-backend/pkg/metrics"
	"github.com/mljjcooking/storefront-backend/pkg/outbox/idempotency"
	"github.com/mljjcooking/storefront-backend/pkg/pubsub"
	"github.com/mljjcooking/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	sender, err := notifications.NewSendGridSender(cfg.SendGrid)
	if err != nil {
		logg.Error(context.Background(), "failed to create email sender", err)
		os.Exit(1)
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	notifierMetrics := metrics.NewNotifierMetrics(prometheus.DefaultRegisterer)

	consumer, err := notifications.NewConsumer(
		sender,
		pubsubClient.OrdersSubscription(),
		manager,
		cfg.Pickup,
		notifierMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications consumer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"subscription": cfg.PubSub.OrdersSubscription,
	})
	logg.Info(ctx, "starting notifications worker")

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "notifications worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "notifications worker shutting down gracefully")
}
