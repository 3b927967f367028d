package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mljjcooking/storefront-backend/api/controllers"
	"github.com/mljjcooking/storefront-backend/api/routes"
	"github.com/mljjcooking/storefront-backend/internal/catalog"
	checkoutsvc "github.com/mljjcooking/storefront-backend/internal/checkout"
	"github.com/mljjcooking/storefront-backend/internal/orders"
	"github.com/mljjcooking/storefront-backend/internal/payments"
	stripewebhook "github.com/mljjcooking/storefront-backend/internal/webhooks/stripe"
	"github.com/mljjcooking/storefront-backend/pkg/config"
	"github.com/mljjcooking/storefront-backend/pkg/db"
	"github.com/mljjcooking/storefront-backend/pkg/enums"
	"github.com/mljjcooking/storefront-backend/pkg/logger"
	"github.com/mljjcooking/storefront-backend/pkg/metrics"
	"github.com/mljjcooking/storefront-backend/pkg/migrate"
	"github.com/mljjcooking/storefront-backend/pkg/outbox"
	"github.com/mljjcooking/storefront-backend/pkg/pubsub"
	"github.com/mljjcooking/storefront-backend/pkg/redis"
	"github.com/mljjcooking/storefront-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	gateway, err := payments.NewGateway(stripeClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(orderRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Catalog:   catalogService,
		Gateway:   gateway,
		OrderRepo: orderRepo,
		TxRunner:  dbClient,
		Currency:  enums.Currency(cfg.Stripe.Currency),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		OrderRepo:         orderRepo,
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.IdempotencyTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := routes.NewRouter(routes.RouterParams{
		Config: cfg,
		Logger: logg,
		HealthDeps: map[string]controllers.Pinger{
			"db":     dbClient,
			"redis":  redisClient,
			"pubsub": pubsubClient,
		},
		CatalogService:       catalogService,
		CheckoutService:      checkoutService,
		OrdersService:        ordersService,
		StripeClient:         stripeClient,
		StripeWebhookService: webhookService,
		StripeWebhookGuard:   webhookGuard,
		CheckoutMetrics:      metrics.NewCheckoutMetrics(registry),
		WebhookMetrics:       metrics.NewWebhookMetrics(registry),
		MetricsGatherer:      registry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown error", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shut down gracefully")
}
