package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mljjcooking/storefront-backend/api/controllers"
	webhookcontrollers "github.com/mljjcooking/storefront-backend/api/controllers/webhooks"
	"github.com/mljjcooking/storefront-backend/api/middleware"
	catalogsvc "github.com/mljjcooking/storefront-backend/internal/catalog"
	checkoutsvc "github.com/mljjcooking/storefront-backend/internal/checkout"
	ordersvc "github.com/mljjcooking/storefront-backend/internal/orders"
	stripewebhook "github.com/mljjcooking/storefront-backend/internal/webhooks/stripe"
	"github.com/mljjcooking/storefront-backend/pkg/config"
	"github.com/mljjcooking/storefront-backend/pkg/logger"
	"github.com/mljjcooking/storefront-backend/pkg/metrics"
	"github.com/mljjcooking/storefront-backend/pkg/stripe"
)

type RouterParams struct {
	Config *config.Config
	Logger *logger.Logger

	HealthDeps map[string]controllers.Pinger

	CatalogService  catalogsvc.Reader
	CheckoutService checkoutsvc.Service
	OrdersService   ordersvc.Service

	StripeClient         *stripe.Client
	StripeWebhookService *stripewebhook.Service
	StripeWebhookGuard   *stripewebhook.IdempotencyGuard

	CheckoutMetrics *metrics.CheckoutMetrics
	WebhookMetrics  *metrics.WebhookMetrics
	MetricsGatherer prometheus.Gatherer
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.HealthDeps))
	})

	if p.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ListProducts(p.CatalogService, logg))
		r.Post("/checkout/initiate", controllers.CheckoutInitiate(p.CheckoutService, p.CheckoutMetrics, logg))

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/stripe", webhookcontrollers.StripeWebhook(p.StripeWebhookService, p.StripeClient, p.StripeWebhookGuard, p.WebhookMetrics, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(cfg.JWT, logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminListOrders(p.OrdersService, logg))
				r.Get("/by-intent/{intentId}", controllers.AdminOrderByIntent(p.OrdersService, logg))
				r.Get("/{orderId}", controllers.AdminOrderDetail(p.OrdersService, logg))
				r.Patch("/{orderId}/status", controllers.AdminUpdateOrderStatus(p.OrdersService, logg))
			})
		})
	})

	return r
}
