package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veldastudio/storefront-backend/api/controllers"
	webhookcontrollers "github.com/veldastudio/storefront-backend/api/controllers/webhooks"
	"github.com/veldastudio/storefront-backend/api/middleware"
	"github.com/veldastudio/storefront-backend/internal/coupons"
	"github.com/veldastudio/storefront-backend/internal/inventory"
	"github.com/veldastudio/storefront-backend/internal/movements"
	"github.com/veldastudio/storefront-backend/internal/orders"
	paystackwebhook "github.com/veldastudio/storefront-backend/internal/webhooks/paystack"
	"github.com/veldastudio/storefront-backend/pkg/config"
	"github.com/veldastudio/storefront-backend/pkg/db"
	"github.com/veldastudio/storefront-backend/pkg/logger"
	"github.com/veldastudio/storefront-backend/pkg/redis"
)

// RouterParams collects everything the HTTP surface needs.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              db.Pinger
	Redis           *redis.Client
	Orders          orders.Service
	Coupons         coupons.Service
	Inventory       inventory.Service
	Movements       movements.Service
	PaystackClient  webhookcontrollers.PaystackClient
	PaystackWebhook *paystackwebhook.Service
	WebhookGuard    *paystackwebhook.IdempotencyGuard
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.CheckoutWindow,
		cfg.RateLimit.CheckoutIPLimit,
	)
	couponPolicy := middleware.NewRateLimitPolicy(
		"coupon",
		cfg.RateLimit.CouponWindow,
		cfg.RateLimit.CouponIPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Server-to-server; signature-verified instead of CSRF-protected.
		r.Post("/payments/webhook", webhookcontrollers.PaystackWebhook(p.PaystackWebhook, p.PaystackClient, p.WebhookGuard, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.CSRFHeader(logg))

			r.With(middleware.RateLimit(checkoutPolicy, p.Redis, logg)).
				Post("/orders", controllers.Checkout(p.Orders, logg))
			r.With(middleware.RateLimit(couponPolicy, p.Redis, logg)).
				Post("/orders/validate-coupon", controllers.ValidateCoupon(p.Coupons, logg))
		})

		r.Get("/inventory/check/{productId}", controllers.InventoryCheck(p.Inventory, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.JWT, logg))

		r.Get("/orders", controllers.AdminListOrders(p.Orders, logg))
		r.Get("/orders/{id}", controllers.AdminGetOrder(p.Orders, logg))
		r.Post("/orders/{id}/status", controllers.AdminUpdateOrderStatus(p.Orders, logg))

		r.Get("/inventory/low-stock", controllers.AdminLowStock(p.Inventory, logg))
		r.Post("/inventory/release/{orderId}", controllers.AdminReleaseOrderStock(p.Orders, logg))
		r.Post("/inventory/{productId}/stock", controllers.AdminSetStock(p.Inventory, logg))
		r.Get("/inventory/{productId}/movements", controllers.AdminStockMovements(p.Movements, logg))
	})

	return r
}
