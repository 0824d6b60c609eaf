package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/veldastudio/storefront-backend/api/routes"
	"github.com/veldastudio/storefront-backend/internal/audit"
	"github.com/veldastudio/storefront-backend/internal/coupons"
	"github.com/veldastudio/storefront-backend/internal/inventory"
	"github.com/veldastudio/storefront-backend/internal/movements"
	"github.com/veldastudio/storefront-backend/internal/notifications"
	"github.com/veldastudio/storefront-backend/internal/orders"
	"github.com/veldastudio/storefront-backend/internal/payments"
	"github.com/veldastudio/storefront-backend/internal/products"
	paystackwebhook "github.com/veldastudio/storefront-backend/internal/webhooks/paystack"
	"github.com/veldastudio/storefront-backend/pkg/config"
	"github.com/veldastudio/storefront-backend/pkg/db"
	"github.com/veldastudio/storefront-backend/pkg/logger"
	"github.com/veldastudio/storefront-backend/pkg/migrate"
	"github.com/veldastudio/storefront-backend/pkg/redis"
)

const webhookDedupeTTL = 24 * time.Hour

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

	gormDB := dbClient.DB()

	movementsService, err := movements.NewService(movements.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create movements service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		Repo:      inventory.NewRepository(gormDB),
		Movements: movementsService,
		Tx:        dbClient,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	productsService, err := products.NewService(products.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	couponsService, err := coupons.NewService(coupons.ServiceParams{
		Repo:       coupons.NewRepository(gormDB),
		Categories: productsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create coupons service", err)
		os.Exit(1)
	}

	paystackClient, err := payments.NewClient(context.Background(), cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	notifier, err := notifications.NewLogNotifier(logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifier", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:           orders.NewRepository(gormDB),
		Tx:             dbClient,
		Inventory:      inventoryService,
		Coupons:        couponsService,
		Products:       productsService,
		Provider:       paystackClient,
		Notifier:       notifier,
		Audit:          audit.NewRecorder(gormDB),
		Logger:         logg,
		ReservationTTL: cfg.Checkout.ReservationTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	webhookService, err := paystackwebhook.NewService(paystackwebhook.ServiceParams{
		Repo:   paystackwebhook.NewRepository(gormDB),
		Orders: ordersService,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := paystackwebhook.NewIdempotencyGuard(redisClient, webhookDedupeTTL, "paystack")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

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
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:          cfg,
			Logger:          logg,
			DB:              dbClient,
			Redis:           redisClient,
			Orders:          ordersService,
			Coupons:         couponsService,
			Inventory:       inventoryService,
			Movements:       movementsService,
			PaystackClient:  paystackClient,
			PaystackWebhook: webhookService,
			WebhookGuard:    webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
