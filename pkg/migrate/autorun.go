package migrate

import (
	"context"
	"fmt"

	"github.com/veldastudio/storefront-backend/pkg/config"
	"github.com/veldastudio/storefront-backend/pkg/db"
	"github.com/veldastudio/storefront-backend/pkg/db/models"
	"github.com/veldastudio/storefront-backend/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in
// dev mode and the feature flag is enabled. The goose SQL files target
// Postgres; the SQLite fallback schema is derived from the models instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.DB.IsSQLite() {
		ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": config.DriverSQLite})
		logg.Info(ctx, "auto-migrating sqlite fallback schema")
		return AutoMigrateSQLite(client)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": DefaultDir}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, "postgres", DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}

// AutoMigrateSQLite builds the fallback schema from the gorm models.
func AutoMigrateSQLite(client *db.Client) error {
	return client.DB().AutoMigrate(
		&models.Product{},
		&models.ProductStock{},
		&models.Order{},
		&models.StockReservation{},
		&models.StockMovement{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.WebhookLog{},
		&models.AuditLog{},
	)
}
