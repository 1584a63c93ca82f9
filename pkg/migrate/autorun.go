package migrate

import (
	"context"
	"fmt"

	"github.com/agrigenai/agrigen-backend/pkg/config"
	"github.com/agrigenai/agrigen-backend/pkg/db"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
)

// MaybeRunDev applies migrations on boot when the service runs in dev mode with the feature flag
// enabled, or whenever the SQL store sits on sqlite (which is never migrated out of band).
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if client == nil {
		return nil
	}
	devRun := cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate
	if !devRun && !cfg.DB.IsSQLite() {
		return nil
	}

	sqlDB, err := client.SQLDB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	dialect := Dialect(cfg.DB)
	meta := map[string]any{"source": "embedded", "dialect": dialect}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running Goose migrations (auto-run)")

	if err := Run(ctx, sqlDB, dialect, "", "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}
