package migration

import (
	"github.com/smallbiznis/tradebook/internal/config"
	"github.com/smallbiznis/tradebook/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Apply),
)

// Apply migrates the schema for the configured dialect.
func Apply(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if cfg.DBType == db.TypePostgres {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
		log.Info("schema migrated", zap.String("type", cfg.DBType))
		if !cfg.DBAutoMigrate {
			return nil
		}
	}
	if err := AutoMigrate(conn); err != nil {
		return err
	}
	log.Info("schema auto-migrated", zap.String("type", cfg.DBType))
	return nil
}
