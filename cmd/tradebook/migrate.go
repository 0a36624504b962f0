package main

import (
	"context"
	"fmt"

	"github.com/smallbiznis/tradebook/internal/config"
	"github.com/smallbiznis/tradebook/internal/migration"
	"github.com/smallbiznis/tradebook/internal/observability"
	"github.com/smallbiznis/tradebook/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the schema for the configured database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd.Context(), func(context.Context) error {
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
			config.Module,
			observability.Module,
			db.Module,
			migration.Module,
		)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent postgres migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			conn *gorm.DB
			cfg  config.Config
		)
		return runOnce(cmd.Context(), func(context.Context) error {
			if cfg.DBType != db.TypePostgres {
				return fmt.Errorf("rollback is only supported on postgres, got %q", cfg.DBType)
			}
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.Rollback(sqlDB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rolled back one migration")
			return nil
		},
			config.Module,
			observability.Module,
			db.Module,
			fx.Populate(&conn, &cfg),
		)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}
