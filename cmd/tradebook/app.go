package main

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradebook/internal/authorization"
	"github.com/smallbiznis/tradebook/internal/balance"
	"github.com/smallbiznis/tradebook/internal/catalog"
	"github.com/smallbiznis/tradebook/internal/clock"
	"github.com/smallbiznis/tradebook/internal/config"
	"github.com/smallbiznis/tradebook/internal/counterparty"
	"github.com/smallbiznis/tradebook/internal/cutoff"
	"github.com/smallbiznis/tradebook/internal/events"
	"github.com/smallbiznis/tradebook/internal/ledger"
	"github.com/smallbiznis/tradebook/internal/lock"
	"github.com/smallbiznis/tradebook/internal/migration"
	"github.com/smallbiznis/tradebook/internal/observability"
	"github.com/smallbiznis/tradebook/internal/order"
	"github.com/smallbiznis/tradebook/internal/payment"
	"github.com/smallbiznis/tradebook/internal/report"
	"github.com/smallbiznis/tradebook/internal/sequence"
	"github.com/smallbiznis/tradebook/internal/settlement"
	"github.com/smallbiznis/tradebook/pkg/db"
	"go.uber.org/fx"
)

const commandTimeout = 30 * time.Second

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}

// infrastructure is what every command needs before touching the schema.
func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		lock.Module,
		events.Module,
	)
}

func domains() fx.Option {
	return fx.Options(
		sequence.Module,
		cutoff.Module,
		counterparty.Module,
		catalog.Module,
		balance.Module,
		order.Module,
		ledger.Module,
		settlement.Module,
		payment.Module,
		report.Module,
		authorization.Module,
	)
}

// runOnce starts a short-lived app, hands the populated targets to fn and
// stops the app again.
func runOnce(ctx context.Context, fn func(ctx context.Context) error, opts ...fx.Option) error {
	app := fx.New(append([]fx.Option{fx.NopLogger}, opts...)...)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	runErr := fn(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), commandTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}
