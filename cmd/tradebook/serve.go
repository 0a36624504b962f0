package main

import (
	"github.com/smallbiznis/tradebook/internal/config"
	"github.com/smallbiznis/tradebook/internal/scheduler"
	"github.com/smallbiznis/tradebook/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, with the scheduler unless disabled",
	Example: `  tradebook serve
  tradebook serve --no-scheduler`,
	RunE: func(cmd *cobra.Command, args []string) error {
		noScheduler, _ := cmd.Flags().GetBool("no-scheduler")

		fx.New(
			infrastructure(),
			domains(),
			server.Module,
			scheduler.Module,
			fx.Decorate(func(cfg config.Config) config.Config {
				if noScheduler {
					cfg.SchedulerEnabled = false
				}
				return cfg
			}),
		).Run()
		return nil
	},
}

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run only the background jobs: outbox relay and cutoff auto-reset",
	RunE: func(cmd *cobra.Command, args []string) error {
		fx.New(
			infrastructure(),
			domains(),
			scheduler.Module,
			fx.Decorate(func(cfg config.Config) config.Config {
				cfg.SchedulerEnabled = true
				return cfg
			}),
		).Run()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(relayCmd)

	serveCmd.Flags().Bool("no-scheduler", false, "Do not run background jobs in this process")
}
