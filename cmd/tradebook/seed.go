package main

import (
	"context"

	"github.com/smallbiznis/tradebook/internal/seed"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo counterparties and products",
	RunE: func(cmd *cobra.Command, args []string) error {
		var seeder *seed.Seeder
		return runOnce(cmd.Context(), func(ctx context.Context) error {
			res, err := seeder.Demo(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		}, infrastructure(), domains(), seed.Module, fx.Populate(&seeder))
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
