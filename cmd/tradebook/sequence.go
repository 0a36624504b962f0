package main

import (
	"context"
	"fmt"

	seqdomain "github.com/smallbiznis/tradebook/internal/sequence/domain"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var sequenceCmd = &cobra.Command{
	Use:   "sequence",
	Short: "Issue or list document numbers",
}

var sequenceNextCmd = &cobra.Command{
	Use:   "next <domain>",
	Short: "Issue the next number for a domain",
	Long: `Issue the next number for one of: sales_order, purchase_order,
sales_ledger, purchase_ledger, collection, payout. The number is consumed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc seqdomain.Service
		return runOnce(cmd.Context(), func(ctx context.Context) error {
			number, err := svc.Next(ctx, seqdomain.Domain(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), number)
			return nil
		}, infrastructure(), domains(), fx.Populate(&svc))
	},
}

var sequencePeekCmd = &cobra.Command{
	Use:   "peek <domain>",
	Short: "Show a domain's counter without issuing a number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc seqdomain.Service
		return runOnce(cmd.Context(), func(ctx context.Context) error {
			counter, err := svc.Peek(ctx, seqdomain.Domain(args[0]))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), counter)
		}, infrastructure(), domains(), fx.Populate(&svc))
	},
}

var sequenceListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every counter",
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc seqdomain.Service
		return runOnce(cmd.Context(), func(ctx context.Context) error {
			counters, err := svc.List(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), counters)
		}, infrastructure(), domains(), fx.Populate(&svc))
	},
}

func init() {
	rootCmd.AddCommand(sequenceCmd)
	sequenceCmd.AddCommand(sequenceNextCmd)
	sequenceCmd.AddCommand(sequencePeekCmd)
	sequenceCmd.AddCommand(sequenceListCmd)
}
