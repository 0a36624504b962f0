package main

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/tradebook/internal/actor"
	cutoffdomain "github.com/smallbiznis/tradebook/internal/cutoff/domain"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var cutoffCmd = &cobra.Command{
	Use:   "cutoff",
	Short: "Inspect or move the cutoff window",
	Example: `  tradebook cutoff status
  tradebook cutoff close --actor usr_01 --name "Rina"
  tradebook cutoff reset --actor system`,
}

func cutoffAction(use, short string, fn func(svc cutoffdomain.Service, ctx context.Context, by actor.Actor) (cutoffdomain.Snapshot, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			by, err := actorFromFlags(cmd)
			if err != nil {
				return err
			}
			var svc cutoffdomain.Service
			return runOnce(cmd.Context(), func(ctx context.Context) error {
				snap, err := fn(svc, ctx, by)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), snap)
			}, infrastructure(), domains(), fx.Populate(&svc))
		},
	}
}

var cutoffStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current window",
	RunE: func(cmd *cobra.Command, args []string) error {
		history, _ := cmd.Flags().GetInt("history")
		var svc cutoffdomain.Service
		return runOnce(cmd.Context(), func(ctx context.Context) error {
			snap, err := svc.Current(ctx)
			if err != nil {
				return err
			}
			if history <= 0 {
				return writeJSON(cmd.OutOrStdout(), snap)
			}
			events, err := svc.History(ctx, history)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"window": snap, "history": events})
		}, infrastructure(), domains(), fx.Populate(&svc))
	},
}

func actorFromFlags(cmd *cobra.Command) (actor.Actor, error) {
	id, _ := cmd.Flags().GetString("actor")
	name, _ := cmd.Flags().GetString("name")
	id = strings.TrimSpace(id)
	if id == "" {
		return actor.Actor{}, errors.New("--actor is required")
	}
	if id == actor.System.ID {
		return actor.System, nil
	}
	return actor.Actor{ID: id, Name: strings.TrimSpace(name), Role: "operator"}, nil
}

func init() {
	rootCmd.AddCommand(cutoffCmd)
	cutoffCmd.AddCommand(cutoffStatusCmd)
	cutoffStatusCmd.Flags().Int("history", 0, "Also print the last N transitions")

	for _, c := range []*cobra.Command{
		cutoffAction("open", "Open a new window", cutoffdomain.Service.Open),
		cutoffAction("close", "Close the current window; later orders become additional", cutoffdomain.Service.Close),
		cutoffAction("reset", "Start a fresh open window", cutoffdomain.Service.Reset),
	} {
		c.Flags().String("actor", "", "Actor id recorded on the transition")
		c.Flags().String("name", "", "Actor display name")
		cutoffCmd.AddCommand(c)
	}
}
