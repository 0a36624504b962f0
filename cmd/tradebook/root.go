package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "tradebook",
	Short: "Order settlement and ledger engine",
	Long: `tradebook records sales and purchase orders, settles them into
ledgers and keeps a running balance per counterparty.

Configuration comes from the environment (and a .env file when present);
settlement policy is read from settlement.yml in the working directory
or /etc/tradebook and reloaded when the file changes.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
