package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/orris-inc/paywall/internal/interfaces/cli/migrate"
	"github.com/orris-inc/paywall/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "paywall",
		Short: "Paywall - subscription billing reconciliation service",
		Long:  `Paywall derives canonical subscription state from payment provider webhooks and exposes billing and access APIs, with built-in server and migration tools.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
