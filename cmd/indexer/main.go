// Command indexer drives the Alkanes metaprotocol indexer: ingesting
// blocks into the activity log, candle aggregator, and pool metrics store,
// and exposing operator subcommands for reindexing and rollback.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{Use: "indexer"}
	rootCmd.PersistentFlags().String("env", "", "config environment override (e.g. regtest)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(reindexCmd())
	rootCmd.AddCommand(rollbackCmd())
	rootCmd.AddCommand(heightCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envFlag(cmd *cobra.Command) string {
	env, _ := cmd.Flags().GetString("env")
	return env
}
