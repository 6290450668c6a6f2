// Command kestrel is the broker's CLI: a serve daemon plus operator
// commands for topics, subscriptions, publish/consume/ack/nack and DLQ
// management, and janitor sweeps. One subcommand file per resource,
// a persistent --config flag, spf13/cobra root command.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	pgDSN      string
	outputFmt  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kestrel",
		Short: "Kestrel - durable pub/sub message broker",
		Long:  "A durable, multi-subscription pub/sub broker with lease-based consumption, backoff retry, and a dead-letter queue.",
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config/seed manifest (optional, env vars override)")
	rootCmd.PersistentFlags().StringVar(&pgDSN, "pg-dsn", "", "Postgres DSN (overrides config/env)")
	rootCmd.PersistentFlags().StringVar(&outputFmt, "output", "table", "output format: table|json|yaml")

	rootCmd.AddCommand(
		serveCmd(),
		topicCmd(),
		subscriptionCmd(),
		publishCmd(),
		consumeCmd(),
		ackCmd(),
		nackCmd(),
		dlqCmd(),
		janitorCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
