package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "claims",
	Short: "Expense claim submission service",
	Long: `claims builds expense claims into accounting payloads and delivers them
to the configured webhook. Receipts are merged into one PDF per account code
and large claims are split into batches that each fit the payload ceiling.

Configuration comes from the environment (and an optional .env file).
WEBHOOK_URL is required.

Example Usage:
  claims serve                   # run the HTTP API
  claims submit claim.json       # submit one claim and print the outcome
  claims plan claim.json         # show how a claim would be batched`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, submitCmd, planCmd)
}
