// Jahiz Relay - Server Entry Point
//
// Receives error reports from client applications over a webhook and relays
// them to a Telegram chat as formatted notifications.
//
// Usage:
//
//	server              # same as "server serve"
//	server serve
//	server send-test
//	server verify
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	// Load .env file if it exists (development)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "Relay error reports to Telegram",
		Long: `server runs the Jahiz error relay.

Configuration is read from environment variables, optionally loaded
from a .env file in the working directory.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sendTestCmd())
	rootCmd.AddCommand(verifyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
