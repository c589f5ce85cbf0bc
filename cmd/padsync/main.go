package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "1.0.0"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "padsync",
		Short: "Real-time collaborative editing relay",
		Long: `Padsync relays collaborative editing sessions.

It keeps an in-memory registry of editing sessions, accepts WebSocket
connections per session, and fans binary document updates and presence
frames out to every other participant. Late joiners receive a bounded
replay of recent document updates before live traffic.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		initCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
