package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "custodesk",
		Short: "A small customer-management web application",
		Long: `Custodesk serves a customer-management application:

  • /login        sign-in page
  • /customers    customer list and detail pages
  • /_sync        WebSocket change relay for multi-process deployments

UI preferences persist in a shared key/value store (memory, SQL, or S3)
and stay consistent across processes via the change relay.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("custodesk %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
