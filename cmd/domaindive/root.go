package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for domaindive.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domaindive",
		Short: "Aggregate and cache everything known about a domain",
		Long: `domaindive answers "what do we currently know about this domain?".

It runs WHOIS, DNS, nameserver, SSL certificate, HTTP header and IP
geolocation lookups concurrently, merges them into one record and stores it.
Repeated requests within the freshness window (5 minutes by default) are
served from the store without probing again.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
