package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/domaindive/internal/analysis"
	"github.com/nao1215/domaindive/internal/report"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the domains with a stored analysis",
		Long: `List prints every domain that has a stored analysis, in alphabetical order.

Examples:
  domaindive list
  domaindive list --json
  domaindive list --database-url postgres://localhost/domaindive`,
		Args: cobra.NoArgs,
		RunE: runListCmd,
	}

	addReportFlags(cmd)
	addStoreFlags(cmd)

	return cmd
}

// runListCmd executes the list command.
func runListCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd, nil)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)
	ctx := cmd.Context()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close database", slog.String("error", err.Error()))
		}
	}()

	// Listing never probes, so no collector is needed.
	svc := newService(cfg, st, nil, logger)

	return runList(ctx, svc, createWriter(cfg, cmd.OutOrStdout()))
}

// runList writes the stored addresses with w.
func runList(ctx context.Context, svc *analysis.Service, w report.Writer) error {
	addresses, err := svc.List(ctx)
	if err != nil {
		return err
	}
	_, err = w.WriteList(addresses)
	return err
}
