package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/domaindive/internal/analysis"
	"github.com/nao1215/domaindive/internal/config"
	"github.com/nao1215/domaindive/internal/pipeline"
	"github.com/nao1215/domaindive/internal/probe"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <domain> [domain...]",
		Short: "Analyze one or more domains",
		Long: `Analyze returns everything known about a domain.

A stored analysis younger than the freshness window is returned as is
(cache status "cached"). Otherwise WHOIS, DNS, nameserver, SSL, HTTP and
geolocation probes run concurrently and the merged result is stored
(cache status "fresh"). A probe that fails only leaves its own field empty.

Inputs are normalized first: surrounding whitespace, an http:// or https://
prefix and one trailing slash are removed, and the name is lowercased.

Examples:
  # Analyze a domain
  domaindive analyze example.com

  # Ignore the stored analysis and probe again
  domaindive analyze --refresh example.com

  # Analyze several domains, 8 at a time, as JSON
  domaindive analyze -n 8 --json example.com example.org example.net

  # Store analyses in PostgreSQL
  domaindive analyze --database-url postgres://localhost/domaindive example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAnalyzeCmd,
	}

	cmd.Flags().BoolP("refresh", "r", false,
		"Run the probes even when the stored analysis is fresh")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout of each probe")
	cmd.Flags().Duration("freshness", config.DefaultFreshness,
		"How long a stored analysis is served without probing")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of domains analyzed at once")
	cmd.Flags().Bool("no-coalesce", false,
		"Do not share one probe run between concurrent refreshes of a domain")
	cmd.Flags().String("socks-proxy", "",
		"Route WHOIS, TLS and HTTP connections through a SOCKS5 proxy (host:port)")
	cmd.Flags().String("whois-server", config.DefaultWhoisServer,
		"WHOIS server (host:port)")
	cmd.Flags().StringSlice("dns-server", nil,
		"DNS resolver to query (host[:port]), repeatable (default: /etc/resolv.conf)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	addReportFlags(cmd)
	addStoreFlags(cmd)

	return cmd
}

// runAnalyzeCmd executes the analyze command.
func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close database", slog.String("error", err.Error()))
		}
	}()

	prober, err := probe.New(probe.Options{
		Timeout:     cfg.Timeout,
		WhoisServer: cfg.WhoisServer,
		GeoEndpoint: cfg.GeoEndpoint,
		DNSServers:  cfg.DNSServers,
		SOCKSProxy:  cfg.SOCKSProxy,
		UserAgent:   cfg.UserAgent,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to set up probes: %w", err)
	}

	svc := newService(cfg, st, pipeline.Default(prober, pipeline.WithLogger(logger)), logger)

	return runAnalyze(ctx, cfg, svc, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// runAnalyze analyzes cfg.Targets and writes one report per successful
// analysis. With a single target its error is returned unchanged, so an
// invalid domain reports the validation message as is.
func runAnalyze(ctx context.Context, cfg *config.Config, svc *analysis.Service, stdout, stderr io.Writer) (err error) {
	output, closeOutput, err := openOutput(cfg, stdout)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOutput(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()

	writer := createWriter(cfg, output)

	results, batchErr := svc.GetOrCreateBatch(ctx, cfg.Targets, cfg.ForceRefresh,
		analysis.WithConcurrency(cfg.Concurrency))

	var failed []analysis.BatchResult
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
			continue
		}
		if _, err := writer.Write(r.Result); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	if batchErr != nil {
		return batchErr
	}

	switch {
	case len(failed) == 0:
		return nil
	case len(results) == 1:
		return failed[0].Err
	default:
		errs := make([]error, 0, len(failed))
		for _, f := range failed {
			fmt.Fprintf(stderr, "%s: %v\n", f.Input, f.Err)
			errs = append(errs, f.Err)
		}
		return fmt.Errorf("%d of %d analyses failed: %w", len(failed), len(results), errors.Join(errs...))
	}
}
