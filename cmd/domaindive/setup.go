package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/domaindive/internal/analysis"
	"github.com/nao1215/domaindive/internal/config"
	"github.com/nao1215/domaindive/internal/database"
	"github.com/nao1215/domaindive/internal/freshness"
	"github.com/nao1215/domaindive/internal/log"
	"github.com/nao1215/domaindive/internal/report"
)

// addStoreFlags registers the flags shared by every command that opens the
// analysis store.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .domaindive in current or home directory)")
	cmd.Flags().String("db-dir", "",
		"Directory of the SQLite database (default: XDG data directory)")
	cmd.Flags().String("database-url", "",
		"PostgreSQL URL; selects PostgreSQL instead of SQLite")
}

// addReportFlags registers the output format flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the secure logger selected by the global flags.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	verbose := getVerboseFlag(cmd)
	jsonLogs, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		jsonLogs = false
	}

	if jsonLogs {
		return log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return log.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}

// buildConfig creates a Config from defaults, the configuration file and
// the flags that were set explicitly, in that order.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Targets = args

	if err := loadConfigFile(cmd, cfg); err != nil {
		return nil, err
	}

	flags := []error{
		overrideString(cmd, "db-dir", &cfg.DBDir),
		overrideString(cmd, "database-url", &cfg.DatabaseURL),
		overrideDuration(cmd, "timeout", &cfg.Timeout),
		overrideDuration(cmd, "freshness", &cfg.Freshness),
		overrideInt(cmd, "concurrency", &cfg.Concurrency),
		overrideString(cmd, "socks-proxy", &cfg.SOCKSProxy),
		overrideString(cmd, "whois-server", &cfg.WhoisServer),
		overrideStringSlice(cmd, "dns-server", &cfg.DNSServers),
		overrideBool(cmd, "json", &cfg.JSONReport),
		overrideBool(cmd, "markdown", &cfg.MarkdownReport),
		overrideBool(cmd, "refresh", &cfg.ForceRefresh),
		overrideString(cmd, "output", &cfg.ReportFile),
	}
	for _, err := range flags {
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("no-coalesce") {
		cfg.CoalesceRefresh = false
	}

	return cfg, nil
}

// loadConfigFile applies the configuration file, if any, to cfg.
// A path given with --config must exist; the default locations are optional.
func loadConfigFile(cmd *cobra.Command, cfg *config.Config) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	found := config.FindConfigFile(path)
	if found == "" {
		if path != "" {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
		}
		return nil
	}

	file, err := config.LoadConfigFile(found)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", found, err)
	}
	file.Apply(cfg)
	cfg.ConfigFilePath = found

	return nil
}

func overrideString(cmd *cobra.Command, name string, dst *string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func overrideStringSlice(cmd *cobra.Command, name string, dst *[]string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func overrideDuration(cmd *cobra.Command, name string, dst *time.Duration) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetDuration(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func overrideInt(cmd *cobra.Command, name string, dst *int) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func overrideBool(cmd *cobra.Command, name string, dst *bool) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// store is an analysis store that owns a connection.
type store interface {
	analysis.Store
	Close() error
}

// openStore opens PostgreSQL when a database URL is configured and the
// SQLite file in cfg.DBDir otherwise.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, error) {
	if cfg.UsePostgres() {
		logger.Debug("opening PostgreSQL store", slog.String("url", cfg.DatabaseURL))
		db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, database.Options{})
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("SQLite store opened", slog.String("path", db.Path()))
	return db, nil
}

// newService wires the orchestrator from cfg.
func newService(cfg *config.Config, st analysis.Store, collector analysis.Collector, logger *slog.Logger) *analysis.Service {
	return analysis.New(st, collector,
		analysis.WithPolicy(freshness.New(freshness.WithWindow(cfg.Freshness))),
		analysis.WithCoalescing(cfg.CoalesceRefresh),
		analysis.WithLogger(logger),
	)
}

// openOutput returns the report destination: cfg.ReportFile when set,
// stdout otherwise. The returned function closes the file.
func openOutput(cfg *config.Config, stdout io.Writer) (io.Writer, func() error, error) {
	if cfg.ReportFile == "" {
		return stdout, func() error { return nil }, nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// createWriter returns the report writer for the selected format.
func createWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}
