package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout bounds every individual probe. A probe that does not
	// answer in time only leaves its own field empty.
	DefaultTimeout = 10 * time.Second

	// DefaultFreshness is how long a stored analysis is served without
	// re-running the probes.
	DefaultFreshness = 5 * time.Minute

	// DefaultConcurrency is the number of domains analyzed at once when
	// several are given on the command line.
	DefaultConcurrency = 4

	// DefaultWhoisServer is the WHOIS server queried on port 43.
	DefaultWhoisServer = "whois.internic.net:43"

	// DefaultGeoEndpoint is the IP geolocation service. The IP address is
	// appended to it.
	DefaultGeoEndpoint = "http://ip-api.com/json/"

	// DefaultUserAgent identifies domaindive in HTTP requests.
	DefaultUserAgent = "domaindive/1.0 (+https://github.com/nao1215/domaindive)"

	// AppName is the application name used for XDG directory paths.
	AppName = "domaindive"
)

// Config holds all configuration options for domaindive.
// It is populated from defaults, the config file and CLI flags, in that
// order, and passed through the application explicitly.
type Config struct {
	// Timeout is the per-probe timeout.
	Timeout time.Duration

	// Freshness is the window during which a stored analysis is served from
	// the store.
	Freshness time.Duration

	// CoalesceRefresh lets concurrent refreshes of one domain share a
	// single probe run.
	CoalesceRefresh bool

	// Concurrency is the number of domains analyzed at once.
	Concurrency int

	// WhoisServer is the host:port of the WHOIS server.
	WhoisServer string

	// GeoEndpoint is the base URL of the geolocation service.
	GeoEndpoint string

	// DNSServers are the host:port addresses of the resolvers to query.
	// Empty means the system resolvers from /etc/resolv.conf.
	DNSServers []string

	// SOCKSProxy routes WHOIS and TLS connections through a SOCKS5 proxy
	// when set ("host:port").
	SOCKSProxy string

	// UserAgent is the User-Agent header of the HTTP probe.
	UserAgent string

	// DBDir is the directory of the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/domaindive on Linux).
	DBDir string

	// DatabaseURL selects the PostgreSQL store instead of SQLite when set.
	DatabaseURL string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .domaindive is searched in the current directory and then in
	// the user's home directory.
	ConfigFilePath string

	// JSONReport enables JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// ForceRefresh re-runs the probes even when the stored analysis is fresh.
	ForceRefresh bool

	// Targets is the list of domains to analyze.
	Targets []string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:         DefaultTimeout,
		Freshness:       DefaultFreshness,
		CoalesceRefresh: true,
		Concurrency:     DefaultConcurrency,
		WhoisServer:     DefaultWhoisServer,
		GeoEndpoint:     DefaultGeoEndpoint,
		UserAgent:       DefaultUserAgent,
		DBDir:           XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for domaindive.
// On Linux: ~/.local/share/domaindive
// On macOS: ~/Library/Application Support/domaindive
// On Windows: %LOCALAPPDATA%\domaindive
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for domaindive.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// UsePostgres reports whether the PostgreSQL store is selected.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Freshness <= 0 {
		return ErrInvalidFreshness
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.DatabaseURL == "" && c.DBDir == "" {
		return ErrNoDatabase
	}

	return nil
}
