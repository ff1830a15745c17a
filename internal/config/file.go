package config

import "time"

// File represents the structure of the .domaindive configuration file.
// Every key is optional; absent keys keep the current value.
type File struct {
	// Timeout is the per-probe timeout, e.g. "10s".
	Timeout *time.Duration `yaml:"timeout,omitempty"`

	// Freshness is the cache window, e.g. "5m".
	Freshness *time.Duration `yaml:"freshness,omitempty"`

	// CoalesceRefresh toggles sharing one probe run between concurrent
	// refreshes of the same domain.
	CoalesceRefresh *bool `yaml:"coalesce_refresh,omitempty"`

	// Concurrency is the number of domains analyzed at once.
	Concurrency int `yaml:"concurrency,omitempty"`

	// WhoisServer is the host:port of the WHOIS server.
	WhoisServer string `yaml:"whois_server,omitempty"`

	// GeoEndpoint is the base URL of the geolocation service.
	GeoEndpoint string `yaml:"geo_endpoint,omitempty"`

	// DNSServers are the resolvers to query.
	DNSServers []string `yaml:"dns_servers,omitempty"`

	// SOCKSProxy is the SOCKS5 proxy for WHOIS and TLS connections.
	SOCKSProxy string `yaml:"socks_proxy,omitempty"`

	// UserAgent is the User-Agent header of the HTTP probe.
	UserAgent string `yaml:"user_agent,omitempty"`

	// DBDir is the directory of the SQLite database.
	DBDir string `yaml:"db_dir,omitempty"`

	// DatabaseURL selects PostgreSQL, e.g. "postgres://user@host/db".
	DatabaseURL string `yaml:"database_url,omitempty"`
}

// Apply copies every value set in f onto c.
func (f *File) Apply(c *Config) {
	if f.Timeout != nil {
		c.Timeout = *f.Timeout
	}
	if f.Freshness != nil {
		c.Freshness = *f.Freshness
	}
	if f.CoalesceRefresh != nil {
		c.CoalesceRefresh = *f.CoalesceRefresh
	}
	if f.Concurrency != 0 {
		c.Concurrency = f.Concurrency
	}
	if f.WhoisServer != "" {
		c.WhoisServer = f.WhoisServer
	}
	if f.GeoEndpoint != "" {
		c.GeoEndpoint = f.GeoEndpoint
	}
	if len(f.DNSServers) > 0 {
		c.DNSServers = append([]string(nil), f.DNSServers...)
	}
	if f.SOCKSProxy != "" {
		c.SOCKSProxy = f.SOCKSProxy
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	if f.DBDir != "" {
		c.DBDir = f.DBDir
	}
	if f.DatabaseURL != "" {
		c.DatabaseURL = f.DatabaseURL
	}
}
