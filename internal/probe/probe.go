package probe

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/domaindive/internal/model"
)

// DefaultTimeout bounds each individual probe.
const DefaultTimeout = 10 * time.Second

// WhoisFetcher returns the raw WHOIS text of a domain.
type WhoisFetcher interface {
	Fetch(ctx context.Context, domain string) (string, error)
}

// DNSResolver resolves the records and nameservers of a domain.
type DNSResolver interface {
	Records(ctx context.Context, domain string) (model.DNSRecords, error)
	Nameservers(ctx context.Context, domain string) ([]model.Nameserver, error)
}

// SSLInspector summarizes the certificate a domain serves.
type SSLInspector interface {
	Inspect(ctx context.Context, domain string) (model.SSLInfo, error)
}

// HTTPProber sends a header-only request to a domain.
type HTTPProber interface {
	Probe(ctx context.Context, domain string) (model.HTTPResponse, error)
}

// GeoLocator locates an IP address.
type GeoLocator interface {
	Locate(ctx context.Context, ip string) (model.Geolocation, error)
}

// Prober bundles one adapter per probe.
type Prober struct {
	Whois WhoisFetcher
	DNS   DNSResolver
	SSL   SSLInspector
	HTTP  HTTPProber
	Geo   GeoLocator
}

// Options configures the adapters built by New.
type Options struct {
	// Timeout bounds each probe. Zero means DefaultTimeout.
	Timeout time.Duration

	// WhoisServer is the "host:port" WHOIS server. Empty means DefaultWhoisServer.
	WhoisServer string

	// GeoEndpoint is the geolocation URL prefix. Empty means DefaultGeoEndpoint.
	GeoEndpoint string

	// DNSServers overrides the resolvers from /etc/resolv.conf.
	DNSServers []string

	// SOCKSProxy routes WHOIS, TLS and HTTP connections through a SOCKS5
	// proxy when set ("host:port").
	SOCKSProxy string

	// UserAgent is sent with HTTP probes. Empty means the built-in agent.
	UserAgent string

	// Logger receives adapter debug output. Nil means slog.Default().
	Logger *slog.Logger
}

// New builds the network adapters described by opts.
func New(opts Options) (*Prober, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dialer, err := NewDialer(opts.SOCKSProxy, timeout)
	if err != nil {
		return nil, err
	}

	dnsClient := NewDNSClient(
		WithDNSServers(opts.DNSServers...),
		WithDNSTimeout(timeout),
		WithDNSLogger(logger),
	)

	return &Prober{
		Whois: NewWhoisClient(dialer, WithWhoisServer(opts.WhoisServer), WithWhoisTimeout(timeout)),
		DNS:   dnsClient,
		SSL:   NewTLSClient(dnsClient, dialer, WithTLSTimeout(timeout)),
		HTTP:  NewHTTPClient(dialer, WithHTTPTimeout(timeout), WithUserAgent(opts.UserAgent)),
		Geo:   NewGeoClient(dialer, WithGeoEndpoint(opts.GeoEndpoint), WithGeoTimeout(timeout)),
	}, nil
}
