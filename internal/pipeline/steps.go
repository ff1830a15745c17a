package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/domaindive/internal/model"
	"github.com/nao1215/domaindive/internal/probe"
)

// Step names as they appear in reports and logs.
const (
	StepWhois       = "whois"
	StepDNS         = "dns"
	StepNameservers = "nameservers"
	StepSSL         = "ssl"
	StepHTTP        = "http"
	StepGeolocation = "geolocation"
)

// WhoisStep stores the raw WHOIS text. On failure WhoisRaw stays nil.
type WhoisStep struct {
	fetcher probe.WhoisFetcher
}

// NewWhoisStep creates a WHOIS step.
func NewWhoisStep(fetcher probe.WhoisFetcher) *WhoisStep {
	return &WhoisStep{fetcher: fetcher}
}

// Name returns the step name.
func (s *WhoisStep) Name() string { return StepWhois }

// Do executes the WHOIS lookup.
func (s *WhoisStep) Do(ctx context.Context, address string, payload *model.Payload) error {
	payload.WhoisRaw = nil
	text, err := s.fetcher.Fetch(ctx, address)
	if err != nil {
		return err
	}
	payload.WhoisRaw = &text
	return nil
}

// DNSStep stores the A, AAAA, MX, TXT and CNAME records.
type DNSStep struct {
	resolver probe.DNSResolver
}

// NewDNSStep creates a DNS records step.
func NewDNSStep(resolver probe.DNSResolver) *DNSStep {
	return &DNSStep{resolver: resolver}
}

// Name returns the step name.
func (s *DNSStep) Name() string { return StepDNS }

// Do executes the record lookups. Categories that resolved are kept even
// when others failed.
func (s *DNSStep) Do(ctx context.Context, address string, payload *model.Payload) error {
	records, err := s.resolver.Records(ctx, address)
	payload.DNSRecords = normalizeRecords(records)
	return err
}

// normalizeRecords replaces nil categories with empty ones.
func normalizeRecords(r model.DNSRecords) model.DNSRecords {
	for _, c := range []*[]model.DNSRecord{&r.A, &r.AAAA, &r.MX, &r.TXT, &r.CNAME} {
		if *c == nil {
			*c = make([]model.DNSRecord, 0)
		}
	}
	return r
}

// NameserversStep stores the authoritative nameservers.
type NameserversStep struct {
	resolver probe.DNSResolver
}

// NewNameserversStep creates a nameserver step.
func NewNameserversStep(resolver probe.DNSResolver) *NameserversStep {
	return &NameserversStep{resolver: resolver}
}

// Name returns the step name.
func (s *NameserversStep) Name() string { return StepNameservers }

// Do executes the NS lookup.
func (s *NameserversStep) Do(ctx context.Context, address string, payload *model.Payload) error {
	nameservers, err := s.resolver.Nameservers(ctx, address)
	if nameservers == nil {
		nameservers = make([]model.Nameserver, 0)
	}
	payload.Nameservers = nameservers
	return err
}

// SSLStep stores the certificate summary.
type SSLStep struct {
	inspector probe.SSLInspector
}

// NewSSLStep creates a certificate step.
func NewSSLStep(inspector probe.SSLInspector) *SSLStep {
	return &SSLStep{inspector: inspector}
}

// Name returns the step name.
func (s *SSLStep) Name() string { return StepSSL }

// Do executes the TLS inspection.
func (s *SSLStep) Do(ctx context.Context, address string, payload *model.Payload) error {
	info, err := s.inspector.Inspect(ctx, address)
	if err != nil {
		payload.SSLInfo = model.SSLInfo{Available: false}
		return err
	}
	payload.SSLInfo = info
	return nil
}

// HTTPStep stores the status and headers of the HEAD probe.
type HTTPStep struct {
	prober probe.HTTPProber
}

// NewHTTPStep creates an HTTP step.
func NewHTTPStep(prober probe.HTTPProber) *HTTPStep {
	return &HTTPStep{prober: prober}
}

// Name returns the step name.
func (s *HTTPStep) Name() string { return StepHTTP }

// Do executes the HEAD probe.
func (s *HTTPStep) Do(ctx context.Context, address string, payload *model.Payload) error {
	resp, err := s.prober.Probe(ctx, address)
	if err != nil {
		payload.HTTPResponse = model.HTTPResponse{}
		return err
	}
	payload.HTTPResponse = resp
	return nil
}

// GeolocationStep locates the first A record of the payload. It must run
// in a later stage than DNSStep.
type GeolocationStep struct {
	locator probe.GeoLocator
	logger  *slog.Logger
}

// NewGeolocationStep creates a geolocation step.
func NewGeolocationStep(locator probe.GeoLocator, logger *slog.Logger) *GeolocationStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeolocationStep{locator: locator, logger: logger}
}

// Name returns the step name.
func (s *GeolocationStep) Name() string { return StepGeolocation }

// Do executes the lookup. Without an A record the step is skipped and the
// geolocation stays empty; that is not a failure.
func (s *GeolocationStep) Do(ctx context.Context, address string, payload *model.Payload) error {
	payload.Geolocation = model.Geolocation{}

	ip, ok := payload.DNSRecords.FirstA()
	if !ok {
		s.logger.Debug("no A record, skipping geolocation", "address", address)
		return nil
	}

	geo, err := s.locator.Locate(ctx, ip)
	if err != nil {
		return err
	}
	payload.Geolocation = geo
	return nil
}

// Default builds the standard analysis pipeline: WHOIS, DNS, nameservers,
// SSL and HTTP run concurrently, then geolocation runs on the resolved
// address.
func Default(prober *probe.Prober, opts ...Option) *Pipeline {
	p := New(opts...)

	p.AddStage(
		NewWhoisStep(prober.Whois),
		NewDNSStep(prober.DNS),
		NewNameserversStep(prober.DNS),
		NewSSLStep(prober.SSL),
		NewHTTPStep(prober.HTTP),
	)
	p.AddStage(NewGeolocationStep(prober.Geo, p.logger))

	return p
}
