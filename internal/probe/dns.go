package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/domaindive/internal/model"
)

// resolvConfPath is where the system resolver configuration is read from.
const resolvConfPath = "/etc/resolv.conf"

// fallbackServers are used when no resolver configuration is available.
var fallbackServers = []string{"127.0.0.1:53", "[::1]:53"}

// maxNameserverLookups bounds concurrent address lookups for nameservers.
const maxNameserverLookups = 8

// DNSClient queries DNS servers directly so record TTLs are available.
type DNSClient struct {
	udp     *dns.Client
	tcp     *dns.Client
	servers []string
	timeout time.Duration
	logger  *slog.Logger
}

// DNSOption configures a DNSClient.
type DNSOption func(*DNSClient)

// WithDNSServers sets the "host:port" servers queried in order. An entry
// without a port uses 53.
func WithDNSServers(servers ...string) DNSOption {
	return func(c *DNSClient) {
		normalized := make([]string, 0, len(servers))
		for _, s := range servers {
			if s == "" {
				continue
			}
			if _, _, err := net.SplitHostPort(s); err != nil {
				s = net.JoinHostPort(s, "53")
			}
			normalized = append(normalized, s)
		}
		if len(normalized) > 0 {
			c.servers = normalized
		}
	}
}

// WithDNSTimeout sets the deadline for one Records or Nameservers call.
func WithDNSTimeout(timeout time.Duration) DNSOption {
	return func(c *DNSClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithDNSLogger sets the logger for per-query failures.
func WithDNSLogger(logger *slog.Logger) DNSOption {
	return func(c *DNSClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewDNSClient creates a DNS client using the servers from /etc/resolv.conf
// unless WithDNSServers is given.
func NewDNSClient(opts ...DNSOption) *DNSClient {
	c := &DNSClient{
		servers: systemServers(),
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.udp = &dns.Client{Net: "udp", Timeout: c.timeout}
	c.tcp = &dns.Client{Net: "tcp", Timeout: c.timeout}
	return c
}

// Servers returns the servers queried, in order.
func (c *DNSClient) Servers() []string {
	return append([]string(nil), c.servers...)
}

// systemServers reads the resolver configuration of the host.
func systemServers() []string {
	conf, err := dns.ClientConfigFromFile(resolvConfPath)
	if err != nil || len(conf.Servers) == 0 {
		return append([]string(nil), fallbackServers...)
	}
	servers := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		servers = append(servers, net.JoinHostPort(s, conf.Port))
	}
	return servers
}

// Records resolves the A, AAAA, MX, TXT and CNAME records of domain
// concurrently. A failed type leaves only its category empty; the returned
// error joins every failure.
func (c *DNSClient) Records(ctx context.Context, domain string) (model.DNSRecords, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	records := model.NewDNSRecords()
	lookups := []struct {
		qtype uint16
		dst   *[]model.DNSRecord
	}{
		{dns.TypeA, &records.A},
		{dns.TypeAAAA, &records.AAAA},
		{dns.TypeMX, &records.MX},
		{dns.TypeTXT, &records.TXT},
		{dns.TypeCNAME, &records.CNAME},
	}
	errs := make([]error, len(lookups))

	var g errgroup.Group
	for i, l := range lookups {
		g.Go(func() error {
			answers, err := c.query(ctx, domain, l.qtype)
			if err != nil {
				c.logger.Debug("dns lookup failed",
					slog.String("domain", domain),
					slog.String("type", dns.TypeToString[l.qtype]),
					slog.String("error", err.Error()))
				errs[i] = err
				return nil
			}
			*l.dst = convertRecords(answers, l.qtype)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // lookups never return errors to the group

	return records, errors.Join(errs...)
}

// convertRecords keeps the answers of type qtype. CNAME answers preceding an
// A or AAAA answer are dropped.
func convertRecords(answers []dns.RR, qtype uint16) []model.DNSRecord {
	out := make([]model.DNSRecord, 0, len(answers))
	for _, rr := range answers {
		switch v := rr.(type) {
		case *dns.A:
			if qtype == dns.TypeA {
				out = append(out, model.DNSRecord{Value: v.A.String(), TTL: int(v.Hdr.Ttl)})
			}
		case *dns.AAAA:
			if qtype == dns.TypeAAAA {
				out = append(out, model.DNSRecord{Value: v.AAAA.String(), TTL: int(v.Hdr.Ttl)})
			}
		case *dns.MX:
			if qtype == dns.TypeMX {
				priority := int(v.Preference)
				out = append(out, model.DNSRecord{Value: trimDot(v.Mx), Priority: &priority})
			}
		case *dns.TXT:
			if qtype == dns.TypeTXT {
				out = append(out, model.DNSRecord{Value: strings.Join(v.Txt, "")})
			}
		case *dns.CNAME:
			if qtype == dns.TypeCNAME {
				out = append(out, model.DNSRecord{Value: trimDot(v.Target)})
			}
		}
	}
	return out
}

// Nameservers resolves the NS records of domain and enriches each host with
// its first IPv4 address. A host whose address lookup fails is kept with a
// nil address; an NS lookup failure yields an empty list and an error.
func (c *DNSClient) Nameservers(ctx context.Context, domain string) ([]model.Nameserver, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	answers, err := c.query(ctx, domain, dns.TypeNS)
	if err != nil {
		return make([]model.Nameserver, 0), fmt.Errorf("failed to resolve nameservers of %s: %w", domain, err)
	}

	hosts := make([]string, 0, len(answers))
	for _, rr := range answers {
		if ns, ok := rr.(*dns.NS); ok {
			hosts = append(hosts, trimDot(ns.Ns))
		}
	}

	nameservers := make([]model.Nameserver, len(hosts))
	g := new(errgroup.Group)
	g.SetLimit(maxNameserverLookups)
	for i, host := range hosts {
		nameservers[i] = model.Nameserver{Hostname: host}
		g.Go(func() error {
			ip, err := c.LookupIPv4(ctx, host)
			if err != nil {
				c.logger.Debug("nameserver address lookup failed",
					slog.String("nameserver", host),
					slog.String("error", err.Error()))
				return nil
			}
			nameservers[i].IPAddress = &ip
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // lookups never return errors to the group

	return nameservers, nil
}

// LookupIPv4 returns the first A record of host.
func (c *DNSClient) LookupIPv4(ctx context.Context, host string) (string, error) {
	answers, err := c.query(ctx, host, dns.TypeA)
	if err != nil {
		return "", err
	}
	for _, rr := range answers {
		if a, ok := rr.(*dns.A); ok {
			return a.A.String(), nil
		}
	}
	return "", fmt.Errorf("%w for %s", ErrNoAddress, host)
}

// query sends one question to each server in turn until one answers.
// Truncated UDP answers are retried over TCP on the same server.
func (c *DNSClient) query(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range c.servers {
		resp, _, err := c.udp.ExchangeContext(ctx, msg, server)
		if err == nil && resp.Truncated {
			resp, _, err = c.tcp.ExchangeContext(ctx, msg, server)
		}
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			return nil, fmt.Errorf("%w: %s %s: %s", ErrDNSQuery, dns.TypeToString[qtype], name, dns.RcodeToString[resp.Rcode])
		}
		return resp.Answer, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no servers configured")
	}
	return nil, fmt.Errorf("%w: %s %s: %w", ErrDNSQuery, dns.TypeToString[qtype], name, lastErr)
}

func trimDot(name string) string {
	return strings.TrimSuffix(name, ".")
}
