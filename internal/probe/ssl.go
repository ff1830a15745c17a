package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/nao1215/domaindive/internal/model"
)

// unknownName is reported when a certificate has no common name.
const unknownName = "Unknown"

// AddressLookup returns the first IPv4 address of a host.
type AddressLookup interface {
	LookupIPv4(ctx context.Context, host string) (string, error)
}

// TLSClient inspects the certificate a domain serves on port 443.
type TLSClient struct {
	lookup  AddressLookup
	dialer  Dialer
	port    string
	timeout time.Duration
}

// TLSOption configures a TLSClient.
type TLSOption func(*TLSClient)

// WithTLSPort sets the port dialed on the resolved address.
func WithTLSPort(port string) TLSOption {
	return func(c *TLSClient) {
		if port != "" {
			c.port = port
		}
	}
}

// WithTLSTimeout sets the deadline for resolution, dial and handshake.
func WithTLSTimeout(timeout time.Duration) TLSOption {
	return func(c *TLSClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewTLSClient creates a TLS inspector that resolves hosts with lookup and
// connects through dialer.
func NewTLSClient(lookup AddressLookup, dialer Dialer, opts ...TLSOption) *TLSClient {
	c := &TLSClient{
		lookup:  lookup,
		dialer:  dialer,
		port:    "443",
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Inspect resolves domain, completes a TLS handshake with SNI set to domain
// and summarizes the leaf certificate. The chain is not verified: an
// expired or self-signed certificate is still reported. On any failure the
// result is {Available: false}.
func (c *TLSClient) Inspect(ctx context.Context, domain string) (model.SSLInfo, error) {
	unavailable := model.SSLInfo{Available: false}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ip, err := c.lookup.LookupIPv4(ctx, domain)
	if err != nil {
		return unavailable, fmt.Errorf("failed to resolve %s: %w", domain, err)
	}

	rawConn, err := c.dialer.DialContext(ctx, "tcp", net.JoinHostPort(ip, c.port))
	if err != nil {
		return unavailable, fmt.Errorf("failed to connect to %s: %w", ip, err)
	}
	defer rawConn.Close()

	conn := tls.Client(rawConn, &tls.Config{
		ServerName:         domain,
		InsecureSkipVerify: true, //nolint:gosec // certificates are reported, not trusted
	})
	if err := conn.HandshakeContext(ctx); err != nil {
		return unavailable, fmt.Errorf("TLS handshake with %s failed: %w", domain, err)
	}

	state := conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return unavailable, ErrNoCertificate
	}
	cert := state.PeerCertificates[0]

	info := model.SSLInfo{
		Available: true,
		Subject:   orUnknown(cert.Subject.CommonName),
		Issuer:    orUnknown(cert.Issuer.CommonName),
		ValidFrom: cert.NotBefore.UTC().Format(time.RFC3339),
		ValidTo:   cert.NotAfter.UTC().Format(time.RFC3339),
		SAN:       append([]string(nil), cert.DNSNames...),
	}
	return info, nil
}

func orUnknown(name string) string {
	if name == "" {
		return unknownName
	}
	return name
}
