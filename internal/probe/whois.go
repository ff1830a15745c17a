package probe

import (
	"context"
	"fmt"
	"io"
	"time"
)

// DefaultWhoisServer is the registry WHOIS server queried for every domain.
const DefaultWhoisServer = "whois.internic.net:43"

// maxWhoisSize caps the WHOIS response read from the server.
const maxWhoisSize = 1 << 20

// WhoisClient fetches raw WHOIS text over TCP.
type WhoisClient struct {
	server  string
	dialer  Dialer
	timeout time.Duration
}

// WhoisOption configures a WhoisClient.
type WhoisOption func(*WhoisClient)

// WithWhoisServer sets the "host:port" of the WHOIS server.
func WithWhoisServer(server string) WhoisOption {
	return func(c *WhoisClient) {
		if server != "" {
			c.server = server
		}
	}
}

// WithWhoisTimeout sets the deadline for the whole exchange.
func WithWhoisTimeout(timeout time.Duration) WhoisOption {
	return func(c *WhoisClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewWhoisClient creates a WHOIS client that connects through dialer.
func NewWhoisClient(dialer Dialer, opts ...WhoisOption) *WhoisClient {
	c := &WhoisClient{
		server:  DefaultWhoisServer,
		dialer:  dialer,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch sends the domain followed by CRLF and returns everything the server
// writes until it closes the connection.
func (c *WhoisClient) Fetch(ctx context.Context, domain string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "tcp", c.server)
	if err != nil {
		return "", fmt.Errorf("failed to connect to WHOIS server %s: %w", c.server, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return "", fmt.Errorf("failed to set WHOIS deadline: %w", err)
		}
	}

	if _, err := io.WriteString(conn, domain+"\r\n"); err != nil {
		return "", fmt.Errorf("failed to send WHOIS query: %w", err)
	}

	data, err := io.ReadAll(io.LimitReader(conn, maxWhoisSize))
	if err != nil {
		return "", fmt.Errorf("failed to read WHOIS response: %w", err)
	}
	return string(data), nil
}
