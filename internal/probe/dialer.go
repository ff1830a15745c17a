package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// Dialer opens TCP connections for the probes that talk to the target or to
// a lookup service directly.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// NewDialer returns a direct dialer, or a SOCKS5 dialer when socksProxy is
// set. The proxy is not contacted until the first dial.
func NewDialer(socksProxy string, timeout time.Duration) (Dialer, error) {
	direct := &net.Dialer{Timeout: timeout}
	if socksProxy == "" {
		return direct, nil
	}

	if !isValidProxyAddress(socksProxy) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, socksProxy)
	}

	// No auth: local SOCKS proxies (ssh -D, Tor) accept anonymous clients.
	d, err := proxy.SOCKS5("tcp", socksProxy, nil, direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("SOCKS5 dialer for %s does not support contexts", socksProxy)
	}
	return cd, nil
}

// isValidProxyAddress checks if the address is in valid "host:port" format
// with a port between 1 and 65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" || port == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}
