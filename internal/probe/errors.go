package probe

import "errors"

// Probe errors. They are wrapped with context by the adapters and checked
// with errors.Is.
var (
	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrNoAddress is returned when a host has no IPv4 address.
	ErrNoAddress = errors.New("no IPv4 address found")

	// ErrNoCertificate is returned when the TLS peer presented no certificate.
	ErrNoCertificate = errors.New("no peer certificate presented")

	// ErrNoHTTPResponse is returned when neither HTTPS nor HTTP answered
	// with a 2xx or 3xx status.
	ErrNoHTTPResponse = errors.New("no successful HTTP response")

	// ErrGeolocationFailed is returned when the geolocation service did not
	// report success.
	ErrGeolocationFailed = errors.New("geolocation lookup failed")

	// ErrDNSQuery is returned when every DNS server failed to answer a query.
	ErrDNSQuery = errors.New("dns query failed")
)
