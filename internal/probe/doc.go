// Package probe implements the network lookups that feed a domain analysis:
// WHOIS, DNS records, nameservers, the TLS certificate, HTTP headers and IP
// geolocation.
//
// Every adapter is bounded by its own timeout (DefaultTimeout unless
// configured) and reports failure as an error alongside an empty but well
// formed result. Callers decide whether a failure matters; the analysis
// pipeline records it and keeps going.
//
// TCP connections for WHOIS, TLS and HTTP go through a Dialer, which is
// either a direct net.Dialer or a SOCKS5 proxy dialer (see NewDialer).
//
//	prober, err := probe.New(probe.Options{Timeout: 10 * time.Second})
//	records, err := prober.DNS.Records(ctx, "example.com")
package probe
