// Package main provides the entry point for the domaindive CLI.
//
// domaindive aggregates WHOIS, DNS, nameserver, SSL certificate, HTTP header
// and geolocation lookups for a domain into one record and caches it.
//
// Usage:
//
//	domaindive analyze <domain>
//	domaindive analyze --refresh --json example.com example.org
//	domaindive list
//
// See --help for all available options.
package main

// main is the entry point for domaindive.
func main() {
	Execute()
}
