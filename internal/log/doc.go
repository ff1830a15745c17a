// Package log provides secure logging built on top of the standard slog
// package.
//
// The SecureHandler masks sensitive information before it reaches the
// output:
//   - HTTP headers captured by the HTTP probe (Cookie, Set-Cookie,
//     Authorization, API keys)
//   - values that look like bearer tokens, JWTs or private keys
//   - the password of connection URLs such as a PostgreSQL database URL
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//	logger.Debug("opening store", "url", "postgres://app:pw@db/domaindive")
//	// url=postgres://app:xxxxx@db/domaindive
package log
