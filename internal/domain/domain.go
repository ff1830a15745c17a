package domain

import (
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// domainPattern matches an alphanumeric first character, one or more
// alphanumeric, hyphen, underscore or dot characters, a dot and an
// alphabetic top-level domain of at least two letters.
var domainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-_.]+\.[a-zA-Z]{2,}$`)

// schemePattern matches a single leading http:// or https:// scheme.
var schemePattern = regexp.MustCompile(`^https?://`)

// ErrInvalidDomain is returned when the normalized input is not a domain
// name with a top-level domain. The message is shown to users verbatim.
var ErrInvalidDomain = newDomainError("must be a valid domain name with a top-level domain (e.g., example.com)")

// domainError is a custom error type for domain validation errors.
type domainError struct {
	message string
}

// newDomainError creates a new domain error with the given message.
func newDomainError(message string) *domainError {
	return &domainError{message: message}
}

// Error implements the error interface.
func (e *domainError) Error() string {
	return e.message
}

// Normalize converts user input into a candidate domain key.
// It never fails; call Validate on the result.
//
// This function handles common input variations:
//   - Extra whitespace
//   - Uppercase letters
//   - A URL scheme (http://, https://)
//   - A trailing slash
func Normalize(input string) string {
	address := strings.ToLower(strings.TrimSpace(input))
	address = schemePattern.ReplaceAllString(address, "")
	return strings.TrimSuffix(address, "/")
}

// Validate reports whether address is an acceptable domain key.
// It expects an already normalized address.
func Validate(address string) bool {
	return domainPattern.MatchString(address)
}

// Parse normalizes input and validates the result.
// It returns the domain key, or ErrInvalidDomain.
func Parse(input string) (string, error) {
	address := Normalize(input)
	if !Validate(address) {
		return "", ErrInvalidDomain
	}
	return address, nil
}

// RegisteredDomain returns the registrable part of address (eTLD+1), for
// example "example.co.uk" for "www.example.co.uk". When the public suffix
// list cannot determine one, address is returned unchanged.
func RegisteredDomain(address string) string {
	registered, err := publicsuffix.EffectiveTLDPlusOne(address)
	if err != nil {
		return address
	}
	return registered
}
