// Package freshness decides whether a stored analysis can be served as is
// or must be refreshed, and how long until it has to be.
//
// IsStale is authoritative for cache decisions. SecondsUntilRefresh is
// derived from the same window and is only used for display.
package freshness

import (
	"time"
)

// DefaultWindow is how long a record stays fresh after its last update.
const DefaultWindow = 5 * time.Minute

// Policy evaluates freshness against a window and a clock.
// The zero value is not usable; construct with New or Default.
type Policy struct {
	// Window is the duration after UpdatedAt during which a record is fresh.
	Window time.Duration

	// Now returns the current wall-clock time.
	Now func() time.Time
}

// Option configures a Policy.
type Option func(*Policy)

// WithWindow overrides the freshness window. Non-positive values are ignored.
func WithWindow(window time.Duration) Option {
	return func(p *Policy) {
		if window > 0 {
			p.Window = window
		}
	}
}

// WithClock overrides the clock. Tests use it to move time deterministically.
func WithClock(now func() time.Time) Option {
	return func(p *Policy) {
		if now != nil {
			p.Now = now
		}
	}
}

// New creates a Policy with the default window and clock, then applies opts.
func New(opts ...Option) Policy {
	p := Policy{
		Window: DefaultWindow,
		Now:    time.Now,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Default returns the five minute wall-clock policy.
func Default() Policy {
	return New()
}

// IsStale reports whether a record last updated at updatedAt must be
// refreshed. The zero time stands for "never updated" and is always stale.
// A record is stale once exactly Window has elapsed.
func (p Policy) IsStale(updatedAt time.Time) bool {
	if updatedAt.IsZero() {
		return true
	}
	return p.Now().Sub(updatedAt) >= p.Window
}

// SecondsUntilRefresh returns the whole seconds left before updatedAt falls
// out of the window. It is never negative and is 0 for the zero time and for
// stale records.
func (p Policy) SecondsUntilRefresh(updatedAt time.Time) int64 {
	if updatedAt.IsZero() {
		return 0
	}
	remaining := updatedAt.Add(p.Window).Sub(p.Now())
	if remaining <= 0 {
		return 0
	}
	return int64(remaining / time.Second)
}

// ExpiresAt returns the instant at which updatedAt becomes stale.
func (p Policy) ExpiresAt(updatedAt time.Time) time.Time {
	return updatedAt.Add(p.Window)
}

// IsStale reports staleness under the default policy.
func IsStale(updatedAt time.Time) bool {
	return Default().IsStale(updatedAt)
}

// SecondsUntilRefresh computes the remaining seconds under the default policy.
func SecondsUntilRefresh(updatedAt time.Time) int64 {
	return Default().SecondsUntilRefresh(updatedAt)
}
