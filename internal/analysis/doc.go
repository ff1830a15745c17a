// Package analysis answers "what do we currently know about this domain?".
//
// Service.GetOrCreate normalizes and validates the input, serves the stored
// record while it is inside the freshness window, and otherwise runs every
// probe and upserts the merged result. The returned CacheStatus tells the
// caller which of the two happened, and SecondsUntilRefresh how long the
// record stays fresh.
//
// Refreshes run detached from the caller's context: a caller that gives up
// does not stop in-flight probes, and the result is still stored. Concurrent
// refreshes of one address are coalesced into a single probe run unless
// WithCoalescing(false) is given.
package analysis
