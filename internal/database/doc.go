// Package database provides persistence for domain analyses.
//
// Every backend stores one row per normalized domain address in the
// domain_analyses table. The address column carries a UNIQUE constraint;
// writes go through INSERT ... ON CONFLICT so that two refreshes racing for
// the same address never produce duplicate rows. The last writer wins on the
// payload while updated_at keeps the greater of the two timestamps.
//
// Two backends are available:
//   - SQLiteDB (modernc.org/sqlite): the default, a single file in the XDG
//     data directory, CGO free
//   - PostgresDB (jackc/pgx): for deployments that share one store between
//     several processes
//
// Probe payloads are stored as JSON text. Their schema belongs to the probes,
// not to the store.
package database
