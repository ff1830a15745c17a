package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/domaindive/internal/model"
)

// DBFileName is the name of the SQLite database file inside the data directory.
const DBFileName = "domaindive.db"

// SQLiteDB stores analyses in a single SQLite file.
// It is opened once per process and is safe for concurrent use: the pool
// holds a single connection, so conflicting writes are serialized.
type SQLiteDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	// now stamps created_at and updated_at.
	now func() time.Time
}

// Options configures SQLiteDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool

	// Clock returns the time used to stamp records. Nil means time.Now.
	Clock func() time.Time
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the analysis database in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*SQLiteDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer. One connection also serializes two
	// refreshes of the same address.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	sdb := &SQLiteDB{
		db:     db,
		dbPath: dbPath,
		now:    now,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// Path returns the database file path.
func (s *SQLiteDB) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (s *SQLiteDB) createTables() error {
	schema := `
	-- One row per normalized domain; ids are never reused
	CREATE TABLE IF NOT EXISTS domain_analyses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		address TEXT NOT NULL UNIQUE,
		whois_data TEXT,
		dns_records TEXT NOT NULL,
		nameservers TEXT NOT NULL,
		ssl_info TEXT NOT NULL,
		http_response TEXT NOT NULL,
		geolocation TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_updated_at ON domain_analyses(updated_at);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// GetByAddress returns the analysis stored for address, or ErrNotFound.
func (s *SQLiteDB) GetByAddress(ctx context.Context, address string) (*model.AnalysisRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM domain_analyses WHERE address = ?`

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, address))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return record, nil
}

// Insert stores a new analysis for address. CreatedAt and UpdatedAt are both
// set to the current time. It returns ErrDuplicateAddress when a row for
// address already exists.
func (s *SQLiteDB) Insert(ctx context.Context, address string, payload *model.Payload) (*model.AnalysisRecord, error) {
	enc, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}
	stamp := formatTimestamp(s.now())

	query := `
	INSERT INTO domain_analyses
		(address, whois_data, dns_records, nameservers, ssl_info, http_response, geolocation, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(address) DO NOTHING
	RETURNING ` + recordColumns

	record, err := scanRecord(s.db.QueryRowContext(ctx, query,
		address,
		enc.whois,
		enc.dnsRecords,
		enc.nameservers,
		enc.sslInfo,
		enc.httpResponse,
		enc.geolocation,
		stamp,
		stamp,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDuplicateAddress
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert analysis: %w", err)
	}
	return record, nil
}

// UpdateByAddress replaces the payload of the existing analysis for address
// and refreshes UpdatedAt. ID and CreatedAt are preserved. It returns
// ErrNotFound when no row exists.
func (s *SQLiteDB) UpdateByAddress(ctx context.Context, address string, payload *model.Payload) (*model.AnalysisRecord, error) {
	enc, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}

	query := `
	UPDATE domain_analyses SET
		whois_data = ?,
		dns_records = ?,
		nameservers = ?,
		ssl_info = ?,
		http_response = ?,
		geolocation = ?,
		updated_at = MAX(updated_at, ?)
	WHERE address = ?
	RETURNING ` + recordColumns

	record, err := scanRecord(s.db.QueryRowContext(ctx, query,
		enc.whois,
		enc.dnsRecords,
		enc.nameservers,
		enc.sslInfo,
		enc.httpResponse,
		enc.geolocation,
		formatTimestamp(s.now()),
		address,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update analysis: %w", err)
	}
	return record, nil
}

// Upsert inserts an analysis for address, or replaces the payload of the
// existing one, in a single statement keyed by the unique address.
// The returned bool is true when a new row was created.
func (s *SQLiteDB) Upsert(ctx context.Context, address string, payload *model.Payload) (*model.AnalysisRecord, bool, error) {
	enc, err := encodePayload(payload)
	if err != nil {
		return nil, false, err
	}
	stamp := formatTimestamp(s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op

	var existingID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM domain_analyses WHERE address = ?`, address).Scan(&existingID)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return nil, false, fmt.Errorf("failed to check existing analysis: %w", err)
	}

	query := `
	INSERT INTO domain_analyses
		(address, whois_data, dns_records, nameservers, ssl_info, http_response, geolocation, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(address) DO UPDATE SET
		whois_data = excluded.whois_data,
		dns_records = excluded.dns_records,
		nameservers = excluded.nameservers,
		ssl_info = excluded.ssl_info,
		http_response = excluded.http_response,
		geolocation = excluded.geolocation,
		updated_at = MAX(domain_analyses.updated_at, excluded.updated_at)
	RETURNING ` + recordColumns

	record, err := scanRecord(tx.QueryRowContext(ctx, query,
		address,
		enc.whois,
		enc.dnsRecords,
		enc.nameservers,
		enc.sslInfo,
		enc.httpResponse,
		enc.geolocation,
		stamp,
		stamp,
	))
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert analysis: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit analysis: %w", err)
	}

	return record, created, nil
}

// ListAddresses returns every stored address in alphabetical order.
func (s *SQLiteDB) ListAddresses(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT address FROM domain_analyses ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	addresses := make([]string, 0)
	for rows.Next() {
		var address string
		if err := rows.Scan(&address); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, address)
	}

	return addresses, rows.Err()
}

// Count returns the number of stored analyses.
func (s *SQLiteDB) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM domain_analyses`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count analyses: %w", err)
	}
	return count, nil
}
