package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nao1215/domaindive/internal/model"
)

// PostgresDB stores analyses in PostgreSQL.
// Row-level locking of the upsert serializes conflicting writes for one address.
type PostgresDB struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres connects to the PostgreSQL database at url and creates the
// schema when missing. Only the Clock field of opts is used.
func OpenPostgres(ctx context.Context, url string, opts Options) (*PostgresDB, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	pdb := &PostgresDB{pool: pool, now: now}
	if err := pdb.createTables(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return pdb, nil
}

// Close releases every pooled connection.
func (p *PostgresDB) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresDB) createTables(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS domain_analyses (
		id BIGSERIAL PRIMARY KEY,
		address TEXT NOT NULL UNIQUE,
		whois_data TEXT,
		dns_records TEXT NOT NULL,
		nameservers TEXT NOT NULL,
		ssl_info TEXT NOT NULL,
		http_response TEXT NOT NULL,
		geolocation TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_analyses_updated_at ON domain_analyses(updated_at)`)
	return err
}

// GetByAddress returns the analysis stored for address, or ErrNotFound.
func (p *PostgresDB) GetByAddress(ctx context.Context, address string) (*model.AnalysisRecord, error) {
	record, err := scanRecord(p.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM domain_analyses WHERE address = $1`, address))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return record, nil
}

// Insert stores a new analysis for address, or returns ErrDuplicateAddress.
func (p *PostgresDB) Insert(ctx context.Context, address string, payload *model.Payload) (*model.AnalysisRecord, error) {
	enc, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}
	stamp := formatTimestamp(p.now())

	record, err := scanRecord(p.pool.QueryRow(ctx, `
	INSERT INTO domain_analyses
		(address, whois_data, dns_records, nameservers, ssl_info, http_response, geolocation, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	ON CONFLICT (address) DO NOTHING
	RETURNING `+recordColumns,
		address, enc.whois, enc.dnsRecords, enc.nameservers, enc.sslInfo, enc.httpResponse, enc.geolocation, stamp,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDuplicateAddress
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert analysis: %w", err)
	}
	return record, nil
}

// UpdateByAddress replaces the payload of the analysis for address, or
// returns ErrNotFound.
func (p *PostgresDB) UpdateByAddress(ctx context.Context, address string, payload *model.Payload) (*model.AnalysisRecord, error) {
	enc, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}

	record, err := scanRecord(p.pool.QueryRow(ctx, `
	UPDATE domain_analyses SET
		whois_data = $2,
		dns_records = $3,
		nameservers = $4,
		ssl_info = $5,
		http_response = $6,
		geolocation = $7,
		updated_at = GREATEST(updated_at, $8)
	WHERE address = $1
	RETURNING `+recordColumns,
		address, enc.whois, enc.dnsRecords, enc.nameservers, enc.sslInfo, enc.httpResponse, enc.geolocation,
		formatTimestamp(p.now()),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update analysis: %w", err)
	}
	return record, nil
}

// Upsert inserts or updates the analysis for address in one statement.
// The returned bool is true when a new row was created.
func (p *PostgresDB) Upsert(ctx context.Context, address string, payload *model.Payload) (*model.AnalysisRecord, bool, error) {
	enc, err := encodePayload(payload)
	if err != nil {
		return nil, false, err
	}
	stamp := formatTimestamp(p.now())

	var created bool
	record, err := scanRecord(p.pool.QueryRow(ctx, `
	INSERT INTO domain_analyses
		(address, whois_data, dns_records, nameservers, ssl_info, http_response, geolocation, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	ON CONFLICT (address) DO UPDATE SET
		whois_data = EXCLUDED.whois_data,
		dns_records = EXCLUDED.dns_records,
		nameservers = EXCLUDED.nameservers,
		ssl_info = EXCLUDED.ssl_info,
		http_response = EXCLUDED.http_response,
		geolocation = EXCLUDED.geolocation,
		updated_at = GREATEST(domain_analyses.updated_at, EXCLUDED.updated_at)
	RETURNING `+recordColumns+`, (xmax = 0) AS inserted`,
		address, enc.whois, enc.dnsRecords, enc.nameservers, enc.sslInfo, enc.httpResponse, enc.geolocation, stamp,
	), &created)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert analysis: %w", err)
	}
	return record, created, nil
}

// ListAddresses returns every stored address in alphabetical order.
func (p *PostgresDB) ListAddresses(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT address FROM domain_analyses ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	addresses, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan address: %w", err)
	}
	if addresses == nil {
		addresses = make([]string, 0)
	}
	return addresses, nil
}
