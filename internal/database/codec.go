package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nao1215/domaindive/internal/model"
)

// timestampLayout is the storage layout for created_at and updated_at.
// It is fixed width with nanosecond precision, so text comparison orders
// timestamps correctly and two writes in the same second stay distinct.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// recordColumns is the column list shared by every SELECT and RETURNING.
const recordColumns = `id, address, whois_data, dns_records, nameservers, ssl_info, http_response, geolocation, created_at, updated_at`

// formatTimestamp converts t to the storage layout in UTC.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the layouts accepted when reading timestamps.
// Rows written by this package use timestampLayout; the others cover
// CURRENT_TIMESTAMP defaults and manual edits.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time, which the freshness
// policy treats as "never updated".
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// encodedPayload is a payload serialized for storage.
type encodedPayload struct {
	whois        sql.NullString
	dnsRecords   string
	nameservers  string
	sslInfo      string
	httpResponse string
	geolocation  string
}

// encodePayload serializes every structured field of p to JSON.
func encodePayload(p *model.Payload) (encodedPayload, error) {
	var enc encodedPayload
	if p.WhoisRaw != nil {
		enc.whois = sql.NullString{String: *p.WhoisRaw, Valid: true}
	}

	dnsRecords := p.DNSRecords
	if dnsRecords.A == nil && dnsRecords.AAAA == nil && dnsRecords.MX == nil &&
		dnsRecords.TXT == nil && dnsRecords.CNAME == nil {
		dnsRecords = model.NewDNSRecords()
	}
	nameservers := p.Nameservers
	if nameservers == nil {
		nameservers = make([]model.Nameserver, 0)
	}

	fields := []struct {
		name  string
		value any
		dst   *string
	}{
		{"dns_records", dnsRecords, &enc.dnsRecords},
		{"nameservers", nameservers, &enc.nameservers},
		{"ssl_info", p.SSLInfo, &enc.sslInfo},
		{"http_response", p.HTTPResponse, &enc.httpResponse},
		{"geolocation", p.Geolocation, &enc.geolocation},
	}
	for _, f := range fields {
		data, err := json.Marshal(f.value)
		if err != nil {
			return encodedPayload{}, fmt.Errorf("failed to serialize %s: %w", f.name, err)
		}
		*f.dst = string(data)
	}

	return enc, nil
}

// rowScanner is satisfied by *sql.Row, *sql.Rows and pgx.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row selected with recordColumns.
func scanRecord(row rowScanner, extra ...any) (*model.AnalysisRecord, error) {
	var (
		record    model.AnalysisRecord
		whois     sql.NullString
		enc       encodedPayload
		createdAt string
		updatedAt string
	)

	dest := []any{
		&record.ID,
		&record.Address,
		&whois,
		&enc.dnsRecords,
		&enc.nameservers,
		&enc.sslInfo,
		&enc.httpResponse,
		&enc.geolocation,
		&createdAt,
		&updatedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if whois.Valid {
		raw := whois.String
		record.WhoisRaw = &raw
	}

	record.DNSRecords = model.NewDNSRecords()
	fields := []struct {
		name string
		data string
		dst  any
	}{
		{"dns_records", enc.dnsRecords, &record.DNSRecords},
		{"nameservers", enc.nameservers, &record.Nameservers},
		{"ssl_info", enc.sslInfo, &record.SSLInfo},
		{"http_response", enc.httpResponse, &record.HTTPResponse},
		{"geolocation", enc.geolocation, &record.Geolocation},
	}
	for _, f := range fields {
		if f.data == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.data), f.dst); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", f.name, err)
		}
	}
	if record.Nameservers == nil {
		record.Nameservers = make([]model.Nameserver, 0)
	}

	record.CreatedAt = parseTimestamp(createdAt)
	record.UpdatedAt = parseTimestamp(updatedAt)

	return &record, nil
}
