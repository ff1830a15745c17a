package report

import (
	"io"
	"strconv"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/domaindive/internal/analysis"
	"github.com/nao1215/domaindive/internal/model"
)

// Writer defines the interface for report output.
// Implementations write analysis results in various formats.
type Writer interface {
	// Write outputs one analysis result.
	// Returns the number of bytes written and any error encountered.
	Write(result *analysis.Result) (int, error)

	// WriteList outputs the addresses known to the store.
	WriteList(addresses []string) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the result to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(result *analysis.Result) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteList outputs the address list to all configured Writers.
func (m *MultiWriter) WriteList(addresses []string) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteList(addresses)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// timeLayout is used for every timestamp shown to humans.
const timeLayout = "2006-01-02 15:04:05 MST"

var titleCaser = cases.Title(language.English)

// statusLabel renders a cache status for display, e.g. "Cached".
func statusLabel(status model.CacheStatus) string {
	return titleCaser.String(status.String())
}

// refreshLabel renders SecondsUntilRefresh for display.
func refreshLabel(seconds int64) string {
	if seconds <= 0 {
		return "now"
	}
	return (time.Duration(seconds) * time.Second).String()
}

// formatTime renders t in UTC, or "-" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}

// orDash returns s, or "-" when s is empty.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// dnsRow is one DNS record flattened for display.
type dnsRow struct {
	kind  string
	value string
	ttl   string
}

// dnsRows flattens records in A, AAAA, MX, TXT, CNAME order. MX values
// carry their priority.
func dnsRows(records model.DNSRecords) []dnsRow {
	groups := []struct {
		kind    string
		records []model.DNSRecord
	}{
		{"A", records.A},
		{"AAAA", records.AAAA},
		{"MX", records.MX},
		{"TXT", records.TXT},
		{"CNAME", records.CNAME},
	}

	rows := make([]dnsRow, 0, records.Total())
	for _, g := range groups {
		for _, r := range g.records {
			value := r.Value
			if r.Priority != nil {
				value = strconv.Itoa(*r.Priority) + " " + value
			}
			rows = append(rows, dnsRow{kind: g.kind, value: value, ttl: strconv.Itoa(r.TTL)})
		}
	}
	return rows
}

// nameserverIP returns the resolved address of ns or "-".
func nameserverIP(ns model.Nameserver) string {
	if ns.IPAddress == nil {
		return "-"
	}
	return *ns.IPAddress
}

// coordinates renders the latitude and longitude of g, or "" when unknown.
func coordinates(g model.Geolocation) string {
	if g.Lat == nil || g.Lon == nil {
		return ""
	}
	return strconv.FormatFloat(*g.Lat, 'f', 4, 64) + ", " + strconv.FormatFloat(*g.Lon, 'f', 4, 64)
}
