package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/nao1215/domaindive/internal/analysis"
	"github.com/nao1215/domaindive/internal/domain"
	"github.com/nao1215/domaindive/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections without data are shown.
	showEmpty bool

	// verbose adds the raw WHOIS text and every HTTP header.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the analysis in human-readable format.
func (w *SimpleWriter) Write(result *analysis.Result) (int, error) {
	var sb strings.Builder
	record := result.Record

	w.writeHeader(&sb, result)
	w.writeWhois(&sb, record)
	w.writeDNS(&sb, record.DNSRecords)
	w.writeNameservers(&sb, record.Nameservers)
	w.writeSSL(&sb, record.SSLInfo)
	w.writeHTTP(&sb, record.HTTPResponse)
	w.writeGeolocation(&sb, record.Geolocation)
	w.writeFailures(&sb, result.Failures)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteList outputs one address per line.
func (w *SimpleWriter) WriteList(addresses []string) (int, error) {
	var sb strings.Builder
	for _, address := range addresses {
		sb.WriteString(address)
		sb.WriteString("\n")
	}
	if len(addresses) == 0 && w.showEmpty {
		sb.WriteString("No analyses stored\n")
	}
	return w.output.Write([]byte(sb.String()))
}

// writeSection writes a section title between rules.
func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with record bookkeeping.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *analysis.Result) {
	record := result.Record

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        DOMAINDIVE REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Domain:         %s\n", record.Address)
	if registered := domain.RegisteredDomain(record.Address); registered != record.Address {
		fmt.Fprintf(sb, "Registered:     %s\n", registered)
	}
	fmt.Fprintf(sb, "Record ID:      %d\n", record.ID)
	fmt.Fprintf(sb, "Created:        %s\n", formatTime(record.CreatedAt))
	fmt.Fprintf(sb, "Updated:        %s\n", formatTime(record.UpdatedAt))
	fmt.Fprintf(sb, "Cache Status:   %s\n", statusLabel(result.CacheStatus))
	fmt.Fprintf(sb, "Next Refresh:   %s\n", refreshLabel(result.SecondsUntilRefresh))
	sb.WriteString("\n")
}

// writeWhois writes the parsed WHOIS fields.
func (w *SimpleWriter) writeWhois(sb *strings.Builder, record *model.AnalysisRecord) {
	if record.WhoisRaw == nil && !w.showEmpty {
		return
	}

	writeSection(sb, "WHOIS")

	if record.WhoisRaw == nil {
		sb.WriteString("  No WHOIS data\n\n")
		return
	}

	info := record.WhoisInfo()
	fmt.Fprintf(sb, "  Registrar:    %s\n", orDash(info.Registrar))
	fmt.Fprintf(sb, "  Created:      %s\n", orDash(info.CreatedDate))
	fmt.Fprintf(sb, "  Expires:      %s\n", orDash(info.ExpiryDate))
	fmt.Fprintf(sb, "  Updated:      %s\n", orDash(info.UpdatedDate))
	fmt.Fprintf(sb, "  Status:       %s\n", orDash(info.Status))
	for _, ns := range info.NameServers {
		fmt.Fprintf(sb, "  Name Server:  %s\n", ns)
	}

	if w.verbose {
		sb.WriteString("\n")
		for line := range strings.SplitSeq(strings.TrimSpace(*record.WhoisRaw), "\n") {
			fmt.Fprintf(sb, "    %s\n", strings.TrimRight(line, "\r"))
		}
	}
	sb.WriteString("\n")
}

// writeDNS writes every DNS record with its TTL.
func (w *SimpleWriter) writeDNS(sb *strings.Builder, records model.DNSRecords) {
	rows := dnsRows(records)
	if len(rows) == 0 && !w.showEmpty {
		return
	}

	writeSection(sb, "DNS RECORDS")

	if len(rows) == 0 {
		sb.WriteString("  No DNS records\n\n")
		return
	}

	for _, r := range rows {
		fmt.Fprintf(sb, "  %-6s %-48s ttl=%s\n", r.kind, r.value, r.ttl)
	}
	sb.WriteString("\n")
}

// writeNameservers writes the authoritative name servers.
func (w *SimpleWriter) writeNameservers(sb *strings.Builder, nameservers []model.Nameserver) {
	if len(nameservers) == 0 && !w.showEmpty {
		return
	}

	writeSection(sb, "NAMESERVERS")

	if len(nameservers) == 0 {
		sb.WriteString("  No nameservers\n\n")
		return
	}

	for _, ns := range nameservers {
		fmt.Fprintf(sb, "  [+] %-40s %s\n", ns.Hostname, nameserverIP(ns))
	}
	sb.WriteString("\n")
}

// writeSSL writes the certificate summary.
func (w *SimpleWriter) writeSSL(sb *strings.Builder, info model.SSLInfo) {
	if !info.Available && !w.showEmpty {
		return
	}

	writeSection(sb, "SSL CERTIFICATE")

	if !info.Available {
		sb.WriteString("  No certificate available\n\n")
		return
	}

	fmt.Fprintf(sb, "  Subject:      %s\n", info.Subject)
	fmt.Fprintf(sb, "  Issuer:       %s\n", info.Issuer)
	fmt.Fprintf(sb, "  Valid From:   %s\n", orDash(info.ValidFrom))
	fmt.Fprintf(sb, "  Valid To:     %s\n", orDash(info.ValidTo))
	if len(info.SAN) > 0 {
		fmt.Fprintf(sb, "  SAN:          %s\n", strings.Join(info.SAN, ", "))
	}
	sb.WriteString("\n")
}

// writeHTTP writes the HEAD probe status and selected headers.
func (w *SimpleWriter) writeHTTP(sb *strings.Builder, resp model.HTTPResponse) {
	if resp.IsEmpty() && !w.showEmpty {
		return
	}

	writeSection(sb, "HTTP RESPONSE")

	if resp.IsEmpty() {
		sb.WriteString("  No HTTP response\n\n")
		return
	}

	fmt.Fprintf(sb, "  Status:       %d\n", resp.Status)

	keys := make([]string, 0, len(resp.Headers))
	for k := range resp.Headers {
		if w.verbose || k == "server" || k == "location" || k == "content-type" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(sb, "  %s: %s\n", k, resp.Headers[k])
	}
	sb.WriteString("\n")
}

// writeGeolocation writes the location of the first A record.
func (w *SimpleWriter) writeGeolocation(sb *strings.Builder, geo model.Geolocation) {
	if geo.IsEmpty() && !w.showEmpty {
		return
	}

	writeSection(sb, "GEOLOCATION")

	if geo.IsEmpty() {
		sb.WriteString("  No geolocation\n\n")
		return
	}

	fmt.Fprintf(sb, "  IP:           %s\n", orDash(geo.IP))
	fmt.Fprintf(sb, "  Country:      %s\n", orDash(geo.Country))
	fmt.Fprintf(sb, "  Region:       %s\n", orDash(geo.Region))
	fmt.Fprintf(sb, "  City:         %s\n", orDash(geo.City))
	if c := coordinates(geo); c != "" {
		fmt.Fprintf(sb, "  Coordinates:  %s\n", c)
	}
	fmt.Fprintf(sb, "  ISP:          %s\n", orDash(geo.ISP))
	if w.verbose {
		fmt.Fprintf(sb, "  Org:          %s\n", orDash(geo.Org))
		fmt.Fprintf(sb, "  AS:           %s\n", orDash(geo.AS))
		fmt.Fprintf(sb, "  Timezone:     %s\n", orDash(geo.Timezone))
	}
	sb.WriteString("\n")
}

// writeFailures lists the probes that failed during this run.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, failures map[string]string) {
	if len(failures) == 0 {
		return
	}

	writeSection(sb, "PROBE FAILURES")

	names := make([]string, 0, len(failures))
	for name := range failures {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(sb, "  [!] %s: %s\n", name, failures[name])
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
