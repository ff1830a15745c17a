package report

import (
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/domaindive/internal/analysis"
	"github.com/nao1215/domaindive/internal/domain"
	"github.com/nao1215/domaindive/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for documentation and
// sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the analysis in Markdown format.
func (w *MarkdownWriter) Write(result *analysis.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)
	record := result.Record

	w.writeHeader(md, result)
	w.writeFailures(md, result.Failures)
	w.writeWhois(md, record)
	w.writeDNS(md, record.DNSRecords)
	w.writeNameservers(md, record.Nameservers)
	w.writeSSL(md, record.SSLInfo)
	w.writeHTTP(md, record.HTTPResponse)
	w.writeGeolocation(md, record.Geolocation)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteList outputs the stored addresses as a bullet list.
func (w *MarkdownWriter) WriteList(addresses []string) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Stored Analyses")
	md.PlainText("")

	if len(addresses) == 0 {
		md.PlainText("No analyses stored.")
	} else {
		items := make([]string, len(addresses))
		for i, a := range addresses {
			items[i] = "`" + a + "`"
		}
		md.BulletList(items...)
	}
	md.PlainText("")

	return len(md.String()), md.Build()
}

// writeHeader writes the title and bookkeeping table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *analysis.Result) {
	record := result.Record

	md.H1f("Domain Analysis: %s", record.Address)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Domain", "`" + record.Address + "`"},
			{"Registered Domain", "`" + domain.RegisteredDomain(record.Address) + "`"},
			{"Record ID", strconv.FormatInt(record.ID, 10)},
			{"Created", formatTime(record.CreatedAt)},
			{"Updated", formatTime(record.UpdatedAt)},
			{"Cache Status", statusLabel(result.CacheStatus)},
			{"Next Refresh", refreshLabel(result.SecondsUntilRefresh)},
		},
	})
	md.PlainText("")

	if result.CacheStatus == model.CacheStatusCached {
		md.Tipf("Served from cache. A new analysis runs in %s.", refreshLabel(result.SecondsUntilRefresh))
		md.PlainText("")
	}
}

// writeFailures warns about probes that failed during this run.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, failures map[string]string) {
	if len(failures) == 0 {
		return
	}

	names := make([]string, 0, len(failures))
	for name := range failures {
		names = append(names, name)
	}
	slices.Sort(names)

	md.Warningf("%d probe(s) failed; their fields are empty: %s", len(names), strings.Join(names, ", "))
	md.PlainText("")
}

// writeWhois writes the parsed WHOIS fields and the raw text.
func (w *MarkdownWriter) writeWhois(md *markdown.Markdown, record *model.AnalysisRecord) {
	md.H2("WHOIS")
	md.PlainText("")

	if record.WhoisRaw == nil {
		md.PlainText("No WHOIS data.")
		md.PlainText("")
		return
	}

	info := record.WhoisInfo()
	md.Table(markdown.TableSet{
		Header: []string{"Field", "Value"},
		Rows: [][]string{
			{"Registrar", orDash(info.Registrar)},
			{"Created", orDash(info.CreatedDate)},
			{"Expires", orDash(info.ExpiryDate)},
			{"Updated", orDash(info.UpdatedDate)},
			{"Status", orDash(info.Status)},
			{"Name Servers", orDash(strings.Join(info.NameServers, ", "))},
		},
	})
	md.PlainText("")
	md.Details("Raw WHOIS", "\n```text\n"+strings.TrimSpace(*record.WhoisRaw)+"\n```\n")
	md.PlainText("")
}

// writeDNS writes the DNS records table and a record type chart.
func (w *MarkdownWriter) writeDNS(md *markdown.Markdown, records model.DNSRecords) {
	md.H2("DNS Records")
	md.PlainText("")

	rows := dnsRows(records)
	if len(rows) == 0 {
		md.PlainText("No DNS records.")
		md.PlainText("")
		return
	}

	table := make([][]string, len(rows))
	for i, r := range rows {
		table[i] = []string{r.kind, "`" + truncateString(r.value, 80) + "`", r.ttl}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Type", "Value", "TTL"},
		Rows:   table,
	})
	md.PlainText("")

	w.writePieChart(md, records)
}

// writePieChart writes a mermaid pie chart of record types.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, records model.DNSRecords) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("DNS Record Types"),
		piechart.WithShowData(true),
	)

	counts := []struct {
		label string
		n     int
	}{
		{"A", len(records.A)},
		{"AAAA", len(records.AAAA)},
		{"MX", len(records.MX)},
		{"TXT", len(records.TXT)},
		{"CNAME", len(records.CNAME)},
	}
	for _, c := range counts {
		if c.n > 0 {
			chart.LabelAndIntValue(c.label, uint64(c.n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeNameservers writes the nameserver table.
func (w *MarkdownWriter) writeNameservers(md *markdown.Markdown, nameservers []model.Nameserver) {
	md.H2("Nameservers")
	md.PlainText("")

	if len(nameservers) == 0 {
		md.PlainText("No nameservers.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(nameservers))
	for i, ns := range nameservers {
		rows[i] = []string{ns.Hostname, nameserverIP(ns)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Hostname", "IPv4"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSSL writes the certificate summary.
func (w *MarkdownWriter) writeSSL(md *markdown.Markdown, info model.SSLInfo) {
	md.H2("SSL Certificate")
	md.PlainText("")

	if !info.Available {
		md.Note("No certificate could be retrieved on port 443.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Field", "Value"},
		Rows: [][]string{
			{"Subject", info.Subject},
			{"Issuer", info.Issuer},
			{"Valid From", orDash(info.ValidFrom)},
			{"Valid To", orDash(info.ValidTo)},
		},
	})
	md.PlainText("")

	if len(info.SAN) > 0 {
		md.H3("Subject Alternative Names")
		md.PlainText("")
		md.BulletList(info.SAN...)
		md.PlainText("")
	}
}

// writeHTTP writes the HEAD probe status and headers.
func (w *MarkdownWriter) writeHTTP(md *markdown.Markdown, resp model.HTTPResponse) {
	md.H2("HTTP Response")
	md.PlainText("")

	if resp.IsEmpty() {
		md.Note("Neither HTTPS nor HTTP answered with a success or redirect status.")
		md.PlainText("")
		return
	}

	md.PlainTextf("Status: **%d**", resp.Status)
	md.PlainText("")

	if len(resp.Headers) == 0 {
		return
	}

	keys := make([]string, 0, len(resp.Headers))
	for k := range resp.Headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{k, truncateString(resp.Headers[k], 80)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Header", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeGeolocation writes the location of the first A record.
func (w *MarkdownWriter) writeGeolocation(md *markdown.Markdown, geo model.Geolocation) {
	md.H2("Geolocation")
	md.PlainText("")

	if geo.IsEmpty() {
		md.PlainText("No geolocation.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Field", "Value"},
		Rows: [][]string{
			{"IP", orDash(geo.IP)},
			{"Country", orDash(geo.Country)},
			{"Region", orDash(geo.Region)},
			{"City", orDash(geo.City)},
			{"Coordinates", orDash(coordinates(geo))},
			{"Timezone", orDash(geo.Timezone)},
			{"ISP", orDash(geo.ISP)},
			{"Organization", orDash(geo.Org)},
			{"AS", orDash(geo.AS)},
		},
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by domaindive*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
