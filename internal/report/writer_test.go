package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/domaindive/internal/analysis"
	"github.com/nao1215/domaindive/internal/model"
)

const testWhois = `Domain Name: WWW.EXAMPLE.CO.UK
Registrar: Example Registrar, Inc.
Creation Date: 1995-08-14T04:00:00Z
Registry Expiry Date: 2027-08-13T04:00:00Z
Domain Status: clientDeleteProhibited
Name Server: NS1.EXAMPLE.NET
`

// createTestResult creates a fully populated result for testing.
func createTestResult() *analysis.Result {
	whois := testWhois
	ip := "192.0.2.53"
	priority := 10
	lat, lon := 35.6895, 139.6917

	payload := model.NewPayload()
	payload.WhoisRaw = &whois
	payload.DNSRecords.A = []model.DNSRecord{{Value: "192.0.2.1", TTL: 300}}
	payload.DNSRecords.MX = []model.DNSRecord{{Value: "mail.example.co.uk", Priority: &priority}}
	payload.DNSRecords.TXT = []model.DNSRecord{{Value: "v=spf1 -all"}}
	payload.Nameservers = []model.Nameserver{{Hostname: "ns1.example.net", IPAddress: &ip}, {Hostname: "ns2.example.net"}}
	payload.SSLInfo = model.SSLInfo{
		Available: true,
		Subject:   "www.example.co.uk",
		Issuer:    "Test CA",
		ValidFrom: "2026-01-01T00:00:00Z",
		ValidTo:   "2027-01-01T00:00:00Z",
		SAN:       []string{"www.example.co.uk", "example.co.uk"},
	}
	payload.HTTPResponse = model.HTTPResponse{
		Status:  301,
		Headers: map[string]string{"server": "nginx", "location": "https://example.co.uk/", "x-trace": "abc"},
	}
	payload.Geolocation = model.Geolocation{
		IP: "192.0.2.1", Country: "Japan", City: "Tokyo", Lat: &lat, Lon: &lon, ISP: "Example ISP", AS: "AS64500",
	}

	created := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	return &analysis.Result{
		Record: &model.AnalysisRecord{
			ID:        7,
			Address:   "www.example.co.uk",
			Payload:   *payload,
			CreatedAt: created,
			UpdatedAt: created.Add(time.Minute),
		},
		CacheStatus:         model.CacheStatusCached,
		SecondsUntilRefresh: 240,
	}
}

// createEmptyResult creates a result where every probe failed.
func createEmptyResult() *analysis.Result {
	return &analysis.Result{
		Record: &model.AnalysisRecord{
			ID:        1,
			Address:   "example.com",
			Payload:   *model.NewPayload(),
			CreatedAt: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
			UpdatedAt: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
		},
		CacheStatus:         model.CacheStatusFresh,
		SecondsUntilRefresh: 300,
		Failures:            map[string]string{"whois": "connection refused", "dns": "SERVFAIL"},
	}
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header with bookkeeping", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"DOMAINDIVE REPORT",
			"Domain:         www.example.co.uk",
			"Registered:     example.co.uk",
			"Record ID:      7",
			"Cache Status:   Cached",
			"Next Refresh:   4m0s",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("writes probe sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"Registrar:    Example Registrar, Inc.",
			"MX     10 mail.example.co.uk",
			"ttl=300",
			"ns1.example.net",
			"Issuer:       Test CA",
			"Status:       301",
			"location: https://example.co.uk/",
			"Country:      Japan",
			"Coordinates:  35.6895, 139.6917",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "x-trace") {
			t.Error("expected uncommon headers to be hidden without verbose")
		}
		if strings.Contains(output, "PROBE FAILURES") {
			t.Error("expected no failure section")
		}
	})

	t.Run("verbose shows raw whois and every header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "    Domain Name: WWW.EXAMPLE.CO.UK") {
			t.Error("expected raw WHOIS text")
		}
		if !strings.Contains(output, "x-trace: abc") {
			t.Error("expected every header")
		}
		if !strings.Contains(output, "AS:           AS64500") {
			t.Error("expected AS number")
		}
	})

	t.Run("hides empty sections by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createEmptyResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, section := range []string{"WHOIS\n", "DNS RECORDS", "SSL CERTIFICATE", "GEOLOCATION"} {
			if strings.Contains(output, section) {
				t.Errorf("expected %q to be hidden", section)
			}
		}
		if !strings.Contains(output, "[!] dns: SERVFAIL") || !strings.Contains(output, "[!] whois: connection refused") {
			t.Error("expected probe failures to be listed")
		}
		if strings.Index(output, "[!] dns") > strings.Index(output, "[!] whois") {
			t.Error("expected failures sorted by name")
		}
	})

	t.Run("shows empty sections when configured", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithShowEmpty(true)).Write(createEmptyResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"No WHOIS data", "No DNS records", "No nameservers", "No certificate available", "No HTTP response", "No geolocation"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("writes address list", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).WriteList([]string{"a.example", "b.example"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "a.example\nb.example\n" || n != buf.Len() {
			t.Errorf("unexpected list output %q (%d bytes)", buf.String(), n)
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes result keys and derived fields", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithVersion("v1.2.3")).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}

		if decoded["version"] != "v1.2.3" {
			t.Errorf("unexpected version %v", decoded["version"])
		}
		if decoded["cache_status"] != "cached" {
			t.Errorf("unexpected cache_status %v", decoded["cache_status"])
		}
		if decoded["seconds_until_refresh"] != float64(240) {
			t.Errorf("unexpected seconds_until_refresh %v", decoded["seconds_until_refresh"])
		}
		if decoded["registered_domain"] != "example.co.uk" {
			t.Errorf("unexpected registered_domain %v", decoded["registered_domain"])
		}
		if _, ok := decoded["probe_failures"]; ok {
			t.Error("expected probe_failures to be omitted")
		}

		record, ok := decoded["analysis"].(map[string]any)
		if !ok {
			t.Fatalf("expected analysis object, got %T", decoded["analysis"])
		}
		for _, key := range []string{"id", "address", "whois_data", "dns_records", "nameservers", "ssl_info", "http_response", "geolocation", "created_at", "updated_at"} {
			if _, ok := record[key]; !ok {
				t.Errorf("expected analysis.%s", key)
			}
		}

		whois, ok := decoded["whois"].(map[string]any)
		if !ok || whois["registrar"] != "Example Registrar, Inc." {
			t.Errorf("unexpected whois %v", decoded["whois"])
		}
	})

	t.Run("absent whois is null and empty categories are arrays", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createEmptyResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{`"whois_data":null`, `"a":[]`, `"nameservers":[]`, `"probe_failures":{`} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %s", want)
			}
		}
		if strings.Contains(output, `"version"`) {
			t.Error("expected version to be omitted")
		}
	})

	t.Run("pretty print indents", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"cache_status\"") {
			t.Error("expected indented output")
		}
		if !strings.HasSuffix(buf.String(), "}\n") {
			t.Error("expected trailing newline")
		}
	})

	t.Run("empty list is an array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteList(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "{\"addresses\":[]}\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewMarkdownWriter(&buf).Write(createTestResult())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n == 0 {
			t.Error("expected non-zero byte count")
		}

		output := buf.String()
		for _, want := range []string{
			"# Domain Analysis: www.example.co.uk",
			"## WHOIS",
			"## DNS Records",
			"```mermaid",
			"pie",
			"## Nameservers",
			"## SSL Certificate",
			"### Subject Alternative Names",
			"## HTTP Response",
			"## Geolocation",
			"[!TIP]",
			"Example Registrar, Inc.",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("warns about failures", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createEmptyResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[!WARNING]") || !strings.Contains(output, "dns, whois") {
			t.Error("expected a warning listing failed probes")
		}
		if !strings.Contains(output, "No WHOIS data.") || !strings.Contains(output, "No DNS records.") {
			t.Error("expected empty sections to be explained")
		}
		if strings.Contains(output, "```mermaid") {
			t.Error("expected no chart without records")
		}
	})

	t.Run("writes address list", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteList([]string{"example.com"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "- `example.com`") {
			t.Errorf("unexpected output %q", buf.String())
		}
	})
}

// failingWriter is a Writer that always fails.
type failingWriter struct{}

func (failingWriter) Write(_ *analysis.Result) (int, error) { return 0, errors.New("disk full") }

func (failingWriter) WriteList(_ []string) (int, error) { return 0, errors.New("disk full") }

// TestMultiWriter tests fan-out to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to every writer", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		m := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

		n, err := m.Write(createTestResult())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("expected %d bytes, got %d", text.Len()+js.Len(), n)
		}
		if text.Len() == 0 || js.Len() == 0 {
			t.Error("expected both writers to receive output")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		m := NewMultiWriter(failingWriter{}, NewSimpleWriter(&after))

		if _, err := m.WriteList([]string{"example.com"}); err == nil {
			t.Fatal("expected error")
		}
		if after.Len() != 0 {
			t.Error("expected later writers to be skipped")
		}
	})
}
