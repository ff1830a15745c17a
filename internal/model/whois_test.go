package model

import (
	"encoding/json"
	"strings"
	"testing"
)

const sampleWhois = "   Domain Name: EXAMPLE.COM\r\n" +
	"   Registry Domain ID: 2336799_DOMAIN_COM-VRSN\r\n" +
	"   Registrar WHOIS Server: whois.iana.org\r\n" +
	"   Updated Date: 2024-08-14T07:01:34Z\r\n" +
	"   Creation Date: 1995-08-14T04:00:00Z\r\n" +
	"   Registry Expiry Date: 2025-08-13T04:00:00Z\r\n" +
	"   Registrar: RESERVED-Internet Assigned Numbers Authority\r\n" +
	"   Domain Status: clientDeleteProhibited https://icann.org/epp#clientDeleteProhibited\r\n" +
	"   Domain Status: clientTransferProhibited https://icann.org/epp#clientTransferProhibited\r\n" +
	"   Name Server: A.IANA-SERVERS.NET\r\n" +
	"   Name Server: B.IANA-SERVERS.NET\r\n" +
	"   Name Server: a.iana-servers.net\r\n"

// TestParseWhois tests extraction of display fields from raw WHOIS text.
func TestParseWhois(t *testing.T) {
	t.Parallel()

	t.Run("extracts fields from a registry response", func(t *testing.T) {
		t.Parallel()

		info := ParseWhois(sampleWhois)

		if info.Registrar != "RESERVED-Internet Assigned Numbers Authority" {
			t.Errorf("unexpected registrar %q", info.Registrar)
		}
		if info.CreatedDate != "1995-08-14T04:00:00Z" {
			t.Errorf("unexpected created date %q", info.CreatedDate)
		}
		if info.ExpiryDate != "2025-08-13T04:00:00Z" {
			t.Errorf("unexpected expiry date %q", info.ExpiryDate)
		}
		if info.UpdatedDate != "2024-08-14T07:01:34Z" {
			t.Errorf("unexpected updated date %q", info.UpdatedDate)
		}
		if !strings.HasPrefix(info.Status, "clientDeleteProhibited") || !strings.Contains(info.Status, ", clientTransferProhibited") {
			t.Errorf("unexpected status %q", info.Status)
		}
	})

	t.Run("deduplicates name servers case-insensitively", func(t *testing.T) {
		t.Parallel()

		info := ParseWhois(sampleWhois)

		want := []string{"a.iana-servers.net", "b.iana-servers.net"}
		if len(info.NameServers) != len(want) {
			t.Fatalf("expected %d name servers, got %v", len(want), info.NameServers)
		}
		for i := range want {
			if info.NameServers[i] != want[i] {
				t.Errorf("name server %d: expected %q, got %q", i, want[i], info.NameServers[i])
			}
		}
	})

	t.Run("falls back to alternative labels", func(t *testing.T) {
		t.Parallel()

		info := ParseWhois("Registrar Name: Example Registrar\nExpiration Date: 2030-01-01\nLast Updated: 2020-01-01\n")

		if info.Registrar != "Example Registrar" {
			t.Errorf("unexpected registrar %q", info.Registrar)
		}
		if info.ExpiryDate != "2030-01-01" {
			t.Errorf("unexpected expiry date %q", info.ExpiryDate)
		}
		if info.UpdatedDate != "2020-01-01" {
			t.Errorf("unexpected updated date %q", info.UpdatedDate)
		}
	})

	t.Run("empty input yields empty info", func(t *testing.T) {
		t.Parallel()

		info := ParseWhois("")

		if info.Registrar != "" || info.Status != "" || info.CreatedDate != "" {
			t.Errorf("expected empty info, got %+v", info)
		}
		if info.NameServers == nil || len(info.NameServers) != 0 {
			t.Errorf("expected empty non-nil name servers, got %v", info.NameServers)
		}
	})
}

// TestPayloadJSON tests the JSON shape of empty payload fields.
func TestPayloadJSON(t *testing.T) {
	t.Parallel()

	t.Run("empty DNS records encode as five arrays", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(NewDNSRecords())
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		want := `{"a":[],"aaaa":[],"mx":[],"txt":[],"cname":[]}`
		if string(data) != want {
			t.Errorf("expected %s, got %s", want, data)
		}
	})

	t.Run("unavailable SSL info has no other fields", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(SSLInfo{})
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if string(data) != `{"available":false}` {
			t.Errorf("unexpected encoding %s", data)
		}
	})

	t.Run("empty HTTP response and geolocation encode as empty objects", func(t *testing.T) {
		t.Parallel()

		for _, v := range []any{HTTPResponse{}, Geolocation{}} {
			data, err := json.Marshal(v)
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}
			if string(data) != `{}` {
				t.Errorf("expected {}, got %s", data)
			}
		}
	})

	t.Run("nameserver without address keeps a null ip_address", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(Nameserver{Hostname: "ns1.example.com"})
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if string(data) != `{"hostname":"ns1.example.com","ip_address":null}` {
			t.Errorf("unexpected encoding %s", data)
		}
	})

	t.Run("MX priority is only present when set", func(t *testing.T) {
		t.Parallel()

		prio := 10
		data, err := json.Marshal([]DNSRecord{{Value: "mx.example.com", Priority: &prio}, {Value: "1.2.3.4", TTL: 300}})
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		want := `[{"value":"mx.example.com","ttl":0,"priority":10},{"value":"1.2.3.4","ttl":300}]`
		if string(data) != want {
			t.Errorf("expected %s, got %s", want, data)
		}
	})
}

// TestDNSRecordsHelpers tests FirstA and Total.
func TestDNSRecordsHelpers(t *testing.T) {
	t.Parallel()

	records := NewDNSRecords()
	if _, ok := records.FirstA(); ok {
		t.Error("expected no A record on empty records")
	}

	records.A = append(records.A, DNSRecord{Value: "93.184.215.14"}, DNSRecord{Value: "93.184.215.15"})
	records.MX = append(records.MX, DNSRecord{Value: "mx.example.com"})

	ip, ok := records.FirstA()
	if !ok || ip != "93.184.215.14" {
		t.Errorf("expected first A record 93.184.215.14, got %q (ok=%v)", ip, ok)
	}
	if records.Total() != 3 {
		t.Errorf("expected 3 records, got %d", records.Total())
	}
}

// TestAnalysisRecordWhois tests the WHOIS accessors on a record.
func TestAnalysisRecordWhois(t *testing.T) {
	t.Parallel()

	record := &AnalysisRecord{Address: "example.com", Payload: *NewPayload()}
	if record.Whois() != "" {
		t.Errorf("expected empty WHOIS text, got %q", record.Whois())
	}

	raw := sampleWhois
	record.WhoisRaw = &raw
	if got := record.WhoisInfo().Registrar; got != "RESERVED-Internet Assigned Numbers Authority" {
		t.Errorf("unexpected registrar %q", got)
	}
}
