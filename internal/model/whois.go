package model

import (
	"regexp"
	"strings"
)

// WhoisInfo contains the commonly displayed fields of a WHOIS response.
// Empty strings mean the field was not found.
type WhoisInfo struct {
	Registrar   string   `json:"registrar,omitempty"`
	CreatedDate string   `json:"created_date,omitempty"`
	ExpiryDate  string   `json:"expiry_date,omitempty"`
	UpdatedDate string   `json:"updated_date,omitempty"`
	Status      string   `json:"status,omitempty"`
	NameServers []string `json:"name_servers"`
}

// whoisFields lists the label patterns tried for each field, in priority
// order. Registries disagree on naming, so the first label that matches wins.
var whoisFields = struct {
	registrar, created, expiry, updated []*regexp.Regexp
}{
	registrar: whoisLabels("Registrar:", "Registrar Name:"),
	created:   whoisLabels("Creation Date:", "Created Date:"),
	expiry:    whoisLabels("Registry Expiry Date:", "Expiration Date:", "Expiry Date:"),
	updated:   whoisLabels("Updated Date:", "Last Updated:"),
}

// whoisLabels compiles a case-insensitive "label value" pattern per label.
func whoisLabels(labels ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(labels))
	for i, label := range labels {
		patterns[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `\s*(.+)`)
	}
	return patterns
}

var (
	whoisStatusPattern     = regexp.MustCompile(`(?i)Domain Status:\s*(.+)`)
	whoisNameServerPattern = regexp.MustCompile(`(?i)Name Server:\s*(.+)`)
)

// ParseWhois extracts WhoisInfo from raw WHOIS text.
// Missing or empty input yields an info with no fields set and an empty
// name server list.
func ParseWhois(raw string) WhoisInfo {
	info := WhoisInfo{NameServers: make([]string, 0)}
	if raw == "" {
		return info
	}

	info.Registrar = extractWhoisField(raw, whoisFields.registrar)
	info.CreatedDate = extractWhoisField(raw, whoisFields.created)
	info.ExpiryDate = extractWhoisField(raw, whoisFields.expiry)
	info.UpdatedDate = extractWhoisField(raw, whoisFields.updated)

	statuses := make([]string, 0)
	for _, m := range whoisStatusPattern.FindAllStringSubmatch(raw, -1) {
		statuses = append(statuses, strings.TrimSpace(m[1]))
	}
	info.Status = strings.Join(statuses, ", ")

	seen := make(map[string]bool)
	for _, m := range whoisNameServerPattern.FindAllStringSubmatch(raw, -1) {
		ns := strings.ToLower(strings.TrimSpace(m[1]))
		if ns == "" || seen[ns] {
			continue
		}
		seen[ns] = true
		info.NameServers = append(info.NameServers, ns)
	}

	return info
}

// extractWhoisField returns the value captured by the first pattern that
// matches raw.
func extractWhoisField(raw string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(raw); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
