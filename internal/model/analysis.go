package model

import "time"

// CacheStatus tells the caller whether a record was served from the store
// without probing or was produced by a fresh analysis.
type CacheStatus string

const (
	// CacheStatusCached means the stored record was still inside its
	// freshness window and no probe was run.
	CacheStatusCached CacheStatus = "cached"

	// CacheStatusFresh means the probes were run during this request and the
	// record was inserted or updated.
	CacheStatusFresh CacheStatus = "fresh"
)

// String returns the status as used in reports.
func (s CacheStatus) String() string {
	return string(s)
}

// Payload holds everything the probes contribute to a record.
// A payload is always computed in full before it is written, so readers
// never observe a record with only some of these fields refreshed.
type Payload struct {
	// WhoisRaw is the raw WHOIS response. Nil when the WHOIS lookup failed.
	WhoisRaw *string `json:"whois_data"`

	// DNSRecords contains the A, AAAA, MX, TXT and CNAME records.
	DNSRecords DNSRecords `json:"dns_records"`

	// Nameservers lists the authoritative name servers of the domain.
	Nameservers []Nameserver `json:"nameservers"`

	// SSLInfo summarizes the certificate served on port 443.
	SSLInfo SSLInfo `json:"ssl_info"`

	// HTTPResponse holds the status and headers of the HEAD probe.
	HTTPResponse HTTPResponse `json:"http_response"`

	// Geolocation describes the first A record address.
	Geolocation Geolocation `json:"geolocation"`
}

// NewPayload returns a payload whose structured fields are empty but well
// formed: every DNS category and the nameserver list are non-nil.
func NewPayload() *Payload {
	return &Payload{
		DNSRecords:   NewDNSRecords(),
		Nameservers:  make([]Nameserver, 0),
		SSLInfo:      SSLInfo{Available: false},
		HTTPResponse: HTTPResponse{},
		Geolocation:  Geolocation{},
	}
}

// Whois returns the raw WHOIS text, or an empty string when it is absent.
func (p *Payload) Whois() string {
	if p.WhoisRaw == nil {
		return ""
	}
	return *p.WhoisRaw
}

// AnalysisRecord is the persisted analysis of one domain.
//
// ID and CreatedAt are assigned by the store on insert and never change.
// UpdatedAt is set on insert and on every refresh and never decreases for a
// given Address.
type AnalysisRecord struct {
	// ID is the store-assigned surrogate key.
	ID int64 `json:"id"`

	// Address is the normalized domain name. It is unique across records.
	Address string `json:"address"`

	Payload

	// CreatedAt is when the record was first inserted (UTC).
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the payload was last written (UTC).
	UpdatedAt time.Time `json:"updated_at"`
}

// WhoisInfo parses the raw WHOIS text of the record.
func (r *AnalysisRecord) WhoisInfo() WhoisInfo {
	return ParseWhois(r.Whois())
}
