package model

// DNSRecord is a single resolved value of one record type.
type DNSRecord struct {
	// Value is the record data: an address, an exchange host, TXT text or a
	// canonical name.
	Value string `json:"value"`

	// TTL is the time to live in seconds. Zero when the resolver does not
	// report it.
	TTL int `json:"ttl"`

	// Priority is the MX preference. Only set for MX records.
	Priority *int `json:"priority,omitempty"`
}

// DNSRecords groups records by type. A failure to resolve one type leaves
// only that category empty.
type DNSRecords struct {
	A     []DNSRecord `json:"a"`
	AAAA  []DNSRecord `json:"aaaa"`
	MX    []DNSRecord `json:"mx"`
	TXT   []DNSRecord `json:"txt"`
	CNAME []DNSRecord `json:"cname"`
}

// NewDNSRecords returns DNSRecords with every category initialized, so the
// JSON form always contains five arrays.
func NewDNSRecords() DNSRecords {
	return DNSRecords{
		A:     make([]DNSRecord, 0),
		AAAA:  make([]DNSRecord, 0),
		MX:    make([]DNSRecord, 0),
		TXT:   make([]DNSRecord, 0),
		CNAME: make([]DNSRecord, 0),
	}
}

// FirstA returns the value of the first A record and whether one exists.
func (d DNSRecords) FirstA() (string, bool) {
	if len(d.A) == 0 {
		return "", false
	}
	return d.A[0].Value, true
}

// Total returns the number of records across all categories.
func (d DNSRecords) Total() int {
	return len(d.A) + len(d.AAAA) + len(d.MX) + len(d.TXT) + len(d.CNAME)
}

// Nameserver is an authoritative name server of a domain.
type Nameserver struct {
	Hostname string `json:"hostname"`

	// IPAddress is the first IPv4 address of Hostname. Nil when the lookup
	// failed; the nameserver entry itself is kept.
	IPAddress *string `json:"ip_address"`
}

// SSLInfo summarizes the TLS certificate served by a domain.
// When Available is false no other field is set.
type SSLInfo struct {
	Available bool     `json:"available"`
	Subject   string   `json:"subject,omitempty"`
	Issuer    string   `json:"issuer,omitempty"`
	ValidFrom string   `json:"valid_from,omitempty"`
	ValidTo   string   `json:"valid_to,omitempty"`
	SAN       []string `json:"san,omitempty"`
}

// HTTPResponse is the outcome of the header-only HTTP probe.
// The zero value means neither HTTPS nor HTTP answered with a 2xx or 3xx.
type HTTPResponse struct {
	Status  int               `json:"status,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// IsEmpty reports whether the probe produced no response.
func (h HTTPResponse) IsEmpty() bool {
	return h.Status == 0 && len(h.Headers) == 0
}

// Geolocation describes where an IP address is located.
// The zero value means the lookup was skipped or failed.
type Geolocation struct {
	IP       string   `json:"ip,omitempty"`
	Country  string   `json:"country,omitempty"`
	Region   string   `json:"region,omitempty"`
	City     string   `json:"city,omitempty"`
	Zip      string   `json:"zip,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lon      *float64 `json:"lon,omitempty"`
	Timezone string   `json:"timezone,omitempty"`
	ISP      string   `json:"isp,omitempty"`
	Org      string   `json:"org,omitempty"`
	AS       string   `json:"as,omitempty"`
}

// IsEmpty reports whether no location data is present.
func (g Geolocation) IsEmpty() bool {
	return g == Geolocation{}
}
