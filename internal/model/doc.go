// Package model defines the data structures shared by domaindive packages.
//
// This package contains the following main types:
//   - AnalysisRecord: The persisted unit of knowledge about one domain
//   - Payload: The six probe-derived fields of a record
//   - DNSRecords, Nameserver, SSLInfo, HTTPResponse, Geolocation: probe results
//   - WhoisInfo: Fields extracted from raw WHOIS text for display
//
// Models live in their own package because the probe, pipeline, database,
// analysis and report packages all depend on them.
//
// JSON field names follow the layout of the stored blobs, so a record can be
// written to the database and to a JSON report with the same encoding.
package model
