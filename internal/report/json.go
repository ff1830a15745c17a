package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/domaindive/internal/analysis"
	"github.com/nao1215/domaindive/internal/domain"
	"github.com/nao1215/domaindive/internal/model"
)

// JSONWriter outputs reports in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is included in every document when set.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the domaindive version in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// JSONReport is the document written for one analysis. The analysis,
// cache_status and seconds_until_refresh keys are those of analysis.Result;
// the remaining keys are derived for convenience and never persisted.
type JSONReport struct {
	// Version is the domaindive version that produced the document.
	Version string `json:"version,omitempty"`

	*analysis.Result

	// RegisteredDomain is the eTLD+1 of the analyzed address.
	RegisteredDomain string `json:"registered_domain"`

	// Whois holds the fields parsed from the raw WHOIS text.
	Whois model.WhoisInfo `json:"whois"`
}

// NewJSONReport wraps result with derived fields.
func NewJSONReport(result *analysis.Result, version string) *JSONReport {
	return &JSONReport{
		Version:          version,
		Result:           result,
		RegisteredDomain: domain.RegisteredDomain(result.Record.Address),
		Whois:            result.Record.WhoisInfo(),
	}
}

// Write outputs the analysis wrapped with derived fields.
func (w *JSONWriter) Write(result *analysis.Result) (int, error) {
	return w.writeJSON(NewJSONReport(result, w.version))
}

// WriteList outputs {"addresses": [...]}. The array is never null.
func (w *JSONWriter) WriteList(addresses []string) (int, error) {
	if addresses == nil {
		addresses = []string{}
	}
	return w.writeJSON(struct {
		Addresses []string `json:"addresses"`
	}{Addresses: addresses})
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
