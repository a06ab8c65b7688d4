package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/fuzznorm/internal/model"
)

// JSONWriter outputs results in JSON format.
// It renders summaries as well as the per-run case and dedup files.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
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
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
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

// batchJSON is the serialized form of a batch report.
type batchJSON struct {
	*model.BatchReport
	Seconds float64             `json:"seconds"`
	Counts  model.OutcomeCounts `json:"counts"`
}

// WriteBatch outputs the batch report in JSON format.
func (w *JSONWriter) WriteBatch(report *model.BatchReport) (int, error) {
	return w.writeJSON(batchJSON{
		BatchReport: report,
		Seconds:     report.Elapsed.Seconds(),
		Counts:      report.Counts(),
	})
}

// WriteEngines outputs engine summaries as a JSON array.
func (w *JSONWriter) WriteEngines(summaries []model.EngineSummary) (int, error) {
	if summaries == nil {
		summaries = []model.EngineSummary{}
	}
	return w.writeJSON(summaries)
}

// WriteDedup outputs deduplicated entries as a JSON array.
func (w *JSONWriter) WriteDedup(entries []model.DedupEntry) (int, error) {
	if entries == nil {
		entries = []model.DedupEntry{}
	}
	return w.writeJSON(entries)
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
