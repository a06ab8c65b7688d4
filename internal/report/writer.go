package report

import (
	"io"

	"github.com/nao1215/fuzznorm/internal/model"
)

// Writer defines the interface for summary output.
// Implementations render batch and engine summaries in various formats.
type Writer interface {
	// WriteBatch outputs the outcome of one normalization batch.
	// Returns the number of bytes written and any error encountered.
	WriteBatch(report *model.BatchReport) (int, error)

	// WriteEngines outputs per-engine aggregates from the result store.
	WriteEngines(summaries []model.EngineSummary) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// The CLI uses it when several report files are requested at once.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteBatch outputs the batch report to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) WriteBatch(report *model.BatchReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteBatch(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteEngines outputs the engine summaries to all configured Writers.
func (m *MultiWriter) WriteEngines(summaries []model.EngineSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteEngines(summaries)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
