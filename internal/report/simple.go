package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/fuzznorm/internal/model"
)

// SimpleWriter outputs human-readable text summaries for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections without entries are shown.
	showEmpty bool

	// verbose enables per-run failure kinds in the output.
	verbose bool

	// now is used for relative timestamps in run listings.
	now func() time.Time
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithClock sets the reference time for relative timestamps.
func WithClock(now func() time.Time) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.now = now
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteBatch outputs the batch report in human-readable format.
func (w *SimpleWriter) WriteBatch(report *model.BatchReport) (int, error) {
	var sb strings.Builder

	w.writeBanner(&sb, "FUZZER OUTPUT NORMALIZATION")

	fmt.Fprintf(&sb, "Input:          %s\n", report.Input)
	fmt.Fprintf(&sb, "Output:         %s\n", report.Output)
	fmt.Fprintf(&sb, "Processed:      %d of %d runs\n", report.Processed, report.Total)
	fmt.Fprintf(&sb, "Elapsed:        %.2f seconds\n", report.Elapsed.Seconds())
	sb.WriteString("\n")

	w.writeCounts(&sb, report.Counts())

	if len(report.Runs) > 0 || w.showEmpty {
		w.writeSection(&sb, "RUNS")
		if len(report.Runs) == 0 {
			sb.WriteString("  No runs normalized\n")
		}
		for _, r := range report.Runs {
			fmt.Fprintf(&sb, "  [+] %-48s %6d cases  %4d failures\n", r.Name, r.Cases, r.Counts.Failure)
			if w.verbose {
				for _, k := range r.FailureKinds() {
					fmt.Fprintf(&sb, "        %s: %d\n", k, r.Failures[k])
				}
			}
		}
		sb.WriteString("\n")
	}

	if len(report.Failed) > 0 || w.showEmpty {
		w.writeSection(&sb, "FAILED RUNS")
		if len(report.Failed) == 0 {
			sb.WriteString("  No failed runs\n")
		}
		for _, f := range report.Failed {
			fmt.Fprintf(&sb, "  [!] %s\n      %s\n", f.Name, f.Error)
		}
		sb.WriteString("\n")
	}

	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteEngines outputs per-engine aggregates in human-readable format.
func (w *SimpleWriter) WriteEngines(summaries []model.EngineSummary) (int, error) {
	var sb strings.Builder

	w.writeBanner(&sb, "FUZZER SUMMARY")

	if len(summaries) == 0 {
		sb.WriteString("No runs recorded\n\n")
	}

	for _, s := range summaries {
		fmt.Fprintf(&sb, "%s\n", s.Engine)
		fmt.Fprintf(&sb, "  Runs:     %d (%d targets)\n", s.Runs, s.Targets)
		fmt.Fprintf(&sb, "  Cases:    %s\n", humanize.Comma(int64(s.Counts.Total())))
		fmt.Fprintf(&sb, "  Failures: %s\n", humanize.Comma(int64(s.Counts.Failure)))
		if w.verbose {
			for _, k := range s.FailureKinds() {
				fmt.Fprintf(&sb, "    %s: %d\n", k, s.Failures[k])
			}
		}
		fmt.Fprintf(&sb, "  Time:     %s\n\n", formatSeconds(s.Duration))
	}

	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteRuns outputs one line per recorded run, newest first as given.
func (w *SimpleWriter) WriteRuns(runs []model.RecordedRun) (int, error) {
	var sb strings.Builder

	if len(runs) == 0 {
		sb.WriteString("No runs recorded\n")
		return w.output.Write([]byte(sb.String()))
	}

	fmt.Fprintf(&sb, "%-6s %-48s %-24s %8s  %s\n", "ID", "RUN", "FUZZER", "CASES", "RECORDED")
	for _, r := range runs {
		fmt.Fprintf(&sb, "%-6d %-48s %-24s %8s  %s\n",
			r.ID,
			r.Name,
			r.Engine,
			humanize.Comma(int64(r.Cases)),
			humanize.RelTime(r.RecordedAt, w.now(), "ago", "from now"),
		)
	}

	return w.output.Write([]byte(sb.String()))
}

// writeCounts writes the outcome summary section.
func (w *SimpleWriter) writeCounts(sb *strings.Builder, counts model.OutcomeCounts) {
	w.writeSection(sb, "OUTCOMES")

	for _, t := range model.OutcomeTypes() {
		fmt.Fprintf(sb, "  %-15s %s\n", strings.ToUpper(string(t))+":", humanize.Comma(int64(counts.Get(t))))
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  %-15s %s test cases\n", "TOTAL:", humanize.Comma(int64(counts.Total())))
	sb.WriteString("\n")
}

// writeBanner writes a framed title.
func (w *SimpleWriter) writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString(centered(title, 70))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

// writeSection writes a section header.
func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by fuzznorm\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// centered pads title with leading spaces so that it is centered in width.
func centered(title string, width int) string {
	pad := (width - len(title)) / 2
	if pad <= 0 {
		return title
	}
	return strings.Repeat(" ", pad) + title
}
