package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/fuzznorm/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs summaries in Markdown format.
// This format is designed for sharing results of an evaluation round.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteBatch outputs the batch report in Markdown format.
func (w *MarkdownWriter) WriteBatch(report *model.BatchReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	counts := report.Counts()

	md.H1("Fuzzer Output Normalization")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Input", "`" + report.Input + "`"},
			{"Output", "`" + report.Output + "`"},
			{"Runs Located", strconv.Itoa(report.Total)},
			{"Runs Processed", strconv.Itoa(report.Processed)},
			{"Elapsed", formatSeconds(report.Elapsed.Seconds())},
			{"Test Cases", humanize.Comma(int64(counts.Total()))},
		},
	})
	md.PlainText("")

	w.writeOutcomes(md, counts)
	w.writeBatchAlert(md, report, counts)
	w.writeRuns(md, report.Runs)
	w.writeFailedRuns(md, report.Failed)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteEngines outputs per-engine aggregates in Markdown format.
func (w *MarkdownWriter) WriteEngines(summaries []model.EngineSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Fuzzer Summary")
	md.PlainText("")

	if len(summaries) == 0 {
		md.Note("No runs have been recorded yet.")
		md.PlainText("")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(summaries))
	var total model.OutcomeCounts
	for _, s := range summaries {
		total.Merge(s.Counts)
		rows = append(rows, []string{
			"`" + s.Engine + "`",
			strconv.Itoa(s.Runs),
			strconv.Itoa(s.Targets),
			humanize.Comma(int64(s.Counts.Total())),
			humanize.Comma(int64(s.Counts.Pass)),
			humanize.Comma(int64(s.Counts.Skip)),
			humanize.Comma(int64(s.Counts.Recommendation)),
			humanize.Comma(int64(s.Counts.Failure)),
			humanize.Comma(int64(s.Counts.Error)),
			formatSeconds(s.Duration),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Fuzzer", "Runs", "Targets", "Cases", "Pass", "Skip", "Recommendation", "Failure", "Error", "Fuzzing Time"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeOutcomes(md, total)

	md.H2("Failure Kinds")
	md.PlainText("")
	for _, s := range summaries {
		kinds := s.FailureKinds()
		if len(kinds) == 0 {
			continue
		}
		md.H3(s.Engine)
		md.PlainText("")
		kindRows := make([][]string, 0, len(kinds))
		for _, k := range kinds {
			kindRows = append(kindRows, []string{k, humanize.Comma(int64(s.Failures[k]))})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Kind", "Count"},
			Rows:   kindRows,
		})
		md.PlainText("")
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeOutcomes writes the outcome distribution table and chart.
func (w *MarkdownWriter) writeOutcomes(md *markdown.Markdown, counts model.OutcomeCounts) {
	md.H2("Outcomes")
	md.PlainText("")

	rows := make([][]string, 0, len(model.OutcomeTypes())+1)
	for _, t := range model.OutcomeTypes() {
		rows = append(rows, []string{string(t), humanize.Comma(int64(counts.Get(t)))})
	}
	rows = append(rows, []string{"**total**", "**" + humanize.Comma(int64(counts.Total())) + "**"})
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if counts.Total() > 0 {
		w.writePieChart(md, counts)
	}
}

// writePieChart writes a mermaid pie chart for the outcome distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts model.OutcomeCounts) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Outcome Distribution"),
		piechart.WithShowData(true),
	)

	for _, t := range model.OutcomeTypes() {
		if n := counts.Get(t); n > 0 {
			chart.LabelAndIntValue(string(t), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeBatchAlert writes an alert describing the most important batch result.
func (w *MarkdownWriter) writeBatchAlert(md *markdown.Markdown, report *model.BatchReport, counts model.OutcomeCounts) {
	switch {
	case len(report.Failed) > 0:
		md.Cautionf("%d of %d run(s) could not be normalized.", len(report.Failed), report.Total)
	case counts.Error > 0:
		md.Warningf("%s test case(s) report a problem on the fuzzing side.", humanize.Comma(int64(counts.Error)))
	case counts.Failure > 0:
		md.Importantf("%s failure(s) were found in the targets.", humanize.Comma(int64(counts.Failure)))
	case counts.Total() == 0:
		md.Note("No test cases were produced.")
	default:
		md.Tip("No failures were found.")
	}
	md.PlainText("")
}

// writeRuns writes one table row per normalized run.
func (w *MarkdownWriter) writeRuns(md *markdown.Markdown, runs []model.RunResult) {
	md.H2("Runs")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No run was normalized.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		dedup := "-"
		if r.Dedup > 0 {
			dedup = strconv.Itoa(r.Dedup)
		}
		rows[i] = []string{
			r.Name,
			r.Engine,
			r.Target,
			strconv.Itoa(r.Cases),
			strconv.Itoa(r.Counts.Pass),
			strconv.Itoa(r.Counts.Skip),
			strconv.Itoa(r.Counts.Recommendation),
			strconv.Itoa(r.Counts.Failure),
			strconv.Itoa(r.Counts.Error),
			dedup,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Run", "Fuzzer", "Target", "Cases", "Pass", "Skip", "Rec.", "Failure", "Error", "Dedup"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailedRuns lists runs that stopped with an error.
func (w *MarkdownWriter) writeFailedRuns(md *markdown.Markdown, failed []model.RunFailure) {
	if len(failed) == 0 {
		return
	}

	md.H2("Failed Runs")
	md.PlainText("")
	items := make([]string, len(failed))
	for i, f := range failed {
		items[i] = fmt.Sprintf("`%s`: %s", f.Name, truncateString(f.Error, 160))
	}
	md.BulletList(items...)
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [fuzznorm](https://github.com/nao1215/fuzznorm)*")
}

// formatSeconds renders a duration given in seconds, e.g. "1h2m3s".
func formatSeconds(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	if d < time.Second {
		return fmt.Sprintf("%.2fs", seconds)
	}
	return d.Round(time.Second).String()
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
