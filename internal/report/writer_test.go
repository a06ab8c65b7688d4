package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/fuzznorm/internal/model"
)

// createTestBatch creates a batch report with sample data for testing.
func createTestBatch() *model.BatchReport {
	return &model.BatchReport{
		Input:     "in",
		Output:    "out",
		Total:     3,
		Processed: 2,
		Elapsed:   1500 * time.Millisecond,
		Runs: []model.RunResult{
			{
				Name:     "cats-age_of_empires_2_api-0",
				Engine:   "cats",
				Target:   "age_of_empires_2_api:Default",
				Cases:    3,
				Counts:   model.OutcomeCounts{Pass: 1, Failure: 2},
				Failures: map[string]int{"server_error": 2},
				Dedup:    1,
			},
			{
				Name:   "restler-jupyter_server-1",
				Engine: "restler",
				Target: "jupyter_server:Default",
				Cases:  1,
				Counts: model.OutcomeCounts{Pass: 1},
			},
		},
		Failed: []model.RunFailure{
			{Name: "got_swag-ocvn-0", Error: "got_swag: unclassified block"},
		},
	}
}

// createTestSummaries creates engine summaries for testing.
func createTestSummaries() []model.EngineSummary {
	return []model.EngineSummary{
		{
			Engine:   "cats",
			Runs:     2,
			Targets:  1,
			Counts:   model.OutcomeCounts{Pass: 1500, Failure: 4},
			Failures: map[string]int{"server_error": 3, "unexpected_status_code": 1},
			Duration: 3661,
		},
		{
			Engine:   "schemathesis:Default",
			Runs:     1,
			Targets:  1,
			Counts:   model.OutcomeCounts{Pass: 10},
			Duration: 0.5,
		},
	}
}

// TestSimpleWriter tests the human-readable summary writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes batch header and counts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.WriteBatch(createTestBatch()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"FUZZER OUTPUT NORMALIZATION",
			"Processed:      2 of 3 runs",
			"Elapsed:        1.50 seconds",
			"FAILURE:",
			"cats-age_of_empires_2_api-0",
			"FAILED RUNS",
			"got_swag: unclassified block",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "server_error: 2") {
			t.Error("failure kinds should only be listed in verbose mode")
		}
	})

	t.Run("verbose lists failure kinds", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true))

		if _, err := w.WriteBatch(createTestBatch()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "server_error: 2") {
			t.Error("expected failure kinds in verbose output")
		}
	})

	t.Run("hides empty sections unless requested", func(t *testing.T) {
		t.Parallel()

		report := &model.BatchReport{Input: "in", Output: "out"}

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteBatch(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "FAILED RUNS") {
			t.Error("empty failed section should be hidden")
		}

		buf.Reset()
		if _, err := NewSimpleWriter(&buf, WithShowEmpty(true)).WriteBatch(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No failed runs") {
			t.Error("expected empty failed section")
		}
	})

	t.Run("writes engine summaries", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteEngines(createTestSummaries()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "schemathesis:Default") {
			t.Error("expected engine token in output")
		}
		if !strings.Contains(output, "1,504") {
			t.Error("expected humanized case count")
		}
		if !strings.Contains(output, "1h1m1s") {
			t.Error("expected formatted fuzzing time")
		}
	})

	t.Run("writes recorded runs", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)
		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithClock(func() time.Time { return now }))

		_, err := w.WriteRuns([]model.RecordedRun{
			{ID: 7, Name: "cats-ocvn-0", Engine: "cats", Cases: 12000, RecordedAt: now.Add(-2 * time.Hour)},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"cats-ocvn-0", "12,000", "2 hours ago"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("writes placeholder without runs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteRuns(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "No runs recorded\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})
}

// TestMarkdownWriter tests the Markdown summary writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes batch report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteBatch(createTestBatch()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Fuzzer Output Normalization",
			"## Outcomes",
			"```mermaid",
			"## Runs",
			"restler-jupyter_server-1",
			"## Failed Runs",
			"[!CAUTION]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("tip when nothing failed", func(t *testing.T) {
		t.Parallel()

		report := &model.BatchReport{
			Total:     1,
			Processed: 1,
			Runs:      []model.RunResult{{Name: "r", Cases: 1, Counts: model.OutcomeCounts{Pass: 1}}},
		}

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteBatch(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[!TIP]") {
			t.Error("expected tip alert")
		}
		if strings.Contains(buf.String(), "Failed Runs") {
			t.Error("failed section should be omitted")
		}
	})

	t.Run("writes engine summaries", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteEngines(createTestSummaries()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"# Fuzzer Summary", "### cats", "unexpected_status_code"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "### schemathesis:Default") {
			t.Error("engines without failures should not get a failure section")
		}
	})

	t.Run("notes empty store", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteEngines(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No runs have been recorded yet.") {
			t.Error("expected note for empty summary")
		}
	})
}

// TestJSONWriter tests the JSON summary writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes batch report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteBatch(createTestBatch()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded struct {
			Total     int                 `json:"total"`
			Processed int                 `json:"processed"`
			Seconds   float64             `json:"seconds"`
			Counts    model.OutcomeCounts `json:"counts"`
			Runs      []model.RunResult   `json:"runs"`
			Failed    []model.RunFailure  `json:"failed"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Total != 3 || decoded.Processed != 2 {
			t.Errorf("got total=%d processed=%d", decoded.Total, decoded.Processed)
		}
		if decoded.Seconds != 1.5 {
			t.Errorf("seconds = %v, expected 1.5", decoded.Seconds)
		}
		if decoded.Counts.Failure != 2 || decoded.Counts.Pass != 2 {
			t.Errorf("unexpected counts %+v", decoded.Counts)
		}
		if len(decoded.Runs) != 2 || len(decoded.Failed) != 1 {
			t.Errorf("got %d runs and %d failures", len(decoded.Runs), len(decoded.Failed))
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).WriteEngines(createTestSummaries()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  {\n    \"engine\": \"cats\"") {
			t.Errorf("expected indented output, got:\n%s", buf.String())
		}
		if !strings.HasSuffix(buf.String(), "]\n") {
			t.Error("expected trailing newline")
		}
	})

	t.Run("empty summaries encode as array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteEngines(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "[]\n" {
			t.Errorf("got %q, expected %q", buf.String(), "[]\n")
		}
	})
}

// TestMultiWriter tests writing to several writers at once.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var md, js bytes.Buffer
	w := NewMultiWriter(NewMarkdownWriter(&md), NewJSONWriter(&js))

	n, err := w.WriteBatch(createTestBatch())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if md.Len() == 0 || js.Len() == 0 {
		t.Fatal("expected both writers to receive output")
	}
	if n < js.Len() {
		t.Errorf("reported %d bytes, less than the JSON output alone", n)
	}

	if _, err := w.WriteEngines(createTestSummaries()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
