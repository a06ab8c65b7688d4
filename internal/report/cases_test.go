package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"iter"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/fuzznorm/internal/model"
)

// seq turns test cases into the lazy sequence produced by parsers.
func seq(cases ...model.TestCase) iter.Seq2[model.TestCase, error] {
	return func(yield func(model.TestCase, error) bool) {
		for _, tc := range cases {
			if !yield(tc, nil) {
				return
			}
		}
	}
}

func sampleCases() []model.TestCase {
	return []model.TestCase{
		model.NewPass("GET", "/users"),
		model.NewServerError("POST", "/users/{id}", 503),
		model.NewSkip("GET", "/health", model.SkipCanNotTest, "missing auth"),
		model.NewError("", "", model.ErrorFlaky),
	}
}

// TestWriteCases tests streaming test cases as a JSON array.
func TestWriteCases(t *testing.T) {
	t.Parallel()

	t.Run("compact output matches json.Marshal", func(t *testing.T) {
		t.Parallel()

		cases := sampleCases()
		want, err := json.Marshal(cases)
		if err != nil {
			t.Fatal(err)
		}

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteCases(seq(cases...), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(string(want)+"\n", buf.String()); diff != "" {
			t.Errorf("output mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("pretty output matches json.MarshalIndent", func(t *testing.T) {
		t.Parallel()

		cases := sampleCases()
		want, err := json.MarshalIndent(cases, "", "  ")
		if err != nil {
			t.Fatal(err)
		}

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).WriteCases(seq(cases...), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(string(want)+"\n", buf.String()); diff != "" {
			t.Errorf("output mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty sequence", func(t *testing.T) {
		t.Parallel()

		for _, opts := range [][]JSONWriterOption{nil, {WithPrettyPrint()}} {
			var buf bytes.Buffer
			if _, err := NewJSONWriter(&buf, opts...).WriteCases(seq(), nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if buf.String() != "[]\n" {
				t.Errorf("got %q, expected %q", buf.String(), "[]\n")
			}
		}
	})

	t.Run("reports every written case", func(t *testing.T) {
		t.Parallel()

		var result model.RunResult
		var buf bytes.Buffer
		n, err := NewJSONWriter(&buf).WriteCases(seq(sampleCases()...), result.AddCase)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("returned %d bytes, wrote %d", n, buf.Len())
		}
		if result.Cases != 4 || result.Counts.Failure != 1 || result.Failures["server_error"] != 1 {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("stops at the first parse error", func(t *testing.T) {
		t.Parallel()

		parseErr := errors.New("malformed block")
		cases := func(yield func(model.TestCase, error) bool) {
			if !yield(model.NewPass("GET", "/"), nil) {
				return
			}
			if !yield(model.TestCase{}, parseErr) {
				return
			}
			t.Error("sequence continued after the consumer stopped")
		}

		seen := 0
		var buf bytes.Buffer
		_, err := NewJSONWriter(&buf).WriteCases(cases, func(model.TestCase) { seen++ })
		if !errors.Is(err, parseErr) {
			t.Fatalf("got %v, expected %v", err, parseErr)
		}
		if seen != 1 {
			t.Errorf("saw %d cases, expected 1", seen)
		}
	})

	t.Run("rejects invalid status code", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		_, err := NewJSONWriter(&buf).WriteCases(seq(model.NewServerError("GET", "/", 42)), nil)
		if err == nil {
			t.Fatal("expected error for invalid status code")
		}
	})
}
