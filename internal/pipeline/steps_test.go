package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nao1215/fuzznorm/internal/model"
	"github.com/nao1215/fuzznorm/internal/parser"
	"github.com/nao1215/fuzznorm/internal/run"
)

// newState reads the metadata of r and builds its state below out.
func newState(t *testing.T, r run.Run, out string) *RunState {
	t.Helper()

	meta, err := run.ReadMetadata(r.Path)
	if err != nil {
		t.Fatalf("failed to read metadata: %v", err)
	}
	h, err := parser.Lookup(meta.Engine)
	if err != nil {
		t.Fatalf("failed to look up parser: %v", err)
	}
	return NewRunState(r, meta, h, out)
}

// TestNewRunState tests the initial result of a run.
func TestNewRunState(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	r := writeRunDir(t, in, "tnt_fuzzer-httpbin-0", tntMetadata, nil)
	state := newState(t, r, "/out")

	if state.OutDir != filepath.Join("/out", "tnt_fuzzer-httpbin-0") {
		t.Errorf("unexpected output directory %q", state.OutDir)
	}
	want := model.RunResult{Name: "tnt_fuzzer-httpbin-0", Engine: "tnt_fuzzer", Target: "httpbin:Default", Duration: 12.5}
	if state.Result.Name != want.Name || state.Result.Engine != want.Engine ||
		state.Result.Target != want.Target || state.Result.Duration != want.Duration {
		t.Errorf("got %+v, want %+v", state.Result, want)
	}
}

// TestNormalizeStep tests writing of the result file.
func TestNormalizeStep(t *testing.T) {
	t.Parallel()

	t.Run("pretty output", func(t *testing.T) {
		t.Parallel()

		in, out := t.TempDir(), t.TempDir()
		r := writeRunDir(t, in, "tnt_fuzzer-httpbin-0", tntMetadata, map[string]string{
			"stdout.txt": "Fetching open API from: x\nget|http://h/users|-|200|OK\n",
		})
		state := newState(t, r, out)
		if err := NewPrepareOutputStep().Do(context.Background(), state); err != nil {
			t.Fatal(err)
		}

		d := NewDispatcher(out, WithPrettyPrint(true))
		step := NewNormalizeStep(WithNormalizeJSONOptions(d.jsonOpts...))
		if err := step.Do(context.Background(), state); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got := readFile(t, filepath.Join(state.OutDir, ResultFile))
		want := "[\n  {\n    \"method\": \"GET\",\n    \"path\": \"/users\",\n    \"type\": \"pass\"\n  }\n]\n"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
		if state.Result.Cases != 1 || state.Result.Counts.Pass != 1 {
			t.Errorf("unexpected result: %+v", state.Result)
		}
	})

	t.Run("failure keeps the previous result", func(t *testing.T) {
		t.Parallel()

		in, out := t.TempDir(), t.TempDir()
		r := writeRunDir(t, in, "schemathesis:Default-worklog-0", schemathesisMetadata, map[string]string{
			"out.jsonl": schemathesisEvents + unclassifiedEvents,
		})
		state := newState(t, r, out)
		if err := os.MkdirAll(state.OutDir, 0o750); err != nil {
			t.Fatal(err)
		}
		previous := filepath.Join(state.OutDir, ResultFile)
		if err := os.WriteFile(previous, []byte("[]\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		err := NewNormalizeStep().Do(context.Background(), state)
		if !errors.Is(err, parser.ErrUnclassified) {
			t.Fatalf("expected ErrUnclassified, got %v", err)
		}
		if got := readFile(t, previous); got != "[]\n" {
			t.Errorf("previous result was modified: %q", got)
		}
		if state.Result.Cases != 0 || state.Result.Digest != "" {
			t.Errorf("failed step must not update the result: %+v", state.Result)
		}
	})
}

// TestDeduplicateStep tests the dedup file lifecycle.
func TestDeduplicateStep(t *testing.T) {
	t.Parallel()

	t.Run("no-op without dedup support", func(t *testing.T) {
		t.Parallel()

		in, out := t.TempDir(), t.TempDir()
		r := writeRunDir(t, in, "tnt_fuzzer-httpbin-0", tntMetadata, nil)
		state := newState(t, r, out)

		if err := NewDeduplicateStep().Do(context.Background(), state); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(state.OutDir); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected nothing to be written, got %v", err)
		}
	})

	t.Run("removes a stale file", func(t *testing.T) {
		t.Parallel()

		in, out := t.TempDir(), t.TempDir()
		r := writeRunDir(t, in, "schemathesis:Default-worklog-0", schemathesisMetadata, map[string]string{
			"stdout.txt": "All checks passed\n",
		})
		state := newState(t, r, out)
		if err := os.MkdirAll(state.OutDir, 0o750); err != nil {
			t.Fatal(err)
		}
		stale := filepath.Join(state.OutDir, DedupFile)
		if err := os.WriteFile(stale, []byte("[]\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		if err := NewDeduplicateStep().Do(context.Background(), state); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected stale dedup file to be removed, got %v", err)
		}
		if state.Result.Dedup != 0 {
			t.Errorf("expected no dedup entries, got %d", state.Result.Dedup)
		}
	})
}

// TestCopyMetadataStep tests the metadata copy.
func TestCopyMetadataStep(t *testing.T) {
	t.Parallel()

	t.Run("missing metadata", func(t *testing.T) {
		t.Parallel()

		out := t.TempDir()
		state := &RunState{
			Run:    run.Run{Name: "cats-gitlab-0", Path: filepath.Join(t.TempDir(), "cats-gitlab-0")},
			OutDir: out,
		}
		err := NewCopyMetadataStep().Do(context.Background(), state)
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected os.ErrNotExist, got %v", err)
		}
	})
}

// TestRecordStep tests that the result is recorded as is.
func TestRecordStep(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{previous: map[string]*model.RecordedRun{
		"cats-gitlab-0": {Name: "cats-gitlab-0", Digest: "old"},
	}}
	state := &RunState{Result: model.RunResult{Name: "cats-gitlab-0", Engine: "cats", Digest: "new"}}

	step := NewRecordStep(rec, quietLogger())
	if step.Name() != "record" {
		t.Errorf("unexpected name %q", step.Name())
	}
	if err := step.Do(context.Background(), state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.recorded) != 1 || rec.recorded[0].Digest != "new" {
		t.Errorf("unexpected recorded runs: %+v", rec.recorded)
	}
}
