package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nao1215/fuzznorm/internal/model"
)

// writeRun creates the given files below a temporary fuzzer directory.
func writeRun(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

// mustParse runs parse and collects every test case.
func mustParse(t *testing.T, parse ParseFunc, dir string, opts Options) []model.TestCase {
	t.Helper()

	seq, err := parse(dir, opts)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	cases, err := Collect(seq)
	if err != nil {
		t.Fatalf("iteration failed: %v", err)
	}
	return cases
}

// parseErr runs parse and returns the first error, from setup or iteration.
func parseErr(t *testing.T, parse ParseFunc, dir string, opts Options) error {
	t.Helper()

	seq, err := parse(dir, opts)
	if err != nil {
		return err
	}
	_, err = Collect(seq)
	return err
}
