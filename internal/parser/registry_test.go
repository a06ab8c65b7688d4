package parser

import (
	"errors"
	"testing"

	"github.com/nao1215/fuzznorm/internal/engine"
)

// TestLookup tests that every engine has a handler.
func TestLookup(t *testing.T) {
	t.Parallel()

	withDedup := map[string]bool{
		"schemathesis:Default":     true,
		"schemathesis:AllChecks":   true,
		"schemathesis:Negative":    true,
		"schemathesis:StatefulOld": true,
		"restler":                  true,
	}

	for _, e := range engine.All() {
		t.Run(e.String(), func(t *testing.T) {
			t.Parallel()

			h, err := Lookup(e)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.Parse == nil {
				t.Error("handler without Parse")
			}
			if h.CanDeduplicate() != withDedup[e.String()] {
				t.Errorf("CanDeduplicate() = %v", h.CanDeduplicate())
			}
		})
	}

	if _, err := Lookup(engine.Engine{Family: "unknown"}); !errors.Is(err, ErrNoHandler) {
		t.Errorf("expected ErrNoHandler, got %v", err)
	}
}

// TestBlockError tests wrapping and excerpt truncation.
func TestBlockError(t *testing.T) {
	t.Parallel()

	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	err := newBlockError(engine.MustParse("cats"), string(long), ErrUnclassified)

	if !errors.Is(err, ErrUnclassified) {
		t.Error("BlockError does not unwrap to ErrUnclassified")
	}
	var blockErr *BlockError
	if !errors.As(error(err), &blockErr) {
		t.Fatal("errors.As failed")
	}
	if len(blockErr.Excerpt) > maxExcerptLen+3 {
		t.Errorf("excerpt not truncated: %d bytes", len(blockErr.Excerpt))
	}
}

// TestMissingStdout tests that a missing transcript is an I/O error, not a parse error.
func TestMissingStdout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, parse := range []ParseFunc{parseAPIFuzzer, parseTnTFuzzer, parseGotSwag, parseSwaggerFuzzer, parseFuzzLightyear, parseSchemathesisPytest} {
		err := parseErr(t, parse, dir, Options{})
		if err == nil || errors.Is(err, ErrMalformedInput) {
			t.Errorf("expected I/O error, got %v", err)
		}
	}
}
