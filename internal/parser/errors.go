package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/fuzznorm/internal/engine"
)

var (
	// ErrMalformedInput is returned when engine output does not have the expected shape.
	ErrMalformedInput = errors.New("malformed fuzzer output")

	// ErrUnclassified is returned when no classification rule matches a block.
	ErrUnclassified = errors.New("unclassified test case")

	// ErrNoHandler is returned by Lookup for an engine without a registered parser.
	ErrNoHandler = errors.New("no parser registered")
)

// maxExcerptLen is the maximum number of bytes of a block kept in a BlockError.
const maxExcerptLen = 240

// BlockError reports a block of engine output that could not be classified.
type BlockError struct {
	// Engine is the engine whose output was being parsed.
	Engine engine.Engine

	// Excerpt is the beginning of the offending block.
	Excerpt string

	// Err is ErrMalformedInput or ErrUnclassified, possibly wrapped with detail.
	Err error
}

// Error implements error.
func (e *BlockError) Error() string {
	return fmt.Sprintf("%s: %v (block: %q)", e.Engine, e.Err, e.Excerpt)
}

// Unwrap returns the underlying error.
func (e *BlockError) Unwrap() error {
	return e.Err
}

// newBlockError builds a BlockError with a bounded excerpt of block.
func newBlockError(e engine.Engine, block string, err error) *BlockError {
	return &BlockError{Engine: e, Excerpt: excerpt(block), Err: err}
}

// excerpt returns the trimmed beginning of block, cut on a rune boundary.
func excerpt(block string) string {
	s := strings.TrimSpace(block)
	if len(s) <= maxExcerptLen {
		return s
	}
	cut := maxExcerptLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// malformed wraps ErrMalformedInput with a description.
func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
}
