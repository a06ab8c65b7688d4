// Package parser turns the raw output of each supported fuzzing engine into
// a sequence of classified test cases.
//
// Every engine has a Handler registered in a single dispatch table keyed by
// engine.Engine. Parse returns a lazy, single-use sequence; reading the
// engine's files happens up front, classification happens while iterating.
//
// Transcript-based parsers split a captured stdout.txt into blocks with an
// engine specific delimiter and run each block through an ordered cascade of
// rules. The first matching rule wins. A block that no rule matches is an
// ErrUnclassified error unless Options.Lenient is set; a block whose shape
// does not match the expected log format is an ErrMalformedInput error.
// Both are reported as *BlockError and stop the sequence.
package parser
