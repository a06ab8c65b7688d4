package parser

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/nao1215/fuzznorm/internal/engine"
	"github.com/nao1215/fuzznorm/internal/model"
)

// Cases is a lazy, single-use sequence of test cases.
// Iteration stops after the first non-nil error.
type Cases = iter.Seq2[model.TestCase, error]

// Options controls classification policy.
type Options struct {
	// Lenient classifies blocks that match no rule as Pass instead of
	// failing with ErrUnclassified.
	Lenient bool
}

// ParseFunc parses the raw output directory of one run.
type ParseFunc func(dir string, opts Options) (Cases, error)

// DeduplicateFunc builds per-endpoint failure counts for one run.
// A nil slice means that the run has nothing to deduplicate.
type DeduplicateFunc func(dir string) ([]model.DedupEntry, error)

// Handler is the parser of one engine.
type Handler struct {
	// Parse produces the normalized test cases.
	Parse ParseFunc

	// Deduplicate is nil for engines without deduplication support.
	Deduplicate DeduplicateFunc
}

// CanDeduplicate reports whether the handler supports deduplication.
func (h Handler) CanDeduplicate() bool {
	return h.Deduplicate != nil
}

// handlers is the dispatch table over every engine value.
var handlers = map[engine.Engine]Handler{
	{Family: engine.APIFuzzer}: {Parse: parseAPIFuzzer},
	{Family: engine.TnTFuzzer}: {Parse: parseTnTFuzzer},

	{Family: engine.Schemathesis, Mode: engine.Default}:     {Parse: schemathesisEventParser(engine.Default), Deduplicate: deduplicateSchemathesis},
	{Family: engine.Schemathesis, Mode: engine.AllChecks}:   {Parse: schemathesisEventParser(engine.AllChecks), Deduplicate: deduplicateSchemathesis},
	{Family: engine.Schemathesis, Mode: engine.Negative}:    {Parse: schemathesisEventParser(engine.Negative), Deduplicate: deduplicateSchemathesis},
	{Family: engine.Schemathesis, Mode: engine.StatefulOld}: {Parse: schemathesisEventParser(engine.StatefulOld), Deduplicate: deduplicateSchemathesis},
	{Family: engine.Schemathesis, Mode: engine.StatefulNew}: {Parse: parseSchemathesisPytest},

	{Family: engine.Restler}:       {Parse: parseRestler, Deduplicate: deduplicateRestler},
	{Family: engine.Cats}:          {Parse: parseCats},
	{Family: engine.SwaggerFuzzer}: {Parse: parseSwaggerFuzzer},
	{Family: engine.GotSwag}:       {Parse: parseGotSwag},
	{Family: engine.FuzzLightyear}: {Parse: parseFuzzLightyear},
}

// Lookup returns the handler registered for e.
func Lookup(e engine.Engine) (Handler, error) {
	h, ok := handlers[e]
	if !ok {
		return Handler{}, fmt.Errorf("%w: %s", ErrNoHandler, e)
	}
	return h, nil
}

// Collect drains seq into a slice, stopping at the first error.
func Collect(seq Cases) ([]model.TestCase, error) {
	var out []model.TestCase
	for tc, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, tc)
	}
	return out, nil
}

// stdoutFile is the captured standard output of transcript-based engines.
const stdoutFile = "stdout.txt"

// readStdout loads "<dir>/stdout.txt".
func readStdout(dir string) (string, error) {
	path := filepath.Join(dir, stdoutFile)
	data, err := os.ReadFile(path) //nolint:gosec // path is built from the run directory
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// classifyFunc classifies one block. ok is false when the block carries no
// test case and should be dropped.
type classifyFunc func(block string) (tc model.TestCase, ok bool, err error)

// blockCases lazily classifies blocks in order.
func blockCases(e engine.Engine, blocks []string, classify classifyFunc) Cases {
	return func(yield func(model.TestCase, error) bool) {
		for _, block := range blocks {
			tc, ok, err := classify(block)
			if err != nil {
				yield(model.TestCase{}, newBlockError(e, block, err))
				return
			}
			if !ok {
				continue
			}
			if !yield(tc, nil) {
				return
			}
		}
	}
}

// emptyCases is a sequence without elements.
func emptyCases(yield func(model.TestCase, error) bool) {}

// unclassified applies the unclassified-block policy of opts.
func unclassified(opts Options, method, path string) (model.TestCase, bool, error) {
	if opts.Lenient {
		return model.NewPass(method, path), true, nil
	}
	return model.TestCase{}, false, ErrUnclassified
}

// found wraps tc as a kept classification result.
func found(tc model.TestCase) (model.TestCase, bool, error) {
	return tc, true, nil
}

// failed reports a classification error.
func failed(err error) (model.TestCase, bool, error) {
	return model.TestCase{}, false, err
}
