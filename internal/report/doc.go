// Package report writes normalized results and run summaries.
//
// This package contains:
//   - JSONWriter: Result files (test cases and deduplicated entries) and JSON summaries
//   - MarkdownWriter: Batch and per-fuzzer summaries for sharing
//   - SimpleWriter: Human-readable text output for terminal display
//   - WriteFileAtomic: Temp-file-and-rename writes with a SHA3-256 digest
//
// Summary writers implement the Writer interface, allowing them to be used
// interchangeably and composed with MultiWriter.
package report
