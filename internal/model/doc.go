// Package model defines the canonical result records shared by the parsers,
// the writers and the result store.
//
// This package contains the following main types:
//   - TestCase: One classified outcome for a single request attempt
//   - Outcome: A closed union of Pass, Skip, Recommendation, Failure and Errored
//   - DedupEntry: Per-endpoint failure counts recovered from replay logs
//   - OutcomeCounts / EngineSummary: Aggregates used by reports
//
// TestCase values serialize to the JSON shape consumed by the analysis
// tooling, so the string values of the kind constants are part of the
// output format and must not change.
package model
