// Package database provides SQLite-based storage for normalized run results.
//
// The ResultDB stores one record per run (outcome totals, digest of the
// result file, fuzzing time) plus per-kind failure counts, and aggregates
// them per fuzzer for the summary command.
//
// SQLite (via modernc.org/sqlite) keeps the store in a single CGO-free file.
// WAL mode is enabled by default.
package database
