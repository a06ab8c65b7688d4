package model

import (
	"maps"
	"slices"
	"time"
)

// RunResult describes one run that went through the normalization pipeline.
type RunResult struct {
	// Name is the run directory name, e.g. "cats-age_of_empires_2_api-0".
	Name string `json:"name"`

	// Engine is the engine token from the run metadata.
	Engine string `json:"engine"`

	// Target is the target token from the run metadata.
	Target string `json:"target"`

	// Cases is the number of test cases written to the result file.
	Cases int `json:"cases"`

	// Counts holds the per-outcome totals of the written cases.
	Counts OutcomeCounts `json:"counts"`

	// Failures maps a failure kind to its number of occurrences.
	Failures map[string]int `json:"failures,omitempty"`

	// Digest is the hex encoded SHA3-256 of the result file.
	Digest string `json:"digest,omitempty"`

	// Dedup is the number of endpoints in the deduplicated cases file.
	Dedup int `json:"dedup,omitempty"`

	// Duration is the fuzzing time in seconds reported by the run metadata.
	Duration float64 `json:"duration"`
}

// AddCase accounts one written test case.
func (r *RunResult) AddCase(tc TestCase) {
	r.Cases++
	r.Counts.Add(tc.Outcome)
	if f, ok := tc.Outcome.(Failure); ok {
		if r.Failures == nil {
			r.Failures = make(map[string]int)
		}
		r.Failures[string(f.Kind)]++
	}
}

// FailureKinds returns the failure kinds of the run in a stable order.
func (r RunResult) FailureKinds() []string {
	return slices.Sorted(maps.Keys(r.Failures))
}

// RunFailure is a run that stopped before all of its outputs were written.
type RunFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// BatchReport is the outcome of one parse-fuzzers-output invocation.
type BatchReport struct {
	// Input is the directory the runs were read from.
	Input string `json:"input"`

	// Output is the directory the results were written to.
	Output string `json:"output"`

	// Total is the number of located runs.
	Total int `json:"total"`

	// Processed is the number of runs whose outputs were fully written.
	Processed int `json:"processed"`

	// Elapsed is the wall clock time of the batch.
	Elapsed time.Duration `json:"elapsed"`

	// Runs lists the successful runs ordered by name.
	Runs []RunResult `json:"runs"`

	// Failed lists the runs that stopped with an error, ordered by name.
	Failed []RunFailure `json:"failed,omitempty"`
}

// Counts returns the outcome totals over every successful run.
func (b *BatchReport) Counts() OutcomeCounts {
	var total OutcomeCounts
	for _, r := range b.Runs {
		total.Merge(r.Counts)
	}
	return total
}

// RecordedRun is a run as stored in the result database.
type RecordedRun struct {
	ID         int64
	Name       string
	Engine     string
	Target     string
	Cases      int
	Digest     string
	RecordedAt time.Time
}
