package model

import (
	"maps"
	"slices"
)

// OutcomeCounts tallies test cases per outcome type.
type OutcomeCounts struct {
	Pass           int `json:"pass"`
	Skip           int `json:"skip"`
	Recommendation int `json:"recommendation"`
	Failure        int `json:"failure"`
	Error          int `json:"error"`
}

// Add counts one outcome.
func (c *OutcomeCounts) Add(o Outcome) {
	switch o.Type() {
	case OutcomePass:
		c.Pass++
	case OutcomeSkip:
		c.Skip++
	case OutcomeRecommendation:
		c.Recommendation++
	case OutcomeFailure:
		c.Failure++
	case OutcomeError:
		c.Error++
	}
}

// Merge adds all counts of other into c.
func (c *OutcomeCounts) Merge(other OutcomeCounts) {
	c.Pass += other.Pass
	c.Skip += other.Skip
	c.Recommendation += other.Recommendation
	c.Failure += other.Failure
	c.Error += other.Error
}

// Total returns the number of counted test cases.
func (c OutcomeCounts) Total() int {
	return c.Pass + c.Skip + c.Recommendation + c.Failure + c.Error
}

// Get returns the count for a single outcome type.
func (c OutcomeCounts) Get(t OutcomeType) int {
	switch t {
	case OutcomePass:
		return c.Pass
	case OutcomeSkip:
		return c.Skip
	case OutcomeRecommendation:
		return c.Recommendation
	case OutcomeFailure:
		return c.Failure
	case OutcomeError:
		return c.Error
	default:
		return 0
	}
}

// OutcomeTypes lists every outcome type in display order.
func OutcomeTypes() []OutcomeType {
	return []OutcomeType{OutcomePass, OutcomeSkip, OutcomeRecommendation, OutcomeFailure, OutcomeError}
}

// EngineSummary aggregates the recorded runs of one engine.
type EngineSummary struct {
	// Engine is the engine token, e.g. "schemathesis:Default".
	Engine string `json:"engine"`

	// Runs is the number of recorded runs.
	Runs int `json:"runs"`

	// Targets is the number of distinct targets the engine was run against.
	Targets int `json:"targets"`

	// Counts holds the outcome totals over all runs.
	Counts OutcomeCounts `json:"counts"`

	// Failures maps a failure kind to its number of occurrences.
	Failures map[string]int `json:"failures,omitempty"`

	// Duration is the summed fuzzing time in seconds, taken from run metadata.
	Duration float64 `json:"duration"`
}

// FailureKinds returns the failure kinds of the summary in a stable order.
func (s EngineSummary) FailureKinds() []string {
	return slices.Sorted(maps.Keys(s.Failures))
}
