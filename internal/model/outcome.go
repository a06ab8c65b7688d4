package model

// OutcomeType is the discriminator of an Outcome.
// Its values are the "type" tags used in the serialized result files.
type OutcomeType string

const (
	// OutcomePass means the request behaved as the schema documents.
	OutcomePass OutcomeType = "pass"

	// OutcomeSkip means the engine's verdict cannot be used for comparison.
	OutcomeSkip OutcomeType = "skip"

	// OutcomeRecommendation marks style or best-practice advice that is not a defect.
	OutcomeRecommendation OutcomeType = "recommendation"

	// OutcomeFailure marks a defect found in the target.
	OutcomeFailure OutcomeType = "failure"

	// OutcomeError marks a problem on the fuzzing side (engine or schema).
	OutcomeError OutcomeType = "error"
)

// FailureKind categorizes a Failure outcome.
type FailureKind string

const (
	// FailureServerError is a response with a 5xx status code.
	FailureServerError FailureKind = "server_error"

	// FailureUnexpectedStatusCode is a response status not documented in the schema.
	FailureUnexpectedStatusCode FailureKind = "unexpected_status_code"

	// FailureResponseConformance is a response body that violates the schema.
	FailureResponseConformance FailureKind = "response_conformance"

	// FailureResponseHeadersConformance is a response missing documented headers.
	FailureResponseHeadersConformance FailureKind = "response_headers_conformance"

	// FailureContentTypeConformance is an undocumented response Content-Type.
	FailureContentTypeConformance FailureKind = "content_type_conformance"

	// FailureRequestTimeout is a request that did not complete in time.
	FailureRequestTimeout FailureKind = "request_timeout"

	// FailureMissingContentType is a response without a Content-Type header.
	FailureMissingContentType FailureKind = "missing_content_type"

	// FailureMalformedMediaType is a response whose Content-Type cannot be parsed.
	FailureMalformedMediaType FailureKind = "malformed_media_type"
)

// HasStatusCode reports whether failures of this kind carry a status code.
func (k FailureKind) HasStatusCode() bool {
	return k == FailureServerError || k == FailureUnexpectedStatusCode
}

// ErrorKind categorizes an Errored outcome.
type ErrorKind string

const (
	ErrorFlaky         ErrorKind = "flaky"
	ErrorUnsatisfiable ErrorKind = "unsatisfiable"
	ErrorSchema        ErrorKind = "schema"
	ErrorInternal      ErrorKind = "internal"
)

// SkipKind categorizes a Skip outcome.
type SkipKind string

const (
	// SkipInvalidAssumption is a check whose expectations do not hold for every target.
	SkipInvalidAssumption SkipKind = "invalid_assumption"

	// SkipCanNotTest is a case the engine could not execute (e.g. missing auth).
	SkipCanNotTest SkipKind = "can_not_test"

	// SkipNotInteresting is a verdict outside of the research scope.
	SkipNotInteresting SkipKind = "not_interesting"
)

// RecommendationKind categorizes a Recommendation outcome.
type RecommendationKind string

const (
	// RecommendationStyle covers naming, tagging and versioning advice.
	RecommendationStyle RecommendationKind = "style"

	// RecommendationSecurityHeaders covers missing security-related response headers.
	RecommendationSecurityHeaders RecommendationKind = "security_headers"

	// RecommendationContentType covers unsupported but optional media types.
	RecommendationContentType RecommendationKind = "content_type"
)

// Outcome is the classified result of a single test case.
// It is implemented only by Pass, Skip, Recommendation, Failure and Errored.
type Outcome interface {
	// Type returns the discriminator of the outcome.
	Type() OutcomeType

	// Label returns the most specific category name,
	// i.e. the kind for non-pass outcomes and "pass" otherwise.
	Label() string

	sealed()
}

// Pass is a test case that behaved as documented.
type Pass struct{}

// Skip is a test case excluded from comparison.
type Skip struct {
	Kind   SkipKind
	Reason string
}

// Recommendation is non-actionable advice produced by an engine.
type Recommendation struct {
	Kind RecommendationKind
}

// Failure is a defect found in the target.
// StatusCode is set only when Kind.HasStatusCode() is true.
type Failure struct {
	Kind       FailureKind
	StatusCode int
}

// Errored is a problem on the fuzzing side.
type Errored struct {
	Kind ErrorKind
}

func (Pass) Type() OutcomeType           { return OutcomePass }
func (Skip) Type() OutcomeType           { return OutcomeSkip }
func (Recommendation) Type() OutcomeType { return OutcomeRecommendation }
func (Failure) Type() OutcomeType        { return OutcomeFailure }
func (Errored) Type() OutcomeType        { return OutcomeError }

func (Pass) Label() string             { return string(OutcomePass) }
func (s Skip) Label() string           { return string(s.Kind) }
func (r Recommendation) Label() string { return string(r.Kind) }
func (f Failure) Label() string        { return string(f.Kind) }
func (e Errored) Label() string        { return string(e.Kind) }

func (Pass) sealed()           {}
func (Skip) sealed()           {}
func (Recommendation) sealed() {}
func (Failure) sealed()        {}
func (Errored) sealed()        {}

// ValidStatusCode reports whether code is a three digit HTTP status code.
func ValidStatusCode(code int) bool {
	return code >= 100 && code <= 599
}

// IsServerError reports whether code is in the 5xx range.
func IsServerError(code int) bool {
	return code >= 500 && code <= 599
}
