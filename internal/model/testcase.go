package model

import (
	"encoding/json"
	"fmt"
)

// TestCase is one classified outcome for a single request attempt
// observed in a run's raw output.
//
// Method and Path are empty when the engine output does not attribute
// the outcome to an endpoint (flaky or unsatisfiable generation, for example).
// Path is always the URL path component only.
type TestCase struct {
	Method  string
	Path    string
	Outcome Outcome
}

// NewPass creates a passed test case.
func NewPass(method, path string) TestCase {
	return TestCase{Method: method, Path: path, Outcome: Pass{}}
}

// NewFailure creates a failed test case without a status code.
func NewFailure(method, path string, kind FailureKind) TestCase {
	return TestCase{Method: method, Path: path, Outcome: Failure{Kind: kind}}
}

// NewServerError creates a 5xx failure.
func NewServerError(method, path string, statusCode int) TestCase {
	return TestCase{
		Method:  method,
		Path:    path,
		Outcome: Failure{Kind: FailureServerError, StatusCode: statusCode},
	}
}

// NewUnexpectedStatusCode creates a failure for an undocumented status code.
func NewUnexpectedStatusCode(method, path string, statusCode int) TestCase {
	return TestCase{
		Method:  method,
		Path:    path,
		Outcome: Failure{Kind: FailureUnexpectedStatusCode, StatusCode: statusCode},
	}
}

// NewStatusFailure picks ServerError for 5xx codes and UnexpectedStatusCode otherwise.
func NewStatusFailure(method, path string, statusCode int) TestCase {
	if IsServerError(statusCode) {
		return NewServerError(method, path, statusCode)
	}
	return NewUnexpectedStatusCode(method, path, statusCode)
}

// NewError creates a test case that failed on the fuzzing side.
func NewError(method, path string, kind ErrorKind) TestCase {
	return TestCase{Method: method, Path: path, Outcome: Errored{Kind: kind}}
}

// NewSkip creates a skipped test case.
func NewSkip(method, path string, kind SkipKind, reason string) TestCase {
	return TestCase{Method: method, Path: path, Outcome: Skip{Kind: kind, Reason: reason}}
}

// NewRecommendation creates a recommendation test case.
func NewRecommendation(method, path string, kind RecommendationKind) TestCase {
	return TestCase{Method: method, Path: path, Outcome: Recommendation{Kind: kind}}
}

// wireKind is the nested "kind" object of a serialized test case.
type wireKind struct {
	Type       string `json:"type"`
	StatusCode int    `json:"status_code,omitempty"`
}

// wireTestCase is the serialized shape of a TestCase.
type wireTestCase struct {
	Method string      `json:"method,omitempty"`
	Path   string      `json:"path,omitempty"`
	Type   OutcomeType `json:"type"`
	Kind   *wireKind   `json:"kind,omitempty"`
	Reason string      `json:"reason,omitempty"`
}

// MarshalJSON encodes the test case as a discriminated union:
//
//	{"method":"GET","path":"/users","type":"failure","kind":{"type":"server_error","status_code":500}}
func (tc TestCase) MarshalJSON() ([]byte, error) {
	w := wireTestCase{Method: tc.Method, Path: tc.Path}

	switch o := tc.Outcome.(type) {
	case Pass:
		w.Type = OutcomePass
	case Skip:
		w.Type = OutcomeSkip
		w.Kind = &wireKind{Type: string(o.Kind)}
		w.Reason = o.Reason
	case Recommendation:
		w.Type = OutcomeRecommendation
		w.Kind = &wireKind{Type: string(o.Kind)}
	case Failure:
		w.Type = OutcomeFailure
		w.Kind = &wireKind{Type: string(o.Kind)}
		if o.Kind.HasStatusCode() {
			if !ValidStatusCode(o.StatusCode) {
				return nil, fmt.Errorf("invalid status code %d for %s", o.StatusCode, o.Kind)
			}
			w.Kind.StatusCode = o.StatusCode
		}
	case Errored:
		w.Type = OutcomeError
		w.Kind = &wireKind{Type: string(o.Kind)}
	default:
		return nil, fmt.Errorf("test case has no outcome: %s %s", tc.Method, tc.Path)
	}

	return json.Marshal(w)
}
