package parser

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/fuzznorm/internal/model"
)

// catsReport renders a CATS test report file.
func catsReport(fuzzer, details, method, path string, code int) string {
	return fmt.Sprintf(`var testCase = {"fuzzer": %q, "resultDetails": %q, "path": %q, "response": {"httpMethod": %q, "responseCode": %d}, "scenario": "x"}`,
		fuzzer, details, path, method, code)
}

// TestParseCats tests the cascade order and numeric file ordering.
func TestParseCats(t *testing.T) {
	t.Parallel()

	dir := writeRun(t, map[string]string{
		"Test1.js":   catsReport("RandomFuzzer", "Fuzzer [RandomFuzzer] failed due to NullPointerException", "GET", "/pets", 0),
		"Test2.js":   catsReport("RandomFuzzer", "Skipped due to: no credentials", "GET", "/pets", 0),
		"Test3.js":   catsReport("CheckSecurityHeadersFuzzer", "Missing recommended Security Headers", "GET", "/pets", 500),
		"Test4.js":   catsReport("HappyFuzzer", "Call returned as expected. Response code 200 matches the contract. Response body matches the contract!", "GET", "/pets/{id}", 200),
		"Test5.js":   catsReport("VeryLargeStringsFuzzer", "Call returned as expected, but with undocumented code: expected [400], actual [413].", "POST", "/pets", 413),
		"Test6.js":   catsReport("RandomResourcesFuzzer", "Unexpected behaviour", "GET", "/pets/{id}", 503),
		"Test7.js":   catsReport("RandomResourcesFuzzer", "Call returned as expected, but with undocumented code: expected [200, 404], actual [418].", "GET", "/pets/{id}", 418),
		"Test8.js":   catsReport("RandomResourcesFuzzer", "Call returned as expected. Response code 200 matches the contract. Response body does NOT match the contract!", "GET", "/pets?limit=1", 200),
		"Test9.js":   catsReport("RandomResourcesFuzzer", "Request failed as expected for http method [DELETE]", "delete", "/pets/{id}", 404),
		"Test10.js":  catsReport("RandomResourcesFuzzer", "Call returned an unexpected result, but with documented code: expected [2XX], actual [404]", "PUT", "/pets/{id}", 404),
		"index.html": "<html></html>",
		"Test.js":    "not a report",
	})
	got := mustParse(t, parseCats, dir, Options{})

	expected := []model.TestCase{
		model.NewError("GET", "/pets", model.ErrorInternal),
		model.NewSkip("GET", "/pets", model.SkipCanNotTest, "no credentials"),
		model.NewRecommendation("GET", "/pets", model.RecommendationSecurityHeaders),
		model.NewSkip("GET", "/pets/{id}", model.SkipInvalidAssumption, "HappyFuzzer does not apply to every target"),
		model.NewSkip("POST", "/pets", model.SkipNotInteresting, "VeryLargeStringsFuzzer is out of scope"),
		model.NewServerError("GET", "/pets/{id}", 503),
		model.NewUnexpectedStatusCode("GET", "/pets/{id}", 418),
		model.NewFailure("GET", "/pets", model.FailureResponseConformance),
		model.NewPass("DELETE", "/pets/{id}"),
		model.NewSkip("PUT", "/pets/{id}", model.SkipNotInteresting, "unexpected result with a documented code"),
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("cases mismatch (-want +got):\n%s", diff)
	}
}

// TestParseCatsSuppression tests that suppressed fuzzers never yield Pass or Failure.
func TestParseCatsSuppression(t *testing.T) {
	t.Parallel()

	verdicts := []struct {
		details string
		code    int
	}{
		{"Call returned as expected. Response code 200 matches the contract. Response body matches the contract!", 200},
		{"Call returned as expected, but with undocumented code: expected [200], actual [418].", 418},
		{"Response body does NOT match the contract!", 200},
		{"Internal error", 500},
	}

	suppressed := make(map[string]model.OutcomeType)
	for name := range catsRecommendations {
		suppressed[name] = model.OutcomeRecommendation
	}
	for name := range catsNotUniversal {
		suppressed[name] = model.OutcomeSkip
	}
	for name := range catsIgnored {
		suppressed[name] = model.OutcomeSkip
	}

	for name, want := range suppressed {
		for i, v := range verdicts {
			tc, err := classifyCatsReport([]byte(catsReport(name, v.details, "GET", "/a", v.code)), Options{})
			if err != nil {
				t.Fatalf("%s/%d: unexpected error: %v", name, i, err)
			}
			if tc.Outcome.Type() != want {
				t.Errorf("%s/%d: got %s, expected %s", name, i, tc.Outcome.Type(), want)
			}
		}
	}
}

// TestParseCatsUnclassified tests the unclassified policy.
func TestParseCatsUnclassified(t *testing.T) {
	t.Parallel()

	report := catsReport("RandomResourcesFuzzer", "Something CATS never printed before", "GET", "/a", 200)
	dir := writeRun(t, map[string]string{"Test1.js": report})

	if err := parseErr(t, parseCats, dir, Options{}); !errors.Is(err, ErrUnclassified) {
		t.Errorf("expected ErrUnclassified, got %v", err)
	}

	got := mustParse(t, parseCats, dir, Options{Lenient: true})
	if diff := cmp.Diff([]model.TestCase{model.NewPass("GET", "/a")}, got); diff != "" {
		t.Errorf("cases mismatch (-want +got):\n%s", diff)
	}
}

// TestParseCatsMalformed tests reports without a JSON object.
func TestParseCatsMalformed(t *testing.T) {
	t.Parallel()

	dir := writeRun(t, map[string]string{"Test1.js": "var testCase = ;"})
	if err := parseErr(t, parseCats, dir, Options{}); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput, got %v", err)
	}
}
