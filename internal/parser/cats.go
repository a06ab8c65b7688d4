package parser

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/fuzznorm/internal/engine"
	"github.com/nao1215/fuzznorm/internal/model"
)

var (
	catsTestFileRe     = regexp.MustCompile(`^Test([0-9]+)\.js$`)
	catsFailedFuzzerRe = regexp.MustCompile(`Fuzzer \[.+?\] failed due to`)
	catsPassedContract = regexp.MustCompile(`Call returned as expected\. Response code [0-9]+ matches the contract\. Response body matches the contract!`)
)

const (
	catsSkippedMarker   = "Skipped due to:"
	catsExpectedFailure = "Request failed as expected for http method"
	catsUndocumented    = "Call returned as expected, but with undocumented code"
	catsBodyMismatch    = "Response body does NOT match the contract!"
	catsDocumentedCode  = "Call returned an unexpected result, but with documented code: expected"
)

// catsRecommendations lists fuzzers that only check naming style or the
// presence of good practices in the API schema.
var catsRecommendations = map[string]model.RecommendationKind{
	"NamingsContractInfoFuzzer":            model.RecommendationStyle,
	"PathTagsContractInfoFuzzer":           model.RecommendationStyle,
	"RecommendedHeadersContractInfoFuzzer": model.RecommendationStyle,
	"TopLevelElementsContractInfoFuzzer":   model.RecommendationStyle,
	"VersionsContractInfoFuzzer":           model.RecommendationStyle,
	"CheckSecurityHeadersFuzzer":           model.RecommendationSecurityHeaders,
	"XmlContentTypeContractInfoFuzzer":     model.RecommendationContentType,
}

// catsNotUniversal lists fuzzers whose expectations do not hold for every
// target. They expect 2xx (or 4xx) regardless of backend validation rules,
// so a 404 for a missing object makes them fail.
var catsNotUniversal = map[string]bool{
	"LeadingSpacesInFieldsTrimValidateFuzzer":   true,
	"TrailingSpacesInFieldsTrimValidateFuzzer":  true,
	"HappyFuzzer":                               true,
	"ExtraHeaderFuzzer":                         true,
	"NewFieldsFuzzer":                           true,
	"EmptyStringValuesInFieldsFuzzer":           true,
	"StringFormatAlmostValidValuesFuzzer":       true,
	"DuplicateHeaderFuzzer":                     true,
	"SpacesOnlyInFieldsTrimValidateFuzzer":      true,
	"StringFieldsLeftBoundaryFuzzer":            true,
	"StringFieldsRightBoundaryFuzzer":           true,
	"StringFormatTotallyWrongValuesFuzzer":      true,
	"ExtremeNegativeValueIntegerFieldsFuzzer":   true,
	"ExtremePositiveValueInIntegerFieldsFuzzer": true,
	"StringsInNumericFieldsFuzzer":              true,
	"BypassAuthenticationFuzzer":                true,
}

// catsIgnored lists fuzzers whose verdicts are outside of the research scope.
var catsIgnored = map[string]bool{
	"UnsupportedAcceptHeadersFuzzer":       true,
	"UnsupportedContentTypesHeadersFuzzer": true,
	"NullValuesInFieldsFuzzer":             true,
	"DummyRequestFuzzer":                   true,
	"DummyAcceptHeadersFuzzer":             true,
	"RemoveFieldsFuzzer":                   true,
	"DummyContentTypeHeadersFuzzer":        true,
	"VeryLargeStringsFuzzer":               true,
	"HttpMethodsFuzzer":                    true,
	"InvalidValuesInEnumsFieldsFuzzer":     true,
	"IntegerFieldsRightBoundaryFuzzer":     true,
	"IntegerFieldsLeftBoundaryFuzzer":      true,
	"DecimalValuesInIntegerFieldsFuzzer":   true,
}

// catsResult is the subset of a CATS test report that is classified.
type catsResult struct {
	Fuzzer        string `json:"fuzzer"`
	ResultDetails string `json:"resultDetails"`
	Path          string `json:"path"`
	Response      struct {
		HTTPMethod   string `json:"httpMethod"`
		ResponseCode int    `json:"responseCode"`
	} `json:"response"`
}

// catsTestFile is a report file with its sequence number.
type catsTestFile struct {
	name string
	seq  int
}

// parseCats parses the per-test report files written by CATS.
// Files are read lazily in test order.
func parseCats(dir string, opts Options) (Cases, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var files []catsTestFile
	for _, entry := range entries {
		m := catsTestFileRe.FindStringSubmatch(entry.Name())
		if m == nil || !entry.Type().IsRegular() {
			continue
		}
		seq, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, malformed("invalid test file name %q", entry.Name())
		}
		files = append(files, catsTestFile{name: entry.Name(), seq: seq})
	}
	slices.SortFunc(files, func(a, b catsTestFile) int {
		return cmp.Compare(a.seq, b.seq)
	})

	e := engine.Engine{Family: engine.Cats}
	return func(yield func(model.TestCase, error) bool) {
		for _, f := range files {
			path := filepath.Join(dir, f.name)
			data, err := os.ReadFile(path) //nolint:gosec // path is built from the run directory
			if err != nil {
				yield(model.TestCase{}, fmt.Errorf("failed to read %s: %w", path, err))
				return
			}
			tc, err := classifyCatsReport(data, opts)
			if err != nil {
				yield(model.TestCase{}, newBlockError(e, f.name+": "+string(data), err))
				return
			}
			if !yield(tc, nil) {
				return
			}
		}
	}, nil
}

// decodeCatsReport decodes the JSON object that follows the script preamble.
func decodeCatsReport(data []byte) (catsResult, error) {
	var r catsResult
	start := bytes.IndexByte(data, '{')
	if start < 0 {
		return r, malformed("report without json object")
	}
	if err := json.NewDecoder(bytes.NewReader(data[start:])).Decode(&r); err != nil {
		return r, malformed("invalid report: %v", err)
	}
	return r, nil
}

func classifyCatsReport(data []byte, opts Options) (model.TestCase, error) {
	r, err := decodeCatsReport(data)
	if err != nil {
		return model.TestCase{}, err
	}

	method := normalizeMethod(r.Response.HTTPMethod)
	path, err := normalizePath(r.Path)
	if err != nil {
		return model.TestCase{}, err
	}
	details := r.ResultDetails
	code := r.Response.ResponseCode

	switch {
	case catsFailedFuzzerRe.MatchString(details):
		return model.NewError(method, path, model.ErrorInternal), nil
	case strings.Contains(details, catsSkippedMarker):
		_, reason, _ := strings.Cut(details, catsSkippedMarker)
		return model.NewSkip(method, path, model.SkipCanNotTest, strings.TrimSpace(reason)), nil
	}

	if kind, ok := catsRecommendations[r.Fuzzer]; ok {
		return model.NewRecommendation(method, path, kind), nil
	}
	if catsNotUniversal[r.Fuzzer] {
		return model.NewSkip(method, path, model.SkipInvalidAssumption, r.Fuzzer+" does not apply to every target"), nil
	}
	if catsIgnored[r.Fuzzer] {
		return model.NewSkip(method, path, model.SkipNotInteresting, r.Fuzzer+" is out of scope"), nil
	}

	switch {
	case model.IsServerError(code):
		// Many fuzzers expect 2xx or 4xx and do not report 5xx specifically.
		return model.NewServerError(method, path, code), nil
	case strings.Contains(details, catsUndocumented):
		if !model.ValidStatusCode(code) {
			return model.TestCase{}, malformed("invalid status code %d", code)
		}
		return model.NewUnexpectedStatusCode(method, path, code), nil
	case strings.Contains(details, catsBodyMismatch):
		return model.NewFailure(method, path, model.FailureResponseConformance), nil
	case strings.Contains(details, catsExpectedFailure) || catsPassedContract.MatchString(details):
		return model.NewPass(method, path), nil
	case strings.Contains(details, catsDocumentedCode):
		return model.NewSkip(method, path, model.SkipNotInteresting, "unexpected result with a documented code"), nil
	}

	tc, _, err := unclassified(opts, method, path)
	if err != nil {
		return model.TestCase{}, fmt.Errorf("%w: fuzzer %s", err, r.Fuzzer)
	}
	return tc, nil
}
