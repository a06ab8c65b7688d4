package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/nao1215/fuzznorm/internal/engine"
	"github.com/nao1215/fuzznorm/internal/model"
)

// schemathesisEventsFile holds one JSON event per line.
const schemathesisEventsFile = "out.jsonl"

const schemathesisAfterExecution = "AfterExecution"

// schemathesisEvent is the subset of an event that carries check results.
type schemathesisEvent struct {
	EventType string              `json:"event_type"`
	Result    *schemathesisResult `json:"result"`
}

type schemathesisResult struct {
	Method string              `json:"method"`
	Path   string              `json:"path"`
	Checks []schemathesisCheck `json:"checks"`
}

type schemathesisCheck struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Response *struct {
		StatusCode int `json:"status_code"`
	} `json:"response"`
	Context *struct {
		Type string `json:"type"`
	} `json:"context"`
}

// schemathesisEventParser parses the event stream written in the given
// mode. Each check of each AfterExecution event becomes one test case.
func schemathesisEventParser(mode engine.Mode) ParseFunc {
	e := engine.Engine{Family: engine.Schemathesis, Mode: mode}
	return func(dir string, opts Options) (Cases, error) {
		return parseSchemathesisEvents(e, dir, opts)
	}
}

func parseSchemathesisEvents(e engine.Engine, dir string, opts Options) (Cases, error) {
	path := filepath.Join(dir, schemathesisEventsFile)
	data, err := os.ReadFile(path) //nolint:gosec // path is built from the run directory
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return func(yield func(model.TestCase, error) bool) {
		for line := range bytes.Lines(data) {
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			var event schemathesisEvent
			if err := json.Unmarshal(line, &event); err != nil {
				yield(model.TestCase{}, newBlockError(e, string(line), malformed("invalid event: %v", err)))
				return
			}
			if event.EventType != schemathesisAfterExecution {
				continue
			}
			if event.Result == nil {
				yield(model.TestCase{}, newBlockError(e, string(line), malformed("event without result")))
				return
			}

			method := normalizeMethod(event.Result.Method)
			path, err := normalizePath(event.Result.Path)
			if err != nil {
				yield(model.TestCase{}, newBlockError(e, string(line), err))
				return
			}
			for _, check := range event.Result.Checks {
				tc, err := classifySchemathesisCheck(method, path, check, opts)
				if err != nil {
					yield(model.TestCase{}, newBlockError(e, string(line), err))
					return
				}
				if !yield(tc, nil) {
					return
				}
			}
		}
	}, nil
}

func classifySchemathesisCheck(method, path string, check schemathesisCheck, opts Options) (model.TestCase, error) {
	switch check.Value {
	case "success":
		return model.NewPass(method, path), nil
	case "error":
		return model.NewError(method, path, model.ErrorInternal), nil
	case "failure":
	default:
		return model.TestCase{}, malformed("unknown check status %q", check.Value)
	}

	switch check.Name {
	case "not_a_server_error", "status_code_conformance":
		if check.Response == nil {
			return model.TestCase{}, malformed("check %s without response", check.Name)
		}
		code := check.Response.StatusCode
		if !model.ValidStatusCode(code) {
			return model.TestCase{}, malformed("invalid status code %d", code)
		}
		if check.Name == "not_a_server_error" {
			return model.NewServerError(method, path, code), nil
		}
		return model.NewUnexpectedStatusCode(method, path, code), nil
	case "content_type_conformance":
		kind := model.FailureContentTypeConformance
		if check.Context != nil {
			switch check.Context.Type {
			case "malformed_media_type":
				kind = model.FailureMalformedMediaType
			case "missing_content_type":
				kind = model.FailureMissingContentType
			}
		}
		return model.NewFailure(method, path, kind), nil
	case "response_headers_conformance":
		return model.NewFailure(method, path, model.FailureResponseHeadersConformance), nil
	case "response_schema_conformance":
		return model.NewFailure(method, path, model.FailureResponseConformance), nil
	case "request_timeout":
		return model.NewFailure(method, path, model.FailureRequestTimeout), nil
	}

	tc, _, err := unclassified(opts, method, path)
	if err != nil {
		return model.TestCase{}, fmt.Errorf("%w: check %q", err, check.Name)
	}
	return tc, nil
}

var (
	hypothesisBannerRe     = regexp.MustCompile(`(?m)^-+ Hypothesis -+\s*$`)
	schemathesisStepRe     = regexp.MustCompile(`_step\(case=state\.schema\['(.+?)'\]\['(\w+?)'\]`)
	schemathesisSchemaRe   = regexp.MustCompile(`state\.schema\['(.+?)'\]\['(.+?)'\]`)
	schemathesisServerRe   = regexp.MustCompile(`Received a response with 5xx status code: ([0-9]{3})`)
	schemathesisFailureRe  = regexp.MustCompile(`^[0-9]+\. `)
	schemathesisUnknownRe  = regexp.MustCompile(`Received a response with a status code, which is not defined in the schema: ([0-9]+)`)
	schemathesisContentRe  = regexp.MustCompile(`Received a response with '(.+?)' Content-Type, but it is not declared in the schema\.`)
	schemathesisFlakyTexts = []string{
		"hypothesis.errors.Flaky: Unreliable assumption",
		"hypothesis.errors.Flaky: Inconsistent data generation!",
	}
)

const (
	pytestMultipleFailures = "hypothesis.errors.MultipleFailures"
	pytestFailures         = "== FAILURES =="
	falsifyingExample      = "Falsifying example:"
)

// parseSchemathesisPytest parses the pytest transcript of the stateful
// mode driven by Hypothesis state machines.
func parseSchemathesisPytest(dir string, opts Options) (Cases, error) {
	content, err := readStdout(dir)
	if err != nil {
		return nil, err
	}

	e := engine.Engine{Family: engine.Schemathesis, Mode: engine.StatefulNew}
	classify := func(block string) (model.TestCase, bool, error) {
		return classifyPytestCase(block, opts)
	}

	switch {
	case strings.Contains(content, pytestMultipleFailures):
		loc := hypothesisBannerRe.FindStringIndex(content)
		if loc == nil {
			return nil, newBlockError(e, content, malformed("multiple failures without hypothesis section"))
		}
		blocks := strings.Split(content[loc[1]:], falsifyingExample)
		return blockCases(e, blocks[1:], classify), nil
	case strings.Contains(content, pytestFailures):
		return blockCases(e, []string{content}, classify), nil
	default:
		return emptyCases, nil
	}
}

func classifyPytestCase(block string, opts Options) (model.TestCase, bool, error) {
	if strings.Contains(block, "InvalidSchema:") {
		m := schemathesisStepRe.FindStringSubmatch(block)
		if m == nil {
			return failed(malformed("schema error without state machine step"))
		}
		path, err := normalizePath(m[1])
		if err != nil {
			return failed(err)
		}
		return found(model.NewError(normalizeMethod(m[2]), path, model.ErrorSchema))
	}
	for _, text := range schemathesisFlakyTexts {
		if strings.Contains(block, text) {
			return found(model.NewError("", "", model.ErrorFlaky))
		}
	}
	if strings.Contains(block, "hypothesis.errors.Unsatisfiable:") {
		return found(model.NewError("", "", model.ErrorUnsatisfiable))
	}

	// The last schema reference is the call that failed.
	refs := schemathesisSchemaRe.FindAllStringSubmatch(block, -1)
	if len(refs) == 0 {
		return failed(malformed("failure without schema operation"))
	}
	last := refs[len(refs)-1]
	method := normalizeMethod(last[2])
	path, err := normalizePath(last[1])
	if err != nil {
		return failed(err)
	}

	if m := schemathesisServerRe.FindStringSubmatch(block); m != nil {
		code, _ := strconv.Atoi(m[1])
		if !model.IsServerError(code) {
			return failed(malformed("invalid server error code %q", m[1]))
		}
		return found(model.NewServerError(method, path, code))
	}
	return unclassified(opts, method, path)
}

// deduplicateSchemathesis counts the failures listed per operation in the
// FAILURES section of the CLI output.
func deduplicateSchemathesis(dir string) ([]model.DedupEntry, error) {
	content, err := readStdout(dir)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(content, "FAILURES") {
		return nil, nil
	}

	e := engine.Engine{Family: engine.Schemathesis}
	collector := model.NewDedupCollector()
	var method, path string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasSuffix(trimmed, "[P]") || strings.HasSuffix(trimmed, "[N]"):
			fields := strings.Fields(trimmed)
			if len(fields) < 3 {
				return nil, newBlockError(e, line, malformed("operation line without method and path"))
			}
			method = normalizeMethod(fields[0])
			if path, err = normalizePath(fields[1]); err != nil {
				return nil, newBlockError(e, line, err)
			}
		case schemathesisFailureRe.MatchString(line):
			if method == "" {
				return nil, newBlockError(e, line, malformed("failure listed before any operation"))
			}
			category, err := schemathesisFailureCategory(trimmed)
			if err != nil {
				return nil, newBlockError(e, line, err)
			}
			collector.Add(method, path, category)
		}
	}

	if collector.Len() == 0 {
		return nil, nil
	}
	return collector.Entries(), nil
}

// schemathesisFailureCategory maps one numbered failure line to a failure kind.
func schemathesisFailureCategory(line string) (string, error) {
	switch {
	case schemathesisServerRe.MatchString(line):
		return string(model.FailureServerError), nil
	case strings.Contains(line, "Response timed out after"):
		return string(model.FailureRequestTimeout), nil
	case strings.Contains(line, "The received response does not conform to the defined schema"):
		return string(model.FailureResponseConformance), nil
	case schemathesisUnknownRe.MatchString(line):
		return string(model.FailureUnexpectedStatusCode), nil
	case schemathesisContentRe.MatchString(line):
		return string(model.FailureContentTypeConformance), nil
	case strings.Contains(line, "Response is missing the `Content-Type` header"):
		return string(model.FailureMissingContentType), nil
	case strings.Contains(line, "Malformed media type"):
		return string(model.FailureMalformedMediaType), nil
	default:
		return "", ErrUnclassified
	}
}
