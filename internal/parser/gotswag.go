package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nao1215/fuzznorm/internal/engine"
	"github.com/nao1215/fuzznorm/internal/model"
)

var (
	gotSwagCaseRe       = regexp.MustCompile(`\d+\) Got Swag\? https?://.+?: `)
	gotSwagOperationRe  = regexp.MustCompile(`(\w+?) (.+?) Monkey Test`)
	gotSwagServerRe     = regexp.MustCompile(`Status (5\d{2}) detected`)
	gotSwagUnexpectedRe = regexp.MustCompile(`Unexpected response status (\d{3})`)
)

// gotSwagSkip is a known message that makes a verdict unusable.
type gotSwagSkip struct {
	marker string
	kind   model.SkipKind
	reason string
}

var gotSwagSkips = []gotSwagSkip{
	{"Error: done() invoked with non-Error: Could not authenticate", model.SkipCanNotTest, "Missing auth"},
	{"Could not GET", model.SkipCanNotTest, "Can not make a GET request"},
	{"Invalid data", model.SkipInvalidAssumption, "Concludes failure if data is not object or falsy"},
	{"Body should be empty", model.SkipInvalidAssumption, "Expects empty body if schema is an empty object"},
}

// parseGotSwag parses the mocha-style failure list printed by got-swag.
func parseGotSwag(dir string, opts Options) (Cases, error) {
	content, err := readStdout(dir)
	if err != nil {
		return nil, err
	}
	blocks := gotSwagCaseRe.Split(content, -1)
	e := engine.Engine{Family: engine.GotSwag}
	return blockCases(e, blocks[1:], func(block string) (model.TestCase, bool, error) {
		return classifyGotSwag(block, opts)
	}), nil
}

func classifyGotSwag(block string, opts Options) (model.TestCase, bool, error) {
	m := gotSwagOperationRe.FindStringSubmatch(block)
	if m == nil {
		return failed(malformed("monkey test title not found"))
	}
	method := normalizeMethod(m[1])
	path, err := normalizePath(m[2])
	if err != nil {
		return failed(err)
	}

	for _, s := range gotSwagSkips {
		if strings.Contains(block, s.marker) {
			return found(model.NewSkip(method, path, s.kind, s.reason))
		}
	}
	if strings.Contains(block, "write EPROTO") {
		return found(model.NewError(method, path, model.ErrorInternal))
	}
	if strings.Contains(block, "is not of a type(s) ") || strings.Contains(block, "does not conform to the") {
		return found(model.NewFailure(method, path, model.FailureResponseConformance))
	}
	if m := gotSwagUnexpectedRe.FindStringSubmatch(block); m != nil {
		code, err := strconv.Atoi(m[1])
		if err != nil || !model.ValidStatusCode(code) {
			return failed(malformed("invalid status code %q", m[1]))
		}
		return found(model.NewStatusFailure(method, path, code))
	}
	if m := gotSwagServerRe.FindStringSubmatch(block); m != nil {
		code, _ := strconv.Atoi(m[1])
		return found(model.NewServerError(method, path, code))
	}
	return unclassified(opts, method, path)
}
