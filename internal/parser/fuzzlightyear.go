package parser

import (
	"regexp"
	"strings"

	"github.com/nao1215/fuzznorm/internal/engine"
	"github.com/nao1215/fuzznorm/internal/model"
)

var (
	fuzzLightyearFailuresRe = regexp.MustCompile(`=+ Test Failures =+`)
	fuzzLightyearHeaderRe   = regexp.MustCompile(`_+ ?[A-Za-z0-9._]*? \[\w+\] ?_+`)
)

// parseFuzzLightyear parses the "Test Failures" section of fuzz-lightyear.
// Output without that section yields no test cases. Blocks that match no
// rule describe no request and are dropped.
func parseFuzzLightyear(dir string, _ Options) (Cases, error) {
	content, err := readStdout(dir)
	if err != nil {
		return nil, err
	}
	loc := fuzzLightyearFailuresRe.FindStringIndex(content)
	if loc == nil {
		return emptyCases, nil
	}
	blocks := fuzzLightyearHeaderRe.Split(content[loc[1]:], -1)
	e := engine.Engine{Family: engine.FuzzLightyear}
	return blockCases(e, blocks, classifyFuzzLightyear), nil
}

func classifyFuzzLightyear(block string) (model.TestCase, bool, error) {
	// fuzz-lightyear does not print the request line of a failure.
	switch {
	case strings.Contains(block, "422 UNPROCESSABLE ENTITY"),
		strings.Contains(block, "400 BAD REQUEST"),
		strings.Contains(block, "404 NOT FOUND"):
		return found(model.NewSkip("", "", model.SkipNotInteresting, "Reports regular 422, 400, 404 as failures"))
	case strings.Contains(block, "SwaggerMappingError"):
		return found(model.NewError("", "", model.ErrorInternal))
	case strings.Contains(block, "jsonschema.exceptions.ValidationError"):
		return found(model.NewFailure("", "", model.FailureResponseConformance))
	case strings.Contains(block, "HTTPInternalServerError"):
		return found(model.NewServerError("", "", 500))
	default:
		return model.TestCase{}, false, nil
	}
}
