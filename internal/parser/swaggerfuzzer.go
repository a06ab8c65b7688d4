package parser

import (
	"regexp"
	"strings"

	"github.com/nao1215/fuzznorm/internal/engine"
	"github.com/nao1215/fuzznorm/internal/model"
)

var swaggerFuzzerCurlRe = regexp.MustCompile(`Curl command: curl -i -X (\w+) .+ '(https?://.+)'`)

// parseSwaggerFuzzer parses the Hypothesis falsifying examples printed by swagger-fuzzer.
func parseSwaggerFuzzer(dir string, opts Options) (Cases, error) {
	content, err := readStdout(dir)
	if err != nil {
		return nil, err
	}
	blocks := strings.Split(content, falsifyingExample)
	e := engine.Engine{Family: engine.SwaggerFuzzer}
	return blockCases(e, blocks[1:], func(block string) (model.TestCase, bool, error) {
		return classifySwaggerFuzzer(block, opts)
	}), nil
}

func classifySwaggerFuzzer(block string, opts Options) (model.TestCase, bool, error) {
	// The curl command is not printed for every example.
	var method, path string
	if m := swaggerFuzzerCurlRe.FindStringSubmatch(block); m != nil {
		p, err := normalizePath(m[2])
		if err != nil {
			return failed(err)
		}
		method, path = normalizeMethod(m[1]), p
	}

	switch {
	case strings.Contains(block, "AssertionError: Response content-type"):
		return found(model.NewFailure(method, path, model.FailureContentTypeConformance))
	case strings.Contains(block, "Exception: ('Invalid',"):
		return found(model.NewError(method, path, model.ErrorSchema))
	default:
		return unclassified(opts, method, path)
	}
}
