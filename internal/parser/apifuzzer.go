package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nao1215/fuzznorm/internal/engine"
	"github.com/nao1215/fuzznorm/internal/model"
)

var (
	apiFuzzerCaseRe        = regexp.MustCompile(`[0-9]+ \[INFO\] kitty: Current test: [0-9]+`)
	apiFuzzerCompiledURLRe = regexp.MustCompile(`[0-9]+ \[INFO\] kitty: Compiled url in (.+?), out:`)
	apiFuzzerRequestURLRe  = regexp.MustCompile(`[0-9]+ \[INFO\] kitty: Request URL : b'(\w+?)' (.+?)[\r\n?]`)
	apiFuzzerMethodRe      = regexp.MustCompile(`[0-9]+ \[INFO\] kitty: Request URL : b'(\w+?)'`)
	apiFuzzerStatusRe      = regexp.MustCompile(`is not in the expected list:', ([0-9]+?)\)`)
)

const apiFuzzerCurlError = "pycurl.error: (3, '')"

// parseAPIFuzzer parses the kitty-based API fuzzer transcript.
// The text before the first test banner is a preamble and is skipped.
func parseAPIFuzzer(dir string, opts Options) (Cases, error) {
	content, err := readStdout(dir)
	if err != nil {
		return nil, err
	}
	blocks := apiFuzzerCaseRe.Split(content, -1)
	if len(blocks) < 2 {
		return emptyCases, nil
	}
	e := engine.Engine{Family: engine.APIFuzzer}
	return blockCases(e, blocks[1:], func(block string) (model.TestCase, bool, error) {
		return classifyAPIFuzzer(block, opts)
	}), nil
}

func classifyAPIFuzzer(block string, _ Options) (model.TestCase, bool, error) {
	method, rawURL, err := apiFuzzerRequest(block)
	if err != nil {
		return failed(err)
	}
	path, err := normalizePath(rawURL)
	if err != nil {
		return failed(err)
	}

	if strings.Contains(block, apiFuzzerCurlError) {
		return found(model.NewError(method, path, model.ErrorInternal))
	}
	if m := apiFuzzerStatusRe.FindStringSubmatch(block); m != nil {
		code, err := strconv.Atoi(m[1])
		if err != nil || !model.ValidStatusCode(code) {
			return failed(malformed("invalid status code %q", m[1]))
		}
		return found(model.NewStatusFailure(method, path, code))
	}
	// The engine only logs deviations from the expected responses.
	return found(model.NewPass(method, path))
}

// apiFuzzerRequest extracts the method and the URL of a test block.
// A URL with rendered path parameters is preferred over the raw request URL.
func apiFuzzerRequest(block string) (method, rawURL string, err error) {
	if m := apiFuzzerCompiledURLRe.FindStringSubmatch(block); m != nil {
		mm := apiFuzzerMethodRe.FindStringSubmatch(block)
		if mm == nil {
			return "", "", malformed("compiled url without request method")
		}
		return normalizeMethod(mm[1]), m[1], nil
	}
	if m := apiFuzzerRequestURLRe.FindStringSubmatch(block); m != nil {
		return normalizeMethod(m[1]), m[2], nil
	}
	return "", "", malformed("request url not found")
}
