package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nao1215/fuzznorm/internal/engine"
	"github.com/nao1215/fuzznorm/internal/model"
)

var ansiEscapeRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

const (
	tntFuzzerTableMarker = "Fetching open API from: "
	tntFuzzerNoReason    = "None"
	tntFuzzerCells       = 5
)

// parseTnTFuzzer parses the result table printed by TnT-Fuzzer.
// Rows look like "method|url|-|status|documented reason".
// Output without a table yields no test cases.
func parseTnTFuzzer(dir string, opts Options) (Cases, error) {
	content, err := readStdout(dir)
	if err != nil {
		return nil, err
	}
	_, table, ok := strings.Cut(content, tntFuzzerTableMarker)
	if !ok {
		return emptyCases, nil
	}

	lines := strings.Split(table, "\n")
	rows := make([]string, 0, len(lines))
	// The first line holds the schema location.
	for _, line := range lines[1:] {
		if strings.TrimSpace(ansiEscapeRe.ReplaceAllString(line, "")) == "" {
			continue
		}
		rows = append(rows, line)
	}

	e := engine.Engine{Family: engine.TnTFuzzer}
	return blockCases(e, rows, func(row string) (model.TestCase, bool, error) {
		return classifyTnTFuzzerRow(row, opts)
	}), nil
}

func classifyTnTFuzzerRow(row string, _ Options) (model.TestCase, bool, error) {
	cells := strings.Split(ansiEscapeRe.ReplaceAllString(row, ""), "|")
	if len(cells) < tntFuzzerCells {
		return failed(malformed("expected %d table cells, got %d", tntFuzzerCells, len(cells)))
	}

	method := normalizeMethod(cells[0])
	path, err := normalizePath(cells[1])
	if err != nil {
		return failed(err)
	}
	code, err := strconv.Atoi(strings.TrimSpace(cells[3]))
	if err != nil || !model.ValidStatusCode(code) {
		return failed(malformed("invalid status code %q", strings.TrimSpace(cells[3])))
	}
	reason := strings.TrimSpace(cells[4])

	switch {
	case model.IsServerError(code):
		return found(model.NewServerError(method, path, code))
	case reason == tntFuzzerNoReason:
		// Python's None: the status code is not documented.
		return found(model.NewUnexpectedStatusCode(method, path, code))
	default:
		return found(model.NewPass(method, path))
	}
}
