package run

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"

	"github.com/nao1215/fuzznorm/internal/engine"
)

// Run is a located run directory.
type Run struct {
	// Name is the directory name, e.g. "restler-httpbin-3".
	Name string

	// Path is the full path to the run directory.
	Path string
}

// FuzzerDir returns the directory holding the raw engine output.
func (r Run) FuzzerDir() string {
	return filepath.Join(r.Path, "fuzzer")
}

// Selectors restrict which runs are located.
// An empty list matches anything, a single value matches exactly
// and several values match any of them.
type Selectors struct {
	Engines []engine.Engine
	Targets []string
	Indices []string
}

// Pattern builds the glob pattern "<dir>/<engines>-<targets>-<indices>".
// The directory part is quoted so that it never acts as a pattern.
func Pattern(dir string, sel Selectors) (string, error) {
	if !utf8.ValidString(dir) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDirectoryName, dir)
	}

	engines := make([]string, len(sel.Engines))
	for i, e := range sel.Engines {
		engines[i] = e.String()
	}

	return fmt.Sprintf("%s/%s-%s-%s",
		glob.QuoteMeta(filepath.ToSlash(filepath.Clean(dir))),
		alternation(engines),
		alternation(sel.Targets),
		alternation(sel.Indices),
	), nil
}

// alternation renders one selector group.
func alternation(items []string) string {
	switch len(items) {
	case 0:
		return "*"
	case 1:
		return items[0]
	default:
		return "{" + strings.Join(items, ",") + "}"
	}
}

// Locate returns the top-level run directories of dir matching sel, sorted by name.
func Locate(dir string, sel Selectors) ([]Run, error) {
	pattern, err := Pattern(dir, sel)
	if err != nil {
		return nil, err
	}

	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPattern, pattern, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact directory: %w", err)
	}

	base := filepath.Clean(dir)
	runs := make([]Run, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(base, entry.Name())
		if g.Match(filepath.ToSlash(path)) {
			runs = append(runs, Run{Name: entry.Name(), Path: path})
		}
	}

	slices.SortFunc(runs, func(a, b Run) int {
		return strings.Compare(a.Name, b.Name)
	})
	return runs, nil
}
