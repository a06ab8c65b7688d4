package report

import (
	"io"

	"github.com/nao1215/fuzznorm/internal/model"
)

// WriteDedupFile writes entries to path atomically.
// When entries is empty nothing is written and a file left at path by an
// earlier run is removed, so the file exists only for runs with findings.
// It returns the digest of the written file, or "" when nothing was written.
func WriteDedupFile(path string, entries []model.DedupEntry, opts ...JSONWriterOption) (string, error) {
	if len(entries) == 0 {
		return "", removeIfExists(path)
	}
	return WriteFileAtomic(path, func(w io.Writer) error {
		_, err := NewJSONWriter(w, opts...).WriteDedup(entries)
		return err
	})
}
