package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/nao1215/fuzznorm/internal/model"
)

// WriteCases streams test cases as a single JSON array.
//
// Cases are encoded one at a time so that large runs never need to be held
// in memory. The layout matches json.MarshalIndent of the equivalent slice,
// and an empty sequence produces "[]". The first error yielded by cases stops
// the write and is returned unchanged. onCase, when not nil, is called for
// every case after it has been encoded.
func (w *JSONWriter) WriteCases(cases iter.Seq2[model.TestCase, error], onCase func(model.TestCase)) (int, error) {
	var (
		written int
		buf     bytes.Buffer
		n       int
	)

	write := func(p []byte) error {
		m, err := w.output.Write(p)
		written += m
		return err
	}

	if err := write([]byte{'['}); err != nil {
		return written, err
	}

	for tc, err := range cases {
		if err != nil {
			return written, err
		}

		data, err := json.Marshal(tc)
		if err != nil {
			return written, fmt.Errorf("failed to encode test case: %w", err)
		}

		buf.Reset()
		if n > 0 {
			buf.WriteByte(',')
		}
		if w.indent {
			buf.WriteByte('\n')
			buf.WriteString(w.indentPrefix)
			buf.WriteString(w.indentString)
			if err := json.Indent(&buf, data, w.indentPrefix+w.indentString, w.indentString); err != nil {
				return written, fmt.Errorf("failed to indent test case: %w", err)
			}
		} else {
			buf.Write(data)
		}
		if err := write(buf.Bytes()); err != nil {
			return written, err
		}

		n++
		if onCase != nil {
			onCase(tc)
		}
	}

	buf.Reset()
	if w.indent && n > 0 {
		buf.WriteByte('\n')
		buf.WriteString(w.indentPrefix)
	}
	buf.WriteString("]\n")
	if err := write(buf.Bytes()); err != nil {
		return written, err
	}
	return written, nil
}
