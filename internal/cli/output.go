package cli

import (
	"encoding/json"
	"io"
)

// printer writes a command result as indented JSON or as text.
type printer struct {
	format string
	w      io.Writer
}

func newPrinter(opts *RootOptions, w io.Writer) printer {
	return printer{format: opts.Format, w: w}
}

// emit writes v as JSON in json mode and calls text otherwise.
func (p printer) emit(v any, text func(w io.Writer)) error {
	if p.format == "json" {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")

		return enc.Encode(v)
	}

	text(p.w)

	return nil
}
