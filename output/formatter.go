package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/lazycsv/table"
)

// Formatter defines the interface for output formatters.
//
// Implementers must provide Format to render a table in the target format
// and SetOutput to change the output destination.
type Formatter interface {
	// Format writes the table in the formatter's specific format
	Format(t *table.Table) error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}

// New returns the formatter registered under name: "grid", "csv" or
// "jsonl" ("json" is accepted as an alias)
func New(name string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(name) {
	case "grid", "table", "":
		return NewGridFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	case "jsonl", "json":
		return NewJSONFormatter(w), nil
	default:
		return nil, fmt.Errorf("%w: unsupported output format %q (use grid, csv or jsonl)", table.ErrInvalidArgument, name)
	}
}
