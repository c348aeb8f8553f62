package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/lazycsv/table"
)

const (
	// DefaultMaxRows is the number of rows shown before the middle of a
	// table is elided
	DefaultMaxRows = 10

	// DefaultMaxCellWidth is the display width cells are truncated to
	DefaultMaxCellWidth = 32
)

// GridFormatter renders tables as a bordered text grid with a shape line
// and a header of column names and types.
//
// Tables longer than MaxRows show their first and last rows with an
// ellipsis row in between. String values are quoted and nulls are shown
// as null.
type GridFormatter struct {
	writer       io.Writer
	MaxRows      int
	MaxCellWidth int
}

// NewGridFormatter creates a grid formatter with default limits
func NewGridFormatter(w io.Writer) *GridFormatter {
	return &GridFormatter{writer: w, MaxRows: DefaultMaxRows, MaxCellWidth: DefaultMaxCellWidth}
}

// SetOutput sets the output writer
func (g *GridFormatter) SetOutput(w io.Writer) {
	g.writer = w
}

// Format renders the table
func (g *GridFormatter) Format(t *table.Table) error {
	rows, cols := t.Shape()
	if _, err := fmt.Fprintf(g.writer, "shape: (%d, %d)\n", rows, cols); err != nil {
		return fmt.Errorf("%w: %w", table.ErrIO, err)
	}
	if cols == 0 {
		return nil
	}

	tw := tablewriter.NewWriter(g.writer)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)

	header := make([]string, cols)
	for i, f := range t.Schema().Fields() {
		header[i] = g.truncate(f.Name) + "\n---\n" + f.Type.String()
	}
	tw.SetHeader(header)

	for _, idx := range visibleRows(rows, g.MaxRows) {
		record := make([]string, cols)
		for c := range record {
			if idx < 0 {
				record[c] = "…"
				continue
			}
			record[c] = g.truncate(displayValue(t.Row(idx)[c]))
		}
		tw.Append(record)
	}

	tw.Render()
	return nil
}

func (g *GridFormatter) truncate(s string) string {
	if g.MaxCellWidth <= 0 {
		return s
	}
	return runewidth.Truncate(s, g.MaxCellWidth, "…")
}

// visibleRows returns the row indices to print, with -1 marking the elided
// middle
func visibleRows(n, max int) []int {
	if max <= 0 || n <= max {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	head := (max + 1) / 2
	tail := max - head
	out := make([]int, 0, max+1)
	for i := 0; i < head; i++ {
		out = append(out, i)
	}
	out = append(out, -1)
	for i := n - tail; i < n; i++ {
		out = append(out, i)
	}
	return out
}

func displayValue(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	return table.FormatValue(v)
}

// WriteSchema prints a schema one field per line
func WriteSchema(w io.Writer, s *table.Schema) error {
	if _, err := io.WriteString(w, s.String()); err != nil {
		return fmt.Errorf("%w: %w", table.ErrIO, err)
	}
	return nil
}
