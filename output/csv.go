package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/lazycsv/table"
)

// CSVFormatter outputs tables as CSV with a header row
type CSVFormatter struct {
	writer io.Writer
}

// NewCSVFormatter creates a new CSV formatter
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

// SetOutput sets the output writer
func (c *CSVFormatter) SetOutput(w io.Writer) {
	c.writer = w
}

// Format writes the table as CSV. Columns keep schema order and nulls are
// written as empty fields.
func (c *CSVFormatter) Format(t *table.Table) error {
	csvWriter := csv.NewWriter(c.writer)

	if err := csvWriter.Write(t.Schema().Names()); err != nil {
		return fmt.Errorf("%w: failed to write CSV header: %w", table.ErrIO, err)
	}

	record := make([]string, t.NumCols())
	for _, row := range t.Rows() {
		for i, v := range row {
			record[i] = formatValue(v)
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("%w: failed to write CSV row: %w", table.ErrIO, err)
		}
	}

	// Flush and check for errors
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("%w: failed to flush CSV writer: %w", table.ErrIO, err)
	}

	return nil
}

// formatValue converts a value to string for CSV output
func formatValue(v any) string {
	if v == nil {
		return ""
	}

	if val, ok := v.(string); ok && len(val) > 0 {
		// Sanitize against CSV injection by prefixing dangerous characters
		// that could trigger formula execution in spreadsheet applications
		switch val[0] {
		case '=', '+', '-', '@', '\t', '\r', '\n', '|':
			return "'" + strings.ReplaceAll(val, "'", "''")
		}
	}
	return table.FormatValue(v)
}
