package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/vegasq/lazycsv/table"
)

// JSONFormatter outputs tables as JSON Lines, one object per row with keys
// in schema order
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON Lines formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes the table as JSON Lines. NaN and infinities, which JSON
// cannot represent, are written as null.
func (j *JSONFormatter) Format(t *table.Table) error {
	names := t.Schema().Names()
	keys := make([][]byte, len(names))
	for i, name := range names {
		key, err := json.Marshal(name)
		if err != nil {
			return fmt.Errorf("failed to encode column name %q: %w", name, err)
		}
		keys[i] = key
	}

	w := bufio.NewWriter(j.writer)
	for _, row := range t.Rows() {
		_ = w.WriteByte('{')
		for i, v := range row {
			if i > 0 {
				_ = w.WriteByte(',')
			}
			_, _ = w.Write(keys[i])
			_ = w.WriteByte(':')
			value, err := json.Marshal(jsonValue(v))
			if err != nil {
				return fmt.Errorf("failed to encode column %q: %w", names[i], err)
			}
			_, _ = w.Write(value)
		}
		_, _ = w.WriteString("}\n")
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: failed to write JSON: %w", table.ErrIO, err)
	}
	return nil
}

func jsonValue(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}
