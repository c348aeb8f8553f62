package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/vegasq/lazycsv/table"
)

func TestGridFormatter_Format(t *testing.T) {
	tbl := peopleTable(t, [][]any{
		{int64(1), "alice", 95.5, true},
		{int64(2), nil, nil, false},
	})

	var buf bytes.Buffer
	if err := NewGridFormatter(&buf).Format(tbl); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{"shape: (2, 4)", "id", "i64", "f64", "bool", `"alice"`, "95.5", "null", "false"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ID") {
		t.Errorf("headers should not be upper-cased:\n%s", out)
	}
}

func TestGridFormatter_ElidesMiddleRows(t *testing.T) {
	rows := make([][]any, 25)
	for i := range rows {
		rows[i] = []any{int64(i), "row", 0.0, true}
	}

	var buf bytes.Buffer
	g := NewGridFormatter(&buf)
	g.MaxRows = 4
	if err := g.Format(peopleTable(t, rows)); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "shape: (25, 4)") || !strings.Contains(out, "…") {
		t.Errorf("expected shape line and ellipsis row:\n%s", out)
	}
	if strings.Contains(out, "| 12 ") {
		t.Errorf("middle row should be elided:\n%s", out)
	}
	if !strings.Contains(out, "| 24 ") {
		t.Errorf("last row should be shown:\n%s", out)
	}
}

func TestGridFormatter_TruncatesWideCells(t *testing.T) {
	tbl := buildTable(t,
		[]table.Field{{Name: "text", Type: table.String}},
		[][]any{{strings.Repeat("x", 100)}})

	var buf bytes.Buffer
	g := NewGridFormatter(&buf)
	g.MaxCellWidth = 10
	if err := g.Format(tbl); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if strings.Contains(buf.String(), strings.Repeat("x", 11)) {
		t.Errorf("cell not truncated:\n%s", buf.String())
	}
}

func TestVisibleRows(t *testing.T) {
	tests := []struct {
		n, max int
		want   []int
	}{
		{3, 10, []int{0, 1, 2}},
		{5, 0, []int{0, 1, 2, 3, 4}},
		{10, 4, []int{0, 1, -1, 8, 9}},
		{10, 5, []int{0, 1, 2, -1, 8, 9}},
	}
	for _, tt := range tests {
		got := visibleRows(tt.n, tt.max)
		if len(got) != len(tt.want) {
			t.Errorf("visibleRows(%d, %d) = %v, want %v", tt.n, tt.max, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("visibleRows(%d, %d) = %v, want %v", tt.n, tt.max, got, tt.want)
				break
			}
		}
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"grid", "csv", "jsonl", "json", "CSV"} {
		if _, err := New(name, &bytes.Buffer{}); err != nil {
			t.Errorf("New(%q) error = %v", name, err)
		}
	}
	if _, err := New("xml", &bytes.Buffer{}); !errors.Is(err, table.ErrInvalidArgument) {
		t.Errorf("New(xml) error = %v, want ErrInvalidArgument", err)
	}
}

func TestWriteSchema(t *testing.T) {
	schema, err := table.NewSchema(peopleFields...)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteSchema(&buf, schema); err != nil {
		t.Fatalf("WriteSchema() error = %v", err)
	}
	if !strings.Contains(buf.String(), "name: score, field: f64") {
		t.Errorf("WriteSchema() = %q", buf.String())
	}
}
