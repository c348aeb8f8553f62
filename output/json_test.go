package output

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestJSONFormatter_Format(t *testing.T) {
	tests := []struct {
		name string
		rows [][]any
	}{
		{
			name: "empty table",
			rows: nil,
		},
		{
			name: "single row",
			rows: [][]any{
				{int64(1), "alice", 95.5, true},
			},
		},
		{
			name: "multiple rows",
			rows: [][]any{
				{int64(1), "alice", 95.5, true},
				{int64(2), "bob", 80.0, false},
			},
		},
		{
			name: "nil values",
			rows: [][]any{
				{int64(1), nil, nil, nil},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			formatter := NewJSONFormatter(&buf)

			if err := formatter.Format(peopleTable(t, tt.rows)); err != nil {
				t.Fatalf("Format() error = %v", err)
			}

			output := buf.String()

			// Empty tables should produce no output
			if len(tt.rows) == 0 {
				if output != "" {
					t.Errorf("Format() output should be empty for empty table, got %q", output)
				}
				return
			}

			lines := strings.Split(strings.TrimSpace(output), "\n")
			if len(lines) != len(tt.rows) {
				t.Errorf("Format() produced %d lines, want %d", len(lines), len(tt.rows))
			}

			// Verify each line is valid JSON
			for i, line := range lines {
				var decoded map[string]any
				if err := json.Unmarshal([]byte(line), &decoded); err != nil {
					t.Errorf("Format() line %d is not valid JSON: %v", i, err)
				}
			}
		})
	}
}

func TestJSONFormatter_OutputFormat(t *testing.T) {
	tbl := peopleTable(t, [][]any{
		{int64(1), "alice", math.NaN(), true},
	})

	var buf bytes.Buffer
	if err := NewJSONFormatter(&buf).Format(tbl); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	// keys keep schema order and NaN becomes null
	want := `{"id":1,"name":"alice","score":null,"active":true}` + "\n"
	if buf.String() != want {
		t.Errorf("Format() = %q, want %q", buf.String(), want)
	}
}

func TestJSONFormatter_SetOutput(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	formatter := NewJSONFormatter(&buf1)
	tbl := peopleTable(t, [][]any{{int64(1), "alice", 1.0, true}})

	if err := formatter.Format(tbl); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if buf1.Len() == 0 {
		t.Error("First buffer should have content")
	}

	formatter.SetOutput(&buf2)
	if err := formatter.Format(tbl); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if buf2.Len() == 0 {
		t.Error("Second buffer should have content")
	}
}
