package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vegasq/lazycsv/table"
)

const wineCSV = `class_label,class_name,alcohol,ash,total_phenols,color_intensity
1,Barolo,14.2,2.0,2.5,5.5
2,Grignolino,13.1,9.0,1.5,4.25
1,Barolo,14.5,4.0,3.0,7.0
3,Barbera,14.8,6.0,2.25,6.0
`

func writeWine(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wine.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func TestRun(t *testing.T) {
	for _, streaming := range []bool{true, false} {
		var buf bytes.Buffer
		if err := run(&buf, options{data: writeWine(t, wineCSV), streaming: streaming, chunkSize: 3, maxRows: 10}); err != nil {
			t.Fatalf("run(streaming=%t) error = %v", streaming, err)
		}
		out := buf.String()

		for _, want := range []string{
			"name: alcohol, field: f64",
			"Raw DF: shape: (4, 6)",
			"Basic filtering and selection: shape: (3, 4)",
			"total_phenols+2",
			"total_phenols_udf",
			"5.5",
			"Basic aggregations: shape: (1, 6)",
			"max_color_intensity",
			"13.1",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("streaming=%t: output missing %q:\n%s", streaming, want, out)
			}
		}
	}
}

func TestAddThree(t *testing.T) {
	got, err := addThree(2.5)
	if err != nil || got != 5.5 {
		t.Errorf("addThree(2.5) = %v, %v", got, err)
	}
	if _, err := addThree("x"); !errors.Is(err, table.ErrTypeMismatch) {
		t.Errorf("addThree(string) error = %v, want ErrTypeMismatch", err)
	}
}

func TestRun_IntegerPhenols(t *testing.T) {
	// add_3 only accepts f64 columns
	content := "alcohol,ash,total_phenols,color_intensity\n14.2,2.0,2,5.5\n"
	err := run(&bytes.Buffer{}, options{data: writeWine(t, content), chunkSize: 1})
	if !errors.Is(err, table.ErrTypeMismatch) {
		t.Errorf("run() error = %v, want ErrTypeMismatch", err)
	}
}
