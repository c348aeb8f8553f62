package query

import (
	"fmt"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/vegasq/lazycsv/table"
)

// generatedCSV builds a file with duplicate sort keys, nulls and every
// column type
func generatedCSV(rows int) string {
	var b strings.Builder
	b.WriteString("id,bucket,score,label,flag\n")
	for i := 0; i < rows; i++ {
		bucket := fmt.Sprint(i % 13)
		if i%17 == 0 {
			bucket = ""
		}
		score := fmt.Sprintf("%.2f", float64((i*7919)%1000)/10)
		if i%23 == 0 {
			score = ""
		}
		fmt.Fprintf(&b, "%d,%s,%s,label-%d,%t\n", i, bucket, score, i%5, i%3 == 0)
	}
	return b.String()
}

func TestStreamingMatchesWholeFile(t *testing.T) {
	lf := scan(t, "generated.csv", generatedCSV(1000))

	plans := map[string]LazyFrame{
		"raw": lf,
		"filter": lf.Filter(And(Col("flag"), Gt(Col("score"), Lit(20)))),
		"sort with ties": lf.Sort([]string{"bucket"}, false),
		"sort descending": lf.SortBy(SortKey{Column: "bucket", Descending: true}, SortKey{Column: "score"}),
		"group and sort": lf.
			GroupBy("label", "bucket").
			Agg(Alias(Mean(Col("score")), "mean_score"), Alias(CountDistinct(Col("id")), "n")).
			Sort([]string{"n"}, true),
		"broadcast mean": lf.Select(Col("id"), Alias(Sub(Col("score"), Mean(Col("score"))), "centered")),
		"sort then limit": lf.Sort([]string{"score"}, true).Limit(25),
	}

	for name, plan := range plans {
		t.Run(name, func(t *testing.T) {
			whole := collect(t, plan.WithStreaming(false))

			spillDir := t.TempDir()
			streamed := collect(t, plan.
				WithStreaming(true).
				WithChunkSize(7).
				WithSortMemoryRows(64).
				WithSpillDir(spillDir))

			if !streamed.Equal(whole) {
				t.Errorf("streaming result differs from whole-file result")
			}

			entries, err := os.ReadDir(spillDir)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 0 {
				t.Errorf("spill directory not cleaned up: %d entries left", len(entries))
			}
		})
	}
}

func TestExternalSort_SpillsAndStaysStable(t *testing.T) {
	tbl := mustTable(t,
		[]table.Field{
			{Name: "k", Type: table.Float64},
			{Name: "seq", Type: table.Int64},
			{Name: "s", Type: table.String},
			{Name: "b", Type: table.Boolean},
		},
		nil)
	rows := make([][]any, 0, 300)
	for i := 0; i < 300; i++ {
		var k any = float64(i % 4)
		switch {
		case i%50 == 0:
			k = nil
		case i%61 == 0:
			k = math.NaN()
		}
		var s any = fmt.Sprintf("row %d", i)
		if i%9 == 0 {
			s = nil
		}
		rows = append(rows, []any{k, int64(i), s, i%2 == 0})
	}
	tbl, err := table.NewTable(tbl.Schema(), rows)
	if err != nil {
		t.Fatal(err)
	}

	sorted := FromTable(tbl).Sort([]string{"k"}, false)
	want := collect(t, sorted)
	got := collect(t, sorted.WithStreaming(true).WithChunkSize(16).WithSortMemoryRows(40).WithSpillDir(t.TempDir()))
	if !got.Equal(want) {
		t.Fatalf("spilled sort differs from in-memory sort")
	}

	// keys are non-decreasing, NaN after numbers, nulls last, ties in input order
	prevKey, prevSeq := -1.0, int64(-1)
	seenNull := false
	for i, row := range got.Rows() {
		if row[0] == nil {
			seenNull = true
			continue
		}
		if seenNull {
			t.Fatalf("row %d: value after null", i)
		}
		k := row[0].(float64)
		seq := row[1].(int64)
		switch {
		case math.IsNaN(k) && math.IsNaN(prevKey):
			if seq < prevSeq {
				t.Fatalf("row %d: NaN ties out of input order", i)
			}
		case math.IsNaN(k):
		case k < prevKey || math.IsNaN(prevKey):
			t.Fatalf("row %d: key %v after %v", i, k, prevKey)
		case k == prevKey && seq < prevSeq:
			t.Fatalf("row %d: ties out of input order", i)
		}
		prevKey, prevSeq = k, seq
	}
}

func TestSpillRoundTrip(t *testing.T) {
	schema, err := table.NewSchema(
		table.Field{Name: "b", Type: table.Boolean},
		table.Field{Name: "i", Type: table.Int64},
		table.Field{Name: "f", Type: table.Float64},
		table.Field{Name: "s", Type: table.String},
	)
	if err != nil {
		t.Fatal(err)
	}
	rows := [][]any{
		{true, int64(-5), 1.25, "héllo, world"},
		{nil, nil, nil, nil},
		{false, int64(math.MaxInt64), -0.5, ""},
	}

	spill, err := newSpillDir(t.TempDir(), schema)
	if err != nil {
		t.Fatalf("newSpillDir() error = %v", err)
	}
	defer func() { _ = spill.Close() }()

	if err := spill.writeRun(rows); err != nil {
		t.Fatalf("writeRun() error = %v", err)
	}
	r, err := spill.openRun(0)
	if err != nil {
		t.Fatalf("openRun() error = %v", err)
	}
	defer func() { _ = r.Close() }()

	var got [][]any
	for {
		batch, err := r.next(2)
		if err != nil {
			t.Fatalf("next() error = %v", err)
		}
		if batch == nil {
			break
		}
		got = append(got, batch...)
	}

	if len(got) != len(rows) {
		t.Fatalf("read %d rows, want %d", len(got), len(rows))
	}
	for i := range rows {
		for j := range rows[i] {
			if got[i][j] != rows[i][j] {
				t.Errorf("row %d col %d = %#v, want %#v", i, j, got[i][j], rows[i][j])
			}
		}
	}
}
