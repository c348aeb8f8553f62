package query

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/lazycsv/table"
)

// runBatchSize is the number of rows handed to the parquet writer at once
const runBatchSize = 1024

// spillDir manages the sorted run files of one external sort. Runs are
// zstd compressed parquet files with one optional column per table column,
// so nulls survive the round trip.
type spillDir struct {
	dir    string
	schema *table.Schema
	pq     *parquet.Schema
	runs   []string
}

func newSpillDir(base string, schema *table.Schema) (*spillDir, error) {
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, "lazycsv-sort-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create spill directory: %w", table.ErrIO, err)
	}
	return &spillDir{dir: dir, schema: schema, pq: runSchema(schema)}, nil
}

// runSchema maps a table schema to a parquet schema. Group fields are
// ordered by name, so columns are named by zero-padded position.
func runSchema(schema *table.Schema) *parquet.Schema {
	group := parquet.Group{}
	for i, f := range schema.Fields() {
		var node parquet.Node
		switch f.Type {
		case table.Boolean:
			node = parquet.Leaf(parquet.BooleanType)
		case table.Int64:
			node = parquet.Leaf(parquet.Int64Type)
		case table.Float64:
			node = parquet.Leaf(parquet.DoubleType)
		default:
			node = parquet.String()
		}
		group[runColumnName(i)] = parquet.Optional(node)
	}
	return parquet.NewSchema("run", group)
}

func runColumnName(i int) string {
	return fmt.Sprintf("c%04d", i)
}

// numRuns returns the number of runs written so far
func (s *spillDir) numRuns() int {
	return len(s.runs)
}

// writeRun stores rows, which must already be sorted, as a new run
func (s *spillDir) writeRun(rows [][]any) (err error) {
	path := filepath.Join(s.dir, fmt.Sprintf("run_%05d.parquet", len(s.runs)))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: failed to create run file: %w", table.ErrIO, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: failed to close run file: %w", table.ErrIO, cerr)
		}
	}()

	w := parquet.NewWriter(f, s.pq, parquet.Compression(&parquet.Zstd))
	batch := make([]parquet.Row, 0, runBatchSize)
	for _, row := range rows {
		batch = append(batch, encodeRow(row))
		if len(batch) == runBatchSize {
			if _, err := w.WriteRows(batch); err != nil {
				return fmt.Errorf("%w: failed to write run file: %w", table.ErrIO, err)
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if _, err := w.WriteRows(batch); err != nil {
			return fmt.Errorf("%w: failed to write run file: %w", table.ErrIO, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: failed to flush run file: %w", table.ErrIO, err)
	}

	s.runs = append(s.runs, path)
	return nil
}

func encodeRow(row []any) parquet.Row {
	out := make(parquet.Row, len(row))
	for i, v := range row {
		var pv parquet.Value
		switch val := v.(type) {
		case nil:
			out[i] = parquet.NullValue().Level(0, 0, i)
			continue
		case bool:
			pv = parquet.BooleanValue(val)
		case int64:
			pv = parquet.Int64Value(val)
		case float64:
			pv = parquet.DoubleValue(val)
		case string:
			pv = parquet.ByteArrayValue([]byte(val))
		}
		out[i] = pv.Level(0, 1, i)
	}
	return out
}

// openRun opens run i for sequential reading
func (s *spillDir) openRun(i int) (*runReader, error) {
	f, err := os.Open(s.runs[i])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open run file: %w", table.ErrIO, err)
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: failed to stat run file: %w", table.ErrIO, err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: failed to open run file: %w", table.ErrIO, err)
	}
	return &runReader{
		file:   f,
		rows:   parquet.NewReader(pf),
		schema: s.schema,
	}, nil
}

// Close removes every run file
func (s *spillDir) Close() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("%w: failed to remove spill directory: %w", table.ErrIO, err)
	}
	return nil
}

// runReader reads a run back in batches
type runReader struct {
	file   *os.File
	rows   *parquet.Reader
	schema *table.Schema
	buf    []parquet.Row
	done   bool
}

// next returns up to n rows, or nil once the run is exhausted
func (r *runReader) next(n int) ([][]any, error) {
	if r.done {
		return nil, nil
	}
	if len(r.buf) < n {
		r.buf = make([]parquet.Row, n)
	}

	count, err := r.rows.ReadRows(r.buf[:n])
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: failed to read run file: %w", table.ErrIO, err)
	}
	if err != nil || count == 0 {
		r.done = true
	}

	out := make([][]any, count)
	for i, pr := range r.buf[:count] {
		out[i] = r.decodeRow(pr)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (r *runReader) decodeRow(pr parquet.Row) []any {
	row := make([]any, r.schema.Len())
	for _, v := range pr {
		col := v.Column()
		if v.IsNull() {
			continue
		}
		switch r.schema.Field(col).Type {
		case table.Boolean:
			row[col] = v.Boolean()
		case table.Int64:
			row[col] = v.Int64()
		case table.Float64:
			row[col] = v.Double()
		default:
			row[col] = string(v.ByteArray())
		}
	}
	return row
}

func (r *runReader) Close() error {
	err := r.rows.Close()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}
