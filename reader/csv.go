// Package reader provides functionality for reading CSV files into tables.
//
// It uses encoding/csv for tokenizing and infers a column type for every
// column from a bounded prefix of the file, so the schema is known before
// any row data is materialized.
package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/lazycsv/table"
)

// DefaultInferSchemaLength is the number of data rows scanned for type
// inference when Options.InferSchemaLength is zero
const DefaultInferSchemaLength = 100

// Options controls how a CSV file is read
type Options struct {
	// HasHeader treats the first record as column names. Without a header
	// columns are named column_1, column_2, ...
	HasHeader bool

	// Delimiter separates fields. Zero means ','.
	Delimiter rune

	// InferSchemaLength bounds the rows scanned for type inference. Zero
	// means DefaultInferSchemaLength, negative scans the whole file.
	InferSchemaLength int

	// NullValues are field contents read as null. Nil means only the
	// empty string.
	NullValues []string
}

// DefaultOptions returns options for a comma separated file with a header
func DefaultOptions() Options {
	return Options{HasHeader: true, Delimiter: ','}
}

func (o Options) normalized() Options {
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	if o.InferSchemaLength == 0 {
		o.InferSchemaLength = DefaultInferSchemaLength
	}
	if o.NullValues == nil {
		o.NullValues = []string{""}
	}
	return o
}

// Reader is a handle on a CSV file with a known schema.
//
// A Reader holds no open file: every ReadAll or Open call opens the file
// again, so one Reader can serve many concurrent scans.
type Reader struct {
	path   string
	opts   Options
	schema *table.Schema
	nulls  map[string]bool
}

// NewReader opens the CSV file at path, reads its header and infers the
// schema from the first rows.
//
// Returns an error wrapping table.ErrIO if the file cannot be read and
// table.ErrParse if the sampled rows are malformed.
//
// Example:
//
//	r, err := reader.NewReader("data/wine.csv", reader.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(r.Schema())
func NewReader(path string, opts Options) (*Reader, error) {
	opts = opts.normalized()
	r := &Reader{
		path:  path,
		opts:  opts,
		nulls: make(map[string]bool, len(opts.NullValues)),
	}
	for _, v := range opts.NullValues {
		r.nulls[v] = true
	}

	schema, err := r.inferSchema()
	if err != nil {
		return nil, err
	}
	r.schema = schema
	return r, nil
}

// Path returns the file path the reader was created with
func (r *Reader) Path() string {
	return r.path
}

// Schema returns the inferred schema
func (r *Reader) Schema() *table.Schema {
	return r.schema
}

// ReadAll reads every row of the file into memory
func (r *Reader) ReadAll() (*table.Table, error) {
	it, err := r.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()

	var rows [][]any
	for {
		chunk, err := it.Next(4096)
		if err != nil {
			return nil, err
		}
		if chunk == nil {
			break
		}
		rows = append(rows, chunk...)
	}
	return table.NewTable(r.schema, rows)
}

// ReadChunks streams the file in chunks of at most size rows, calling fn
// for every chunk in file order. Reading stops at the first error returned
// by fn.
func (r *Reader) ReadChunks(size int, fn func(rows [][]any) error) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", table.ErrInvalidArgument, size)
	}
	it, err := r.Open()
	if err != nil {
		return err
	}
	defer func() { _ = it.Close() }()

	for {
		chunk, err := it.Next(size)
		if err != nil {
			return err
		}
		if chunk == nil {
			return nil
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
}

// RowIterator pulls typed rows out of an open CSV file
type RowIterator struct {
	r      *Reader
	src    io.ReadCloser
	csv    *csv.Reader
	line   int
	done   bool
	closed bool
}

// Open starts a new pass over the file, positioned after the header
func (r *Reader) Open() (*RowIterator, error) {
	src, err := openSource(r.path)
	if err != nil {
		return nil, err
	}
	it := &RowIterator{r: r, src: src, csv: r.newCSVReader(src)}
	if r.opts.HasHeader {
		if _, err := it.readRecord(); err != nil {
			_ = it.Close()
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: %s: missing header row", table.ErrParse, r.path)
			}
			return nil, err
		}
	}
	return it, nil
}

// Next returns up to max rows. It returns nil, nil once the file is
// exhausted.
func (it *RowIterator) Next(max int) ([][]any, error) {
	if it.done {
		return nil, nil
	}

	rows := make([][]any, 0, min(max, 1024))
	for len(rows) < max {
		record, err := it.readRecord()
		if errors.Is(err, io.EOF) {
			it.done = true
			break
		}
		if err != nil {
			return nil, err
		}
		row, err := it.r.convert(record, it.line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, nil
	}
	return rows, nil
}

// Close releases the underlying file. It is safe to call Close multiple
// times.
func (it *RowIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.src.Close()
}

func (it *RowIterator) readRecord() ([]string, error) {
	record, err := it.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, wrapCSVError(it.r.path, err)
	}
	it.line, _ = it.csv.FieldPos(0)
	if len(record) != it.r.schema.Len() {
		return nil, fmt.Errorf("%w: %s:%d: expected %d fields, got %d", table.ErrParse, it.r.path, it.line, it.r.schema.Len(), len(record))
	}
	return record, nil
}

// convert parses a record into typed values according to the schema
func (r *Reader) convert(record []string, line int) ([]any, error) {
	row := make([]any, len(record))
	for i, raw := range record {
		field := r.schema.Field(i)
		v, err := r.parseValue(raw, field.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: column %q: could not parse %q as %s (consider a larger InferSchemaLength)",
				table.ErrParse, r.path, line, field.Name, raw, field.Type)
		}
		row[i] = v
	}
	return row, nil
}

func (r *Reader) newCSVReader(src io.Reader) *csv.Reader {
	cr := csv.NewReader(src)
	cr.Comma = r.opts.Delimiter
	// Field counts are checked against the schema, not the first record
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return cr
}

func wrapCSVError(path string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return fmt.Errorf("%w: %s:%d: %v", table.ErrParse, path, pe.Line, pe.Err)
	}
	return fmt.Errorf("%w: %s: %v", table.ErrIO, path, err)
}

// headerNames turns the first record into column names
func headerNames(record []string, hasHeader bool) []string {
	names := make([]string, len(record))
	for i, raw := range record {
		if hasHeader {
			name := raw
			if i == 0 {
				name = strings.TrimPrefix(name, "\ufeff")
			}
			names[i] = name
			continue
		}
		names[i] = fmt.Sprintf("column_%d", i+1)
	}
	return names
}
