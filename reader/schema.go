package reader

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/vegasq/lazycsv/table"
)

// SchemaInfo represents metadata about a single column of a CSV file
type SchemaInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Example  string `json:"example"`
}

// ExtractSchemaInfo extracts schema information from a CSV file.
//
// Only the header and the inference prefix are read. Nullable reports
// whether a null was seen in that prefix; Example is the first non-null
// sampled value.
func ExtractSchemaInfo(path string, opts Options) ([]SchemaInfo, error) {
	r, err := NewReader(path, opts)
	if err != nil {
		return nil, err
	}

	samples, err := r.sample()
	if err != nil {
		return nil, err
	}

	infos := make([]SchemaInfo, r.schema.Len())
	for i, f := range r.schema.Fields() {
		infos[i] = SchemaInfo{Name: f.Name, Type: f.Type.String()}
		for _, record := range samples {
			raw := record[i]
			if r.nulls[raw] {
				infos[i].Nullable = true
				continue
			}
			if infos[i].Example == "" {
				infos[i].Example = raw
			}
		}
	}
	return infos, nil
}

// inferSchema reads the header and the inference prefix and widens every
// column over bool < i64 < f64 < str
func (r *Reader) inferSchema() (*table.Schema, error) {
	src, err := openSource(r.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	cr := r.newCSVReader(src)
	cr.ReuseRecord = false

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		if r.opts.HasHeader {
			return nil, fmt.Errorf("%w: %s: missing header row", table.ErrParse, r.path)
		}
		return table.NewSchema()
	}
	if err != nil {
		return nil, wrapCSVError(r.path, err)
	}

	names := headerNames(first, r.opts.HasHeader)
	types := make([]DataTypeCandidate, len(names))

	observe := func(record []string, line int) error {
		if len(record) != len(names) {
			return fmt.Errorf("%w: %s:%d: expected %d fields, got %d", table.ErrParse, r.path, line, len(names), len(record))
		}
		for i, raw := range record {
			if r.nulls[raw] {
				continue
			}
			types[i].Observe(raw)
		}
		return nil
	}

	seen := 0
	if !r.opts.HasHeader {
		if err := observe(first, 1); err != nil {
			return nil, err
		}
		seen++
	}

	limit := r.opts.InferSchemaLength
	for limit < 0 || seen < limit {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapCSVError(r.path, err)
		}
		line, _ := cr.FieldPos(0)
		if err := observe(record, line); err != nil {
			return nil, err
		}
		seen++
	}

	fields := make([]table.Field, len(names))
	for i, name := range names {
		fields[i] = table.Field{Name: name, Type: types[i].Type()}
	}
	return table.NewSchema(fields...)
}

// sample returns the raw records of the inference prefix
func (r *Reader) sample() ([][]string, error) {
	src, err := openSource(r.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	cr := r.newCSVReader(src)
	cr.ReuseRecord = false
	if r.opts.HasHeader {
		if _, err := cr.Read(); err != nil {
			return nil, wrapCSVError(r.path, err)
		}
	}

	var out [][]string
	limit := r.opts.InferSchemaLength
	for limit < 0 || len(out) < limit {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapCSVError(r.path, err)
		}
		out = append(out, record)
	}
	return out, nil
}

// DataTypeCandidate accumulates the narrowest type that can hold every
// observed value of a column
type DataTypeCandidate struct {
	seen   bool
	finite bool
	typ    table.DataType
}

// Observe widens the candidate to cover raw
func (c *DataTypeCandidate) Observe(raw string) {
	t := detectType(raw)
	if t.IsNumeric() && !isNonFinite(raw) {
		c.finite = true
	}
	if !c.seen {
		c.seen = true
		c.typ = t
		return
	}
	c.typ = widen(c.typ, t)
}

// Type returns the inferred type. Columns with no non-null sample are
// strings, and so are columns whose only numbers are spellings of NaN or
// infinity.
func (c *DataTypeCandidate) Type() table.DataType {
	if !c.seen || (c.typ == table.Float64 && !c.finite) {
		return table.String
	}
	return c.typ
}

func detectType(raw string) table.DataType {
	if _, ok := parseBool(raw); ok {
		return table.Boolean
	}
	if _, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return table.Int64
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		return table.Float64
	}
	return table.String
}

// isNonFinite reports whether raw is a float spelling of NaN or infinity
func isNonFinite(raw string) bool {
	f, err := strconv.ParseFloat(raw, 64)
	return err == nil && (math.IsNaN(f) || math.IsInf(f, 0))
}

// widen returns the most general type covering both a and b. Booleans
// only widen to strings since no numeric type can hold them.
func widen(a, b table.DataType) table.DataType {
	if a == b {
		return a
	}
	if a.IsNumeric() && b.IsNumeric() {
		return table.Float64
	}
	return table.String
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

// parseValue converts a raw field into a value of type dt
func (r *Reader) parseValue(raw string, dt table.DataType) (any, error) {
	if r.nulls[raw] {
		return nil, nil
	}
	switch dt {
	case table.Boolean:
		b, ok := parseBool(raw)
		if !ok {
			return nil, fmt.Errorf("invalid boolean %q", raw)
		}
		return b, nil
	case table.Int64:
		return strconv.ParseInt(raw, 10, 64)
	case table.Float64:
		return strconv.ParseFloat(raw, 64)
	default:
		return raw, nil
	}
}
