package query

import (
	"fmt"
	"strings"

	"github.com/vegasq/lazycsv/reader"
	"github.com/vegasq/lazycsv/table"
)

// Plan is a node of an immutable logical plan. Every node can compute its
// output schema without reading row data.
type Plan interface {
	// Schema resolves the output schema of the node, validating every
	// expression along the way
	Schema() (*table.Schema, error)

	// Input returns the child node, or nil for sources
	Input() Plan

	// describe renders the node itself, without its input
	describe() string
}

// ScanNode reads a CSV file
type ScanNode struct {
	Reader *reader.Reader
}

// MemoryScanNode reads an already materialized table
type MemoryScanNode struct {
	Table *table.Table
}

// FilterNode keeps the rows for which Predicate is true
type FilterNode struct {
	In        Plan
	Predicate Expr
}

// SelectNode replaces the input columns with Exprs
type SelectNode struct {
	In    Plan
	Exprs []Expr
}

// GroupAggNode groups by Keys and reduces every group with Aggs
type GroupAggNode struct {
	In   Plan
	Keys []string
	Aggs []Expr
}

// SortKey is one column of a sort specification
type SortKey struct {
	Column     string
	Descending bool
}

// SortNode stably sorts rows by Keys; nulls sort last in either direction
type SortNode struct {
	In   Plan
	Keys []SortKey
}

// LimitNode keeps the first N rows
type LimitNode struct {
	In Plan
	N  int
}

func (s *ScanNode) Input() Plan       { return nil }
func (s *MemoryScanNode) Input() Plan { return nil }
func (f *FilterNode) Input() Plan     { return f.In }
func (s *SelectNode) Input() Plan     { return s.In }
func (g *GroupAggNode) Input() Plan   { return g.In }
func (s *SortNode) Input() Plan       { return s.In }
func (l *LimitNode) Input() Plan      { return l.In }

func (s *ScanNode) Schema() (*table.Schema, error) {
	return s.Reader.Schema(), nil
}

func (s *MemoryScanNode) Schema() (*table.Schema, error) {
	return s.Table.Schema(), nil
}

func (f *FilterNode) Schema() (*table.Schema, error) {
	in, err := f.In.Schema()
	if err != nil {
		return nil, err
	}
	if _, err := bindPredicate(in, f.Predicate); err != nil {
		return nil, err
	}
	return in, nil
}

func (s *SelectNode) Schema() (*table.Schema, error) {
	bound, _, err := s.bind()
	if err != nil {
		return nil, err
	}
	return bound.schema, nil
}

func (g *GroupAggNode) Schema() (*table.Schema, error) {
	bound, err := g.bind()
	if err != nil {
		return nil, err
	}
	return bound.schema, nil
}

func (s *SortNode) Schema() (*table.Schema, error) {
	in, err := s.In.Schema()
	if err != nil {
		return nil, err
	}
	if _, err := sortKeyIndices(in, s.Keys); err != nil {
		return nil, err
	}
	return in, nil
}

func (l *LimitNode) Schema() (*table.Schema, error) {
	if l.N < 0 {
		return nil, fmt.Errorf("%w: limit must be non-negative, got %d", table.ErrInvalidArgument, l.N)
	}
	return l.In.Schema()
}

func (s *ScanNode) describe() string {
	return fmt.Sprintf("CSV SCAN %s (%d columns)", s.Reader.Path(), s.Reader.Schema().Len())
}

func (s *MemoryScanNode) describe() string {
	rows, cols := s.Table.Shape()
	return fmt.Sprintf("TABLE SCAN (%d rows, %d columns)", rows, cols)
}

func (f *FilterNode) describe() string { return "FILTER " + f.Predicate.String() }

func (s *SelectNode) describe() string { return "SELECT " + exprList(s.Exprs) }

func (g *GroupAggNode) describe() string {
	return fmt.Sprintf("AGGREGATE %s BY [%s]", exprList(g.Aggs), strings.Join(g.Keys, ", "))
}

func (s *SortNode) describe() string {
	parts := make([]string, len(s.Keys))
	for i, k := range s.Keys {
		parts[i] = k.Column
		if k.Descending {
			parts[i] += " DESC"
		}
	}
	return fmt.Sprintf("SORT BY [%s]", strings.Join(parts, ", "))
}

func (l *LimitNode) describe() string { return fmt.Sprintf("LIMIT %d", l.N) }

func exprList(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Explain renders a plan as an indented tree, root first
func Explain(p Plan) string {
	var b strings.Builder
	depth := 0
	for node := p; node != nil; node = node.Input() {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(node.describe())
		b.WriteString("\n")
		depth++
	}
	return b.String()
}

// bindPredicate binds a filter predicate and checks it is boolean
func bindPredicate(in *table.Schema, pred Expr) (evaluator, error) {
	b := newBinder(in, false)
	bound, err := b.bindTop(pred)
	if err != nil {
		return nil, err
	}
	if len(b.aggs) > 0 {
		return nil, fmt.Errorf("%w: aggregates are not allowed in filter predicates: %s", table.ErrInvalidArgument, pred)
	}
	if bound.field.Type != table.Boolean {
		return nil, fmt.Errorf("%w: filter predicate must be bool, got %s: %s", table.ErrTypeMismatch, bound.field.Type, pred)
	}
	return bound.eval, nil
}

// boundSelect is a select list resolved against its input
type boundSelect struct {
	schema *table.Schema
	exprs  []boundExpr
	aggs   []*aggSlot

	// scalar is true when every output is scalar; the result then has
	// exactly one row
	scalar bool
}

func (s *SelectNode) bind() (*boundSelect, *table.Schema, error) {
	in, err := s.In.Schema()
	if err != nil {
		return nil, nil, err
	}
	if len(s.Exprs) == 0 {
		return nil, nil, fmt.Errorf("%w: select needs at least one expression", table.ErrInvalidArgument)
	}

	b := newBinder(in, false)
	out := &boundSelect{exprs: make([]boundExpr, len(s.Exprs)), scalar: true}
	fields := make([]table.Field, len(s.Exprs))
	for i, e := range s.Exprs {
		bound, err := b.bindTop(e)
		if err != nil {
			return nil, nil, err
		}
		out.exprs[i] = bound
		fields[i] = bound.field
		out.scalar = out.scalar && bound.scalar
	}
	out.aggs = b.aggs
	out.schema, err = table.NewSchema(fields...)
	if err != nil {
		return nil, nil, err
	}
	return out, in, nil
}

// boundGroupAgg is a group aggregation resolved against its input
type boundGroupAgg struct {
	schema *table.Schema
	keyIdx []int
	exprs  []boundExpr
	aggs   []*aggSlot
}

func (g *GroupAggNode) bind() (*boundGroupAgg, error) {
	in, err := g.In.Schema()
	if err != nil {
		return nil, err
	}
	if len(g.Keys) == 0 {
		return nil, fmt.Errorf("%w: group_by needs at least one key", table.ErrInvalidArgument)
	}

	out := &boundGroupAgg{keyIdx: make([]int, len(g.Keys))}
	fields := make([]table.Field, 0, len(g.Keys)+len(g.Aggs))
	for i, key := range g.Keys {
		idx, field, err := in.Lookup(key)
		if err != nil {
			return nil, err
		}
		out.keyIdx[i] = idx
		fields = append(fields, field)
	}

	b := newBinder(in, true)
	for _, e := range g.Aggs {
		bound, err := b.bindTop(e)
		if err != nil {
			return nil, err
		}
		out.exprs = append(out.exprs, bound)
		fields = append(fields, bound.field)
	}
	out.aggs = b.aggs
	out.schema, err = table.NewSchema(fields...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func sortKeyIndices(in *table.Schema, keys []SortKey) ([]int, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: sort needs at least one column", table.ErrInvalidArgument)
	}
	idx := make([]int, len(keys))
	for i, k := range keys {
		pos, _, err := in.Lookup(k.Column)
		if err != nil {
			return nil, err
		}
		idx[i] = pos
	}
	return idx, nil
}
