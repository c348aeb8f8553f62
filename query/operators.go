package query

import (
	"github.com/vegasq/lazycsv/reader"
	"github.com/vegasq/lazycsv/table"
)

// operator is a pull-based pipeline stage. Next returns the next chunk of
// rows, or nil once the stage is exhausted. Chunks are never empty.
type operator interface {
	Next() ([][]any, error)
	Close() error
}

// scanOp reads a CSV file, either whole or chunk by chunk
type scanOp struct {
	r         *reader.Reader
	streaming bool
	chunkSize int

	it   *reader.RowIterator
	done bool
}

func (op *scanOp) Next() ([][]any, error) {
	if op.done {
		return nil, nil
	}

	if !op.streaming {
		op.done = true
		tbl, err := op.r.ReadAll()
		if err != nil {
			return nil, err
		}
		if tbl.NumRows() == 0 {
			return nil, nil
		}
		return tbl.Rows(), nil
	}

	if op.it == nil {
		it, err := op.r.Open()
		if err != nil {
			return nil, err
		}
		op.it = it
	}
	rows, err := op.it.Next(op.chunkSize)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		op.done = true
		return nil, op.it.Close()
	}
	return rows, nil
}

func (op *scanOp) Close() error {
	if op.it != nil {
		return op.it.Close()
	}
	return nil
}

// bufferOp replays rows already in memory. A size of zero returns them all
// at once.
type bufferOp struct {
	rows [][]any
	size int
	pos  int
}

func newBufferOp(rows [][]any, size int) *bufferOp {
	return &bufferOp{rows: rows, size: size}
}

func newTableOp(t *table.Table, cfg config) *bufferOp {
	if cfg.streaming {
		return newBufferOp(t.Rows(), cfg.chunkSize)
	}
	return newBufferOp(t.Rows(), 0)
}

func (op *bufferOp) Next() ([][]any, error) {
	if op.pos >= len(op.rows) {
		return nil, nil
	}
	end := len(op.rows)
	if op.size > 0 && op.pos+op.size < end {
		end = op.pos + op.size
	}
	chunk := op.rows[op.pos:end:end]
	op.pos = end
	return chunk, nil
}

func (op *bufferOp) Close() error {
	op.rows = nil
	return nil
}

// filterOp keeps rows whose predicate is true
type filterOp struct {
	child operator
	pred  evaluator
}

func (op *filterOp) Next() ([][]any, error) {
	for {
		rows, err := op.child.Next()
		if err != nil || rows == nil {
			return nil, err
		}
		kept := make([][]any, 0, len(rows))
		for _, row := range rows {
			v, err := op.pred(row, nil)
			if err != nil {
				return nil, err
			}
			if v == true {
				kept = append(kept, row)
			}
		}
		if len(kept) > 0 {
			return kept, nil
		}
	}
}

func (op *filterOp) Close() error { return op.child.Close() }

// projectOp evaluates a select list per row. aggs holds the broadcast
// aggregate values, if any.
type projectOp struct {
	child operator
	exprs []boundExpr
	aggs  []any
}

func (op *projectOp) Next() ([][]any, error) {
	rows, err := op.child.Next()
	if err != nil || rows == nil {
		return nil, err
	}
	out := make([][]any, len(rows))
	for i, row := range rows {
		values := make([]any, len(op.exprs))
		for j, e := range op.exprs {
			v, err := e.eval(row, op.aggs)
			if err != nil {
				return nil, err
			}
			values[j] = v
		}
		out[i] = values
	}
	return out, nil
}

func (op *projectOp) Close() error { return op.child.Close() }

// aggProjectOp is a select list containing aggregates. Aggregates are
// computed in a first pass over the input and then broadcast to every row
// of the projection.
//
// In streaming mode the input pipeline is built twice, once per pass, so
// memory stays bounded. Otherwise the input is buffered after the first
// pass and replayed. When every expression is scalar the result is a single
// row and the second pass is skipped.
type aggProjectOp struct {
	input     func() (operator, error)
	bound     *boundSelect
	streaming bool

	proj operator
}

func (op *aggProjectOp) Next() ([][]any, error) {
	if op.proj == nil {
		if err := op.prepare(); err != nil {
			return nil, err
		}
	}
	return op.proj.Next()
}

func (op *aggProjectOp) prepare() error {
	child, err := op.input()
	if err != nil {
		return err
	}

	state := newAggState(op.bound.aggs)
	keep := !op.streaming && !op.bound.scalar
	var buffered [][]any
	err = drain(child, func(rows [][]any) error {
		for _, row := range rows {
			if err := state.update(row); err != nil {
				return err
			}
		}
		if keep {
			buffered = append(buffered, rows...)
		}
		return nil
	})
	if cerr := child.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	aggs := state.results()

	var source operator
	switch {
	case op.bound.scalar:
		source = newBufferOp([][]any{nil}, 0)
	case op.streaming:
		if source, err = op.input(); err != nil {
			return err
		}
	default:
		source = newBufferOp(buffered, 0)
	}
	op.proj = &projectOp{child: source, exprs: op.bound.exprs, aggs: aggs}
	return nil
}

func (op *aggProjectOp) Close() error {
	if op.proj != nil {
		return op.proj.Close()
	}
	return nil
}

// groupAggOp partitions its input by key and emits one row per group
type groupAggOp struct {
	child     operator
	bound     *boundGroupAgg
	chunkSize int

	out operator
}

func (op *groupAggOp) Next() ([][]any, error) {
	if op.out == nil {
		if err := op.aggregate(); err != nil {
			return nil, err
		}
	}
	return op.out.Next()
}

func (op *groupAggOp) aggregate() error {
	groups := newGroupTable(op.bound.keyIdx, op.bound.aggs)
	err := drain(op.child, func(rows [][]any) error {
		for _, row := range rows {
			if err := groups.add(row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	rows := make([][]any, 0, len(groups.order))
	for _, g := range groups.order {
		aggs := g.state.results()
		row := make([]any, 0, len(g.keys)+len(op.bound.exprs))
		row = append(row, g.keys...)
		for _, e := range op.bound.exprs {
			v, err := e.eval(nil, aggs)
			if err != nil {
				return err
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	op.out = newBufferOp(rows, op.chunkSize)
	return nil
}

func (op *groupAggOp) Close() error { return op.child.Close() }

// limitOp stops pulling from its child once n rows have been produced
type limitOp struct {
	child operator
	n     int
	count int
}

func (op *limitOp) Next() ([][]any, error) {
	if op.count >= op.n {
		return nil, nil
	}
	rows, err := op.child.Next()
	if err != nil || rows == nil {
		return nil, err
	}
	remaining := op.n - op.count
	if len(rows) > remaining {
		rows = rows[:remaining:remaining]
	}
	op.count += len(rows)
	return rows, nil
}

func (op *limitOp) Close() error { return op.child.Close() }

// drain pulls every chunk out of op
func drain(op operator, fn func(rows [][]any) error) error {
	for {
		rows, err := op.Next()
		if err != nil {
			return err
		}
		if rows == nil {
			return nil
		}
		if err := fn(rows); err != nil {
			return err
		}
	}
}
