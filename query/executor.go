package query

import (
	"fmt"

	"github.com/vegasq/lazycsv/table"
)

// executor turns a resolved plan into an operator pipeline. The same
// pipeline serves streaming and whole-file execution; only the chunking
// of the scan and the spilling of sorts differ.
type executor struct {
	cfg config
}

// run executes p and returns every output row
func (ex *executor) run(p Plan) ([][]any, error) {
	op, err := ex.build(p)
	if err != nil {
		return nil, err
	}

	var rows [][]any
	err = drain(op, func(chunk [][]any) error {
		rows = append(rows, chunk...)
		return nil
	})
	if cerr := op.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	ex.cfg.logger.Printf("collected %d rows", len(rows))
	return rows, nil
}

func (ex *executor) build(p Plan) (operator, error) {
	switch n := p.(type) {
	case *ScanNode:
		ex.cfg.logger.Printf("scan %s (streaming=%t, chunk=%d)", n.Reader.Path(), ex.cfg.streaming, ex.cfg.chunkSize)
		return &scanOp{r: n.Reader, streaming: ex.cfg.streaming, chunkSize: ex.cfg.chunkSize}, nil

	case *MemoryScanNode:
		return newTableOp(n.Table, ex.cfg), nil

	case *FilterNode:
		in, err := n.In.Schema()
		if err != nil {
			return nil, err
		}
		pred, err := bindPredicate(in, n.Predicate)
		if err != nil {
			return nil, err
		}
		child, err := ex.build(n.In)
		if err != nil {
			return nil, err
		}
		return &filterOp{child: child, pred: pred}, nil

	case *SelectNode:
		bound, _, err := n.bind()
		if err != nil {
			return nil, err
		}
		if len(bound.aggs) > 0 {
			return &aggProjectOp{
				input:     func() (operator, error) { return ex.build(n.In) },
				bound:     bound,
				streaming: ex.cfg.streaming,
			}, nil
		}
		child, err := ex.build(n.In)
		if err != nil {
			return nil, err
		}
		return &projectOp{child: child, exprs: bound.exprs}, nil

	case *GroupAggNode:
		bound, err := n.bind()
		if err != nil {
			return nil, err
		}
		child, err := ex.build(n.In)
		if err != nil {
			return nil, err
		}
		return &groupAggOp{child: child, bound: bound, chunkSize: ex.chunk()}, nil

	case *SortNode:
		in, err := n.In.Schema()
		if err != nil {
			return nil, err
		}
		idx, err := sortKeyIndices(in, n.Keys)
		if err != nil {
			return nil, err
		}
		child, err := ex.build(n.In)
		if err != nil {
			return nil, err
		}
		return newSortOp(child, in, idx, n.Keys, ex.cfg), nil

	case *LimitNode:
		if n.N < 0 {
			return nil, fmt.Errorf("%w: limit must be non-negative, got %d", table.ErrInvalidArgument, n.N)
		}
		child, err := ex.build(n.In)
		if err != nil {
			return nil, err
		}
		return &limitOp{child: child, n: n.N}, nil

	default:
		return nil, fmt.Errorf("%w: unsupported plan node %T", table.ErrInvalidArgument, p)
	}
}

// chunk is the output chunk size for operators that materialize, zero
// meaning a single chunk
func (ex *executor) chunk() int {
	if ex.cfg.streaming {
		return ex.cfg.chunkSize
	}
	return 0
}
