package query

import (
	"errors"
	"fmt"
	"math"

	"github.com/vegasq/lazycsv/table"
)

// evaluator computes an expression for one row. aggs holds the finished
// values of the aggregates registered while binding, indexed by slot.
type evaluator func(row []any, aggs []any) (any, error)

// aggSlot is an aggregate found while binding. Its argument is evaluated
// per input row and fed to a fresh accumulator.
type aggSlot struct {
	fn      AggFunc
	arg     evaluator
	argType table.DataType
}

// binder resolves expressions against an input schema
type binder struct {
	schema *table.Schema

	// aggOnly rejects column references outside aggregates, as required
	// for group aggregations
	aggOnly bool

	aggs      []*aggSlot
	inAgg     bool
	sawColumn bool
}

func newBinder(schema *table.Schema, aggOnly bool) *binder {
	return &binder{schema: schema, aggOnly: aggOnly}
}

// boundExpr is a resolved top-level expression
type boundExpr struct {
	eval   evaluator
	field  table.Field
	scalar bool
}

// bindTop binds e and records whether it is scalar, i.e. references no
// column outside an aggregate
func (b *binder) bindTop(e Expr) (boundExpr, error) {
	b.sawColumn = false
	ev, dt, err := e.bind(b)
	if err != nil {
		return boundExpr{}, fmt.Errorf("%s: %w", e, err)
	}
	return boundExpr{
		eval:   ev,
		field:  table.Field{Name: OutputName(e), Type: dt},
		scalar: !b.sawColumn,
	}, nil
}

func (c *ColumnExpr) bind(b *binder) (evaluator, table.DataType, error) {
	idx, field, err := b.schema.Lookup(c.Name)
	if err != nil {
		return nil, 0, err
	}
	if b.aggOnly && !b.inAgg {
		return nil, 0, fmt.Errorf("%w: column %q must be used inside an aggregate", table.ErrInvalidArgument, c.Name)
	}
	if !b.inAgg {
		b.sawColumn = true
	}
	return func(row []any, _ []any) (any, error) {
		return row[idx], nil
	}, field.Type, nil
}

func (l *LiteralExpr) bind(b *binder) (evaluator, table.DataType, error) {
	v := l.Value
	dt := table.String
	if v != nil {
		var ok bool
		dt, ok = table.TypeOf(v)
		if !ok {
			return nil, 0, fmt.Errorf("%w: unsupported literal %T", table.ErrTypeMismatch, v)
		}
	}
	return func([]any, []any) (any, error) { return v, nil }, dt, nil
}

func (a *AliasExpr) bind(b *binder) (evaluator, table.DataType, error) {
	return a.Inner.bind(b)
}

func (c *CastExpr) bind(b *binder) (evaluator, table.DataType, error) {
	inner, _, err := c.Inner.bind(b)
	if err != nil {
		return nil, 0, err
	}
	to := c.To
	return func(row []any, aggs []any) (any, error) {
		v, err := inner(row, aggs)
		if err != nil {
			return nil, err
		}
		return table.Cast(v, to)
	}, to, nil
}

func (n *NotExpr) bind(b *binder) (evaluator, table.DataType, error) {
	inner, dt, err := n.Inner.bind(b)
	if err != nil {
		return nil, 0, err
	}
	if dt != table.Boolean {
		return nil, 0, fmt.Errorf("%w: not() requires bool, got %s", table.ErrTypeMismatch, dt)
	}
	return func(row []any, aggs []any) (any, error) {
		v, err := inner(row, aggs)
		if err != nil || v == nil {
			return nil, err
		}
		return !v.(bool), nil
	}, table.Boolean, nil
}

func (i *IsNullExpr) bind(b *binder) (evaluator, table.DataType, error) {
	inner, _, err := i.Inner.bind(b)
	if err != nil {
		return nil, 0, err
	}
	negate := i.Negate
	return func(row []any, aggs []any) (any, error) {
		v, err := inner(row, aggs)
		if err != nil {
			return nil, err
		}
		return (v == nil) != negate, nil
	}, table.Boolean, nil
}

func (d *dropNullsExpr) bind(b *binder) (evaluator, table.DataType, error) {
	var indices []int
	if len(d.Columns) == 0 {
		for i := 0; i < b.schema.Len(); i++ {
			indices = append(indices, i)
		}
	} else {
		for _, name := range d.Columns {
			idx, _, err := b.schema.Lookup(name)
			if err != nil {
				return nil, 0, err
			}
			indices = append(indices, idx)
		}
	}
	b.sawColumn = true
	return func(row []any, _ []any) (any, error) {
		for _, idx := range indices {
			if row[idx] == nil {
				return false, nil
			}
		}
		return true, nil
	}, table.Boolean, nil
}

func (m *MapExpr) bind(b *binder) (evaluator, table.DataType, error) {
	if m.Fn == nil {
		return nil, 0, fmt.Errorf("%w: map() without a function", table.ErrInvalidArgument)
	}
	inner, dt, err := m.Inner.bind(b)
	if err != nil {
		return nil, 0, err
	}
	if dt != m.In {
		return nil, 0, fmt.Errorf("%w: map() expects %s input, got %s", table.ErrTypeMismatch, m.In, dt)
	}
	fn, out := m.Fn, m.Out
	return func(row []any, aggs []any) (any, error) {
		v, err := inner(row, aggs)
		if err != nil || v == nil {
			return nil, err
		}
		res, err := fn(v)
		if err != nil {
			if errors.Is(err, table.ErrTypeMismatch) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: map(): %w", table.ErrTypeMismatch, err)
		}
		if err := table.CheckValue(out, res); err != nil {
			return nil, fmt.Errorf("map(): declared %s output: %w", out, err)
		}
		return res, nil
	}, out, nil
}

func (a *AggExpr) bind(b *binder) (evaluator, table.DataType, error) {
	if b.inAgg {
		return nil, 0, fmt.Errorf("%w: nested aggregate %s", table.ErrInvalidArgument, a)
	}
	b.inAgg = true
	arg, argType, err := a.Arg.bind(b)
	b.inAgg = false
	if err != nil {
		return nil, 0, err
	}

	var out table.DataType
	switch a.Func {
	case AggCountDistinct, AggCount:
		out = table.Int64
	case AggMin, AggMax:
		out = argType
	case AggMean:
		if !argType.IsNumeric() {
			return nil, 0, fmt.Errorf("%w: mean() requires a numeric column, got %s", table.ErrTypeMismatch, argType)
		}
		out = table.Float64
	case AggSum:
		if !argType.IsNumeric() {
			return nil, 0, fmt.Errorf("%w: sum() requires a numeric column, got %s", table.ErrTypeMismatch, argType)
		}
		out = argType
	default:
		return nil, 0, fmt.Errorf("%w: unknown aggregate %q", table.ErrInvalidArgument, a.Func)
	}

	slot := len(b.aggs)
	b.aggs = append(b.aggs, &aggSlot{fn: a.Func, arg: arg, argType: argType})
	return func(_ []any, aggs []any) (any, error) {
		return aggs[slot], nil
	}, out, nil
}

func (e *BinaryExpr) bind(b *binder) (evaluator, table.DataType, error) {
	left, lt, err := e.Left.bind(b)
	if err != nil {
		return nil, 0, err
	}
	right, rt, err := e.Right.bind(b)
	if err != nil {
		return nil, 0, err
	}

	switch {
	case e.Op.isArithmetic():
		return bindArithmetic(e.Op, left, right, lt, rt)
	case e.Op.isComparison():
		if !(lt == rt || (lt.IsNumeric() && rt.IsNumeric())) {
			return nil, 0, fmt.Errorf("%w: cannot compare %s with %s", table.ErrTypeMismatch, lt, rt)
		}
		return bindComparison(e.Op, left, right), table.Boolean, nil
	default:
		if lt != table.Boolean || rt != table.Boolean {
			return nil, 0, fmt.Errorf("%w: %s requires bool operands, got %s and %s", table.ErrTypeMismatch, e.Op, lt, rt)
		}
		return bindLogical(e.Op, left, right), table.Boolean, nil
	}
}

func bindArithmetic(op BinaryOp, left, right evaluator, lt, rt table.DataType) (evaluator, table.DataType, error) {
	if !lt.IsNumeric() || !rt.IsNumeric() {
		return nil, 0, fmt.Errorf("%w: arithmetic %s on %s and %s", table.ErrTypeMismatch, op, lt, rt)
	}

	if op != OpDiv && lt == table.Int64 && rt == table.Int64 {
		return func(row []any, aggs []any) (any, error) {
			l, r, err := operands(left, right, row, aggs)
			if err != nil || l == nil || r == nil {
				return nil, err
			}
			a, b := l.(int64), r.(int64)
			switch op {
			case OpAdd:
				return a + b, nil
			case OpSub:
				return a - b, nil
			default:
				return a * b, nil
			}
		}, table.Int64, nil
	}

	return func(row []any, aggs []any) (any, error) {
		l, r, err := operands(left, right, row, aggs)
		if err != nil || l == nil || r == nil {
			return nil, err
		}
		a, b := toFloat64(l), toFloat64(r)
		switch op {
		case OpAdd:
			return a + b, nil
		case OpSub:
			return a - b, nil
		case OpMul:
			return a * b, nil
		default:
			if b == 0 && lt == table.Int64 && rt == table.Int64 {
				return nil, nil
			}
			return a / b, nil
		}
	}, table.Float64, nil
}

func bindComparison(op BinaryOp, left, right evaluator) evaluator {
	return func(row []any, aggs []any) (any, error) {
		l, r, err := operands(left, right, row, aggs)
		if err != nil || l == nil || r == nil {
			return nil, err
		}
		if isNaN(l) || isNaN(r) {
			return op == OpNe, nil
		}
		c, err := table.Compare(l, r)
		if err != nil {
			return nil, err
		}
		switch op {
		case OpEq:
			return c == 0, nil
		case OpNe:
			return c != 0, nil
		case OpLt:
			return c < 0, nil
		case OpLe:
			return c <= 0, nil
		case OpGt:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	}
}

// bindLogical implements Kleene logic: false AND null is false, true OR
// null is true, anything else involving null is null
func bindLogical(op BinaryOp, left, right evaluator) evaluator {
	return func(row []any, aggs []any) (any, error) {
		l, r, err := operands(left, right, row, aggs)
		if err != nil {
			return nil, err
		}
		if op == OpAnd {
			if l == false || r == false {
				return false, nil
			}
			if l == nil || r == nil {
				return nil, nil
			}
			return true, nil
		}
		if l == true || r == true {
			return true, nil
		}
		if l == nil || r == nil {
			return nil, nil
		}
		return false, nil
	}
}

func operands(left, right evaluator, row []any, aggs []any) (any, any, error) {
	l, err := left(row, aggs)
	if err != nil {
		return nil, nil, err
	}
	r, err := right(row, aggs)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

func toFloat64(v any) float64 {
	switch val := v.(type) {
	case int64:
		return float64(val)
	case float64:
		return val
	default:
		return math.NaN()
	}
}

func isNaN(v any) bool {
	f, ok := v.(float64)
	return ok && math.IsNaN(f)
}
