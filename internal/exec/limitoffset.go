package exec

import (
	"io"

	"yachtsql/internal/ast"
	"yachtsql/internal/types"
)

// LimitOffset skips Offset rows then yields at most Limit rows. A nil
// Limit/Offset expression means unbounded/zero, per planir.LimitOffset.
type LimitOffset struct {
	input  Operator
	limit  ast.Expr
	offset ast.Expr
	ec     *EvalCtx

	skip      int
	remaining int
	unbounded bool
}

func NewLimitOffset(input Operator, limit, offset ast.Expr, ec *EvalCtx) *LimitOffset {
	return &LimitOffset{input: input, limit: limit, offset: offset, ec: ec}
}

func (l *LimitOffset) Schema() *types.Schema { return l.input.Schema() }
func (l *LimitOffset) Close() error          { return l.input.Close() }

func (l *LimitOffset) Open() error {
	if err := l.input.Open(); err != nil {
		return err
	}
	off, lim, err := evalLimitOffset(l.limit, l.offset, l.ec)
	if err != nil {
		return err
	}
	l.skip = off
	l.unbounded = lim < 0
	l.remaining = lim
	return nil
}

func (l *LimitOffset) Next() (Row, error) {
	for l.skip > 0 {
		if _, err := l.input.Next(); err != nil {
			return nil, err
		}
		l.skip--
	}
	if !l.unbounded && l.remaining <= 0 {
		return nil, io.EOF
	}
	row, err := l.input.Next()
	if err != nil {
		return nil, err
	}
	if !l.unbounded {
		l.remaining--
	}
	return row, nil
}

// evalLimitOffset evaluates LIMIT/OFFSET expressions to ints. A nil
// limit reports lim=-1 (unbounded).
func evalLimitOffset(limit, offset ast.Expr, ec *EvalCtx) (off, lim int, err error) {
	if offset != nil {
		v, err := Eval(offset, nil, nil, ec)
		if err != nil {
			return 0, 0, err
		}
		off = int(v.Int64())
	}
	lim = -1
	if limit != nil {
		v, err := Eval(limit, nil, nil, ec)
		if err != nil {
			return 0, 0, err
		}
		lim = int(v.Int64())
	}
	return off, lim, nil
}

// applyLimitOffset slices an already-materialized row set, used by
// TopN once its input is fully sorted in memory.
func applyLimitOffset(rows []Row, lim, off int) []Row {
	if off > len(rows) {
		off = len(rows)
	}
	rows = rows[off:]
	if lim >= 0 && lim < len(rows) {
		rows = rows[:lim]
	}
	return rows
}
