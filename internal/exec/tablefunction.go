package exec

import (
	"io"
	"strings"

	"yachtsql/internal/ast"
	"yachtsql/internal/errs"
	"yachtsql/internal/types"
)

// TableFunction evaluates a table-valued function once on Open and
// streams its result rows. Its Eval calls pass a nil row/schema because
// a table function has no row of its own to evaluate against; a
// LATERAL reference to a sibling FROM-clause column (e.g.
// `generate_series(1, t.n)`) resolves instead through EvalCtx's
// outer-row stack, bound by the Apply operator that drives this
// TableFunction when it is LATERAL (spec.md §4.5).
type TableFunction struct {
	call   *ast.FuncCall
	schema *types.Schema
	ec     *EvalCtx

	rows []Row
	pos  int
}

func NewTableFunction(call *ast.FuncCall, schema *types.Schema, ec *EvalCtx) *TableFunction {
	return &TableFunction{call: call, schema: schema, ec: ec}
}

func (t *TableFunction) Schema() *types.Schema { return t.schema }
func (t *TableFunction) Close() error          { t.rows = nil; return nil }

func (t *TableFunction) Open() error {
	t.pos = 0
	switch strings.ToUpper(t.call.Name) {
	case "GENERATE_SERIES":
		return t.openGenerateSeries()
	case "UNNEST":
		return t.openUnnest()
	default:
		return errs.New(errs.FeatureNotSupported, "table function %s is not supported", t.call.Name)
	}
}

func (t *TableFunction) Next() (Row, error) {
	if t.pos >= len(t.rows) {
		return nil, io.EOF
	}
	r := t.rows[t.pos]
	t.pos++
	return r, nil
}

func (t *TableFunction) openGenerateSeries() error {
	if len(t.call.Args) < 2 {
		return errs.New(errs.ResolutionError, "generate_series requires at least 2 arguments")
	}
	start, err := Eval(t.call.Args[0], nil, nil, t.ec)
	if err != nil {
		return err
	}
	stop, err := Eval(t.call.Args[1], nil, nil, t.ec)
	if err != nil {
		return err
	}
	step := int64(1)
	if len(t.call.Args) > 2 {
		s, err := Eval(t.call.Args[2], nil, nil, t.ec)
		if err != nil {
			return err
		}
		step = s.Int64()
	}
	if step == 0 {
		return errs.New(errs.OutOfRange, "generate_series step must not be zero")
	}
	t.rows = t.rows[:0]
	if step > 0 {
		for v := start.Int64(); v <= stop.Int64(); v += step {
			t.rows = append(t.rows, Row{types.Int64Value(v)})
		}
	} else {
		for v := start.Int64(); v >= stop.Int64(); v += step {
			t.rows = append(t.rows, Row{types.Int64Value(v)})
		}
	}
	return nil
}

func (t *TableFunction) openUnnest() error {
	if len(t.call.Args) != 1 {
		return errs.New(errs.ResolutionError, "unnest requires exactly 1 argument")
	}
	v, err := Eval(t.call.Args[0], nil, nil, t.ec)
	if err != nil {
		return err
	}
	t.rows = t.rows[:0]
	if v.IsNull {
		return nil
	}
	for _, elem := range v.Array() {
		t.rows = append(t.rows, Row{elem})
	}
	return nil
}
