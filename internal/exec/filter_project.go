package exec

import (
	"yachtsql/internal/ast"
	"yachtsql/internal/planir"
	"yachtsql/internal/storage"
	"yachtsql/internal/types"
)

// Filter drops rows for which Predicate does not evaluate to true under
// three-valued logic (spec.md §9: NULL and FALSE are both rejected).
type Filter struct {
	input     Operator
	predicate ast.Expr
	ec        *EvalCtx
}

func NewFilter(input Operator, predicate ast.Expr, ec *EvalCtx) *Filter {
	return &Filter{input: input, predicate: predicate, ec: ec}
}

func (f *Filter) Open() error          { return f.input.Open() }
func (f *Filter) Close() error         { return f.input.Close() }
func (f *Filter) Schema() *types.Schema { return f.input.Schema() }

func (f *Filter) Next() (Row, error) {
	for {
		row, err := f.input.Next()
		if err != nil {
			return nil, err
		}
		v, err := Eval(f.predicate, row, f.input.Schema(), f.ec)
		if err != nil {
			return nil, err
		}
		if types.BoolToBool3(v).MatchesWhere() {
			return row, nil
		}
	}
}

// RowID forwards to the wrapped input: Filter never changes which
// physical row a tuple came from, only whether it passes through. This
// panics if input is not a RowSource, which would mean the resolver
// shaped a DML source in a way this package doesn't expect — an
// internal invariant violation, not a user-reachable error.
func (f *Filter) RowID() storage.RowID {
	return f.input.(RowSource).RowID()
}

// Project computes Items against each input row, producing a new row
// shape. Items is empty only for degenerate plans; normally every
// SELECT list entry becomes one ProjectItem.
type Project struct {
	input  Operator
	items  []planir.ProjectItem
	schema *types.Schema
	ec     *EvalCtx
}

func NewProject(input Operator, items []planir.ProjectItem, schema *types.Schema, ec *EvalCtx) *Project {
	return &Project{input: input, items: items, schema: schema, ec: ec}
}

func (p *Project) Open() error          { return p.input.Open() }
func (p *Project) Close() error         { return p.input.Close() }
func (p *Project) Schema() *types.Schema { return p.schema }

func (p *Project) Next() (Row, error) {
	row, err := p.input.Next()
	if err != nil {
		return nil, err
	}
	inSchema := p.input.Schema()
	out := make(Row, len(p.items))
	for i, it := range p.items {
		v, err := Eval(it.Expr, row, inSchema, p.ec)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
