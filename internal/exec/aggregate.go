package exec

import (
	"io"

	"yachtsql/internal/ast"
	"yachtsql/internal/errs"
	"yachtsql/internal/functions"
	"yachtsql/internal/planir"
	"yachtsql/internal/types"
)

// Aggregate groups input rows by groupBy and folds each group's rows
// into one accumulator per item, materializing every group on Open the
// way physical's HashAggregate strategy implies
// (internal/physical/physical.go).
// A GROUP BY-less aggregate over zero input rows still produces exactly
// one row (spec.md §4.5), synthesized here as a single empty-keyed
// group with freshly reset accumulators.
type Aggregate struct {
	input   Operator
	groupBy []ast.Expr
	items   []planir.AggregateItem
	schema  *types.Schema
	ec      *EvalCtx
	funcs   *functions.Registry

	groups []*aggGroup
	index  map[uint64][]int
	pos    int
}

type aggGroup struct {
	key  []types.Value
	accs []functions.Accumulator
	seen []map[uint64]bool // per-item seen-arg hashes, for DISTINCT items only
}

func NewAggregate(input Operator, groupBy []ast.Expr, items []planir.AggregateItem, schema *types.Schema, ec *EvalCtx, funcs *functions.Registry) *Aggregate {
	return &Aggregate{input: input, groupBy: groupBy, items: items, schema: schema, ec: ec, funcs: funcs}
}

func (a *Aggregate) Schema() *types.Schema { return a.schema }

func (a *Aggregate) Close() error {
	a.groups = nil
	a.index = nil
	return a.input.Close()
}

func (a *Aggregate) Open() error {
	if err := a.input.Open(); err != nil {
		return err
	}
	a.groups = nil
	a.index = map[uint64][]int{}
	a.pos = 0

	inSchema := a.input.Schema()
	colType := func(cr *ast.ColumnRef) (types.DataType, error) {
		idx := inSchema.IndexOf(cr.Name)
		if idx < 0 {
			return types.DataType{}, errs.New(errs.InternalError, "column %q not found", cr.Name)
		}
		return inSchema.Columns[idx].Type, nil
	}

	argTypesByItem := make([][]types.DataType, len(a.items))
	aggByItem := make([]*functions.AggregateFunc, len(a.items))
	for i, it := range a.items {
		argTypes := make([]types.DataType, len(it.Args))
		for j, arg := range it.Args {
			t, err := a.funcs.ExprReturnType(arg, colType)
			if err != nil {
				return err
			}
			argTypes[j] = t
		}
		af, err := a.funcs.LookupAggregate(it.FuncName, argTypes)
		if err != nil {
			return err
		}
		argTypesByItem[i] = argTypes
		aggByItem[i] = af
	}

	newGroup := func(key []types.Value) *aggGroup {
		g := &aggGroup{key: key, accs: make([]functions.Accumulator, len(a.items)), seen: make([]map[uint64]bool, len(a.items))}
		for i, af := range aggByItem {
			g.accs[i] = af.NewAcc(argTypesByItem[i])
			if a.items[i].Distinct {
				g.seen[i] = map[uint64]bool{}
			}
		}
		return g
	}

	for {
		row, err := a.input.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		key := make([]types.Value, len(a.groupBy))
		for i, g := range a.groupBy {
			v, err := Eval(g, row, inSchema, a.ec)
			if err != nil {
				return err
			}
			key[i] = v
		}

		h := types.HashRow(key)
		var group *aggGroup
		for _, gi := range a.index[h] {
			if sameKey(a.groups[gi].key, key) {
				group = a.groups[gi]
				break
			}
		}
		if group == nil {
			group = newGroup(key)
			a.index[h] = append(a.index[h], len(a.groups))
			a.groups = append(a.groups, group)
		}

		for i, it := range a.items {
			args := make([]types.Value, len(it.Args))
			for j, arg := range it.Args {
				v, err := Eval(arg, row, inSchema, a.ec)
				if err != nil {
					return err
				}
				args[j] = v
			}
			if it.Distinct {
				h := types.HashRow(args)
				if group.seen[i][h] {
					continue
				}
				group.seen[i][h] = true
			}
			group.accs[i].Accumulate(args)
		}
	}

	if len(a.groups) == 0 && len(a.groupBy) == 0 {
		a.groups = append(a.groups, newGroup(nil))
	}

	return nil
}

func (a *Aggregate) Next() (Row, error) {
	if a.pos >= len(a.groups) {
		return nil, io.EOF
	}
	g := a.groups[a.pos]
	a.pos++

	out := make(Row, 0, len(g.key)+len(g.accs))
	out = append(out, g.key...)
	for _, acc := range g.accs {
		out = append(out, acc.Finalize())
	}
	return out, nil
}

func sameKey(a, b []types.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].IsNull != b[i].IsNull {
			return false
		}
		if !a[i].IsNull && !types.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
