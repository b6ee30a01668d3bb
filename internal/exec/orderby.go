package exec

import (
	"yachtsql/internal/ast"
	"yachtsql/internal/types"
)

// evalOrderKey evaluates every ORDER BY expression against one row,
// producing the tuple lessOrderKey compares.
func evalOrderKey(items []ast.OrderItem, row Row, schema *types.Schema, ec *EvalCtx) ([]types.Value, error) {
	out := make([]types.Value, len(items))
	for i, it := range items {
		v, err := Eval(it.Expr, row, schema, ec)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// lessOrderKey reports whether key a sorts before key b under items'
// ASC/DESC and NULLS FIRST/LAST directives. Absent an explicit NULLS
// clause, NULLs sort first for ASC and last for DESC, matching
// BigQuery's default (PostgreSQL's default is the reverse).
func lessOrderKey(a, b []types.Value, items []ast.OrderItem) bool {
	for i, it := range items {
		av, bv := a[i], b[i]
		if av.IsNull || bv.IsNull {
			if av.IsNull == bv.IsNull {
				continue
			}
			nullsFirst := !it.Desc
			if it.NullsFirst {
				nullsFirst = true
			} else if it.NullsLast {
				nullsFirst = false
			}
			if av.IsNull {
				return nullsFirst
			}
			return !nullsFirst
		}
		c := types.Compare(av, bv)
		if c == 0 {
			continue
		}
		if it.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}
