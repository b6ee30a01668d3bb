package exec

import (
	"yachtsql/internal/ast"
	"yachtsql/internal/optimizer"
	"yachtsql/internal/physical"
	"yachtsql/internal/resolver"
	"yachtsql/internal/types"
)

// NewSubqueryRunner builds the callback EvalCtx.SetSubqueryRunner binds:
// resolve, optimize, plan, and compile a SELECT exactly as the
// statement-level Executor would, binding the triggering outer row into
// the shared EvalCtx before compiling so a correlated reference inside
// the subquery (spec.md §4.2's correlation edges; §9's per-row fallback)
// sees the outer row's actual values, then drain it to completion.
//
// Callers construct c's EvalCtx with NewEvalCtx first, build c, then
// call SetSubqueryRunner(NewSubqueryRunner(c, res)) to close the loop.
func NewSubqueryRunner(c *Compiler, res *resolver.Resolver) func(outer Row, outerSchema *types.Schema, q *ast.SelectStmt) ([]Row, *types.Schema, error) {
	return func(outer Row, outerSchema *types.Schema, q *ast.SelectStmt) ([]Row, *types.Schema, error) {
		logical, err := res.ResolveCorrelated(q, outerSchema)
		if err != nil {
			return nil, nil, err
		}
		optimized := optimizer.Optimize(logical)
		phys := physical.Plan(optimized)
		c.EC.PushOuter(outer, outerSchema)
		defer c.EC.PopOuter()
		op, err := c.Compile(phys)
		if err != nil {
			return nil, nil, err
		}
		rows, schema, err := drainAll(op)
		if err != nil {
			return nil, nil, err
		}
		return rows, schema, nil
	}
}
