package yachtsql

import (
	"strings"

	"yachtsql/internal/ast"
	"yachtsql/internal/optimizer"
	"yachtsql/internal/parser"
	"yachtsql/internal/physical"
	"yachtsql/internal/planfmt"
	"yachtsql/internal/resolver"
	"yachtsql/internal/types"
)

// Explain parses and plans sql without running it, returning the
// physical plan's indented text form (SPEC_FULL.md §12). It takes a
// bare query/DML statement; a leading `EXPLAIN` is stripped and the
// statement under it is planned instead. To run `EXPLAIN ...` SQL text
// through Execute, see execExplainStmt.
func (e *Executor) Explain(sql string) (string, error) {
	stmt, err := parser.Parse(sql, e.opts.Dialect)
	if err != nil {
		return "", err
	}
	if ex, ok := stmt.(*ast.ExplainStmt); ok {
		stmt = ex.Stmt
	}
	phys, err := e.planStatement(stmt)
	if err != nil {
		return "", err
	}
	return planfmt.Physical(phys), nil
}

func (e *Executor) planStatement(stmt ast.Statement) (physical.Node, error) {
	rslv := resolver.New(e.cat, e.funcs)
	logical, err := rslv.Resolve(stmt)
	if err != nil {
		return nil, err
	}
	return physical.Plan(optimizer.Optimize(logical)), nil
}

// execExplainStmt runs `EXPLAIN [ANALYZE] stmt` as Execute's SQL
// surface for Explain, returning the plan as a one-column RecordBatch
// the way psql renders `EXPLAIN` output. ANALYZE is accepted but not
// distinguished from plain EXPLAIN: this engine has no per-operator
// timing instrumentation to report (SPEC_FULL.md's ambient logging
// covers transaction/DDL events, not per-node execution stats).
func (e *Executor) execExplainStmt(s *ast.ExplainStmt) (*Result, error) {
	phys, err := e.planStatement(s.Stmt)
	if err != nil {
		return nil, err
	}
	text := strings.TrimRight(planfmt.Physical(phys), "\n")
	schema := types.NewSchema(types.Column{Name: "QUERY PLAN", Type: types.Simple(types.String)})
	batch := types.NewRecordBatch(schema)
	for _, line := range strings.Split(text, "\n") {
		batch.AppendRow([]types.Value{types.StringValue(line)})
	}
	return queryResult(batch), nil
}
