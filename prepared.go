package yachtsql

import (
	"yachtsql/internal/ast"
	"yachtsql/internal/errs"
	"yachtsql/internal/parser"
	"yachtsql/internal/physical"
	"yachtsql/internal/types"
)

// Prepared is a parsed, resolved, optimized, and physically planned
// statement, ready to run repeatedly against different bound parameter
// values without repeating the front end each time (SPEC_FULL.md §12
// "prepared statements"). It is not safe for concurrent Execute calls.
type Prepared struct {
	exec *Executor
	phys physical.Node
}

// Prepare parses and plans sql once. DDL and transaction-control
// statements cannot be prepared: they have no plan node to cache, and
// running them repeatedly with different "parameters" makes no sense.
func (e *Executor) Prepare(sql string) (*Prepared, error) {
	stmt, err := parser.Parse(sql, e.opts.Dialect)
	if err != nil {
		return nil, err
	}
	switch stmt.(type) {
	case *ast.CreateTableStmt, *ast.CreateIndexStmt, *ast.BeginStmt, *ast.CommitStmt,
		*ast.RollbackStmt, *ast.SavepointStmt, *ast.ReleaseSavepointStmt, *ast.ExplainStmt:
		return nil, errs.New(errs.FeatureNotSupported, "statement type %T cannot be prepared", stmt)
	}
	phys, err := e.planStatement(stmt)
	if err != nil {
		return nil, err
	}
	return &Prepared{exec: e, phys: phys}, nil
}

// Execute runs the prepared statement with params bound to its
// positional $1/? placeholders, under an implicit transaction unless
// the Executor has one open explicitly.
func (p *Prepared) Execute(params ...types.Value) (*Result, error) {
	e := p.exec
	if e.tx != nil {
		e.txm.RefreshSnapshot(e.tx)
		return e.runPhysical(p.phys, e.resolverForSub(), e.tx, params)
	}
	tx := e.txm.Begin(e.opts.DefaultIsolation)
	res, err := e.runPhysical(p.phys, e.resolverForSub(), tx, params)
	if err != nil {
		e.txm.Rollback(tx)
		return nil, err
	}
	if cerr := e.txm.Commit(tx); cerr != nil {
		return nil, cerr
	}
	return res, nil
}
