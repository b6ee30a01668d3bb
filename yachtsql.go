// Package yachtsql is the embeddable, in-memory analytical SQL engine
// described by spec.md: an Executor that parses PostgreSQL/BigQuery/
// ClickHouse-dialect SQL, resolves and optimizes it against an
// in-process catalog, and runs it over MVCC columnar storage. It is the
// only public surface; every internal/... package is an implementation
// detail reached through it.
package yachtsql

import (
	"yachtsql/internal/ast"
	"yachtsql/internal/catalog"
	"yachtsql/internal/errs"
	"yachtsql/internal/exec"
	"yachtsql/internal/functions"
	"yachtsql/internal/obs"
	"yachtsql/internal/optimizer"
	"yachtsql/internal/parser"
	"yachtsql/internal/physical"
	"yachtsql/internal/planir"
	"yachtsql/internal/resolver"
	"yachtsql/internal/storage"
	"yachtsql/internal/txn"
	"yachtsql/internal/types"
)

// Executor owns one catalog, one storage instance, and one transaction
// manager. It is not safe for concurrent use by multiple goroutines
// issuing statements against the same explicit transaction; concurrent
// implicit-transaction statements against different tables are fine,
// since the storage layer does its own per-table locking (spec.md §5).
type Executor struct {
	cat   *catalog.Catalog
	store *storage.Store
	txm   *txn.Manager
	funcs *functions.Registry
	opts  Options

	tx *txn.Transaction // non-nil while an explicit transaction is open
}

// New creates an engine with an empty catalog, the builtin function
// registry, and no tables.
func New(opts Options) *Executor {
	opts = opts.withDefaults()
	obs.Init(obs.Config{Level: opts.LogLevel})
	return &Executor{
		cat:   catalog.New(),
		store: storage.NewStore(),
		txm:   txn.NewManager(),
		funcs: functions.New(),
		opts:  opts,
	}
}

// RegisterFunction extends the function registry with a custom scalar
// or aggregate implementation (spec.md §6 "register_function").
func (e *Executor) RegisterFunction(f any) error {
	switch fn := f.(type) {
	case *functions.ScalarFunc:
		e.funcs.RegisterScalar(fn)
	case *functions.AggregateFunc:
		e.funcs.RegisterAggregate(fn)
	default:
		return errs.New(errs.InternalError, "RegisterFunction: unsupported function type %T", f)
	}
	return nil
}

// Execute parses and runs a single SQL statement. A statement outside
// an explicit transaction runs in its own implicit transaction,
// committed on success and rolled back on any error (spec.md §6).
func (e *Executor) Execute(sql string) (*Result, error) {
	stmt, err := parser.Parse(sql, e.opts.Dialect)
	if err != nil {
		return nil, err
	}
	return e.executeStatement(stmt)
}

func (e *Executor) executeStatement(stmt ast.Statement) (*Result, error) {
	switch s := stmt.(type) {
	case *ast.CreateTableStmt:
		return e.execCreateTable(s)
	case *ast.CreateIndexStmt:
		return e.execCreateIndex(s)
	case *ast.BeginStmt:
		return e.execBeginStmt(s)
	case *ast.CommitStmt:
		return e.execCommitStmt()
	case *ast.RollbackStmt:
		return e.execRollbackStmt(s)
	case *ast.SavepointStmt:
		return e.execSavepointStmt(s)
	case *ast.ReleaseSavepointStmt:
		return e.execReleaseSavepointStmt(s)
	case *ast.ExplainStmt:
		return e.execExplainStmt(s)
	default:
		return e.executeQueryOrDML(stmt)
	}
}

// executeQueryOrDML runs a SELECT/VALUES/INSERT/UPDATE/DELETE, wrapping
// it in an implicit transaction unless one is already open.
func (e *Executor) executeQueryOrDML(stmt ast.Statement) (*Result, error) {
	if e.tx != nil {
		e.txm.RefreshSnapshot(e.tx)
		return e.runStatement(stmt, e.tx)
	}
	tx := e.txm.Begin(e.opts.DefaultIsolation)
	res, err := e.runStatement(stmt, tx)
	if err != nil {
		e.txm.Rollback(tx)
		return nil, err
	}
	if cerr := e.txm.Commit(tx); cerr != nil {
		return nil, cerr
	}
	return res, nil
}

func (e *Executor) resolverForSub() *resolver.Resolver {
	return resolver.New(e.cat, e.funcs)
}

func (e *Executor) runStatement(stmt ast.Statement, tx *txn.Transaction) (*Result, error) {
	rslv := resolver.New(e.cat, e.funcs)
	logical, err := rslv.Resolve(stmt)
	if err != nil {
		return nil, err
	}
	return e.runPlan(logical, rslv, tx, nil)
}

func (e *Executor) runPlan(logical planir.Node, rslv *resolver.Resolver, tx *txn.Transaction, params []types.Value) (*Result, error) {
	optimized := optimizer.Optimize(logical)
	phys := physical.Plan(optimized)
	return e.runPhysical(phys, rslv, tx, params)
}

func (e *Executor) runPhysical(phys physical.Node, rslv *resolver.Resolver, tx *txn.Transaction, params []types.Value) (*Result, error) {
	ec := exec.NewEvalCtx(e.funcs, params)
	compiler := exec.NewCompiler(e.cat, e.store, tx, e.funcs, ec)
	ec.SetSubqueryRunner(exec.NewSubqueryRunner(compiler, rslv))

	op, err := compiler.Compile(phys)
	if err != nil {
		return nil, err
	}
	rows, schema, err := exec.Drain(op)
	if err != nil {
		return nil, err
	}
	if dml, ok := op.(*exec.DML); ok {
		if len(rows) > 0 {
			return queryResult(rowsToBatch(rows, schema)), nil
		}
		return ackResult(dml.Affected()), nil
	}
	return queryResult(rowsToBatch(rows, schema)), nil
}

// Begin starts an explicit transaction. It fails if one is already
// open; nested BEGINs are not supported, only savepoints are.
func (e *Executor) Begin(isolation txn.Isolation) error {
	if e.tx != nil {
		return errs.New(errs.InternalError, "transaction already in progress")
	}
	e.tx = e.txm.Begin(isolation)
	return nil
}

// Commit commits the open explicit transaction.
func (e *Executor) Commit() error {
	if e.tx == nil {
		return errs.New(errs.InternalError, "no transaction in progress")
	}
	tx := e.tx
	e.tx = nil
	return e.txm.Commit(tx)
}

// Rollback aborts the open explicit transaction.
func (e *Executor) Rollback() error {
	if e.tx == nil {
		return errs.New(errs.InternalError, "no transaction in progress")
	}
	tx := e.tx
	e.tx = nil
	e.txm.Rollback(tx)
	return nil
}

// Savepoint marks a rollback point inside the open explicit transaction.
func (e *Executor) Savepoint(name string) error {
	if e.tx == nil {
		return errs.New(errs.InternalError, "SAVEPOINT requires an open transaction")
	}
	e.tx.Savepoint(name)
	return nil
}

// RollbackToSavepoint undoes every write since name's Savepoint call.
func (e *Executor) RollbackToSavepoint(name string) error {
	if e.tx == nil {
		return errs.New(errs.InternalError, "ROLLBACK TO SAVEPOINT requires an open transaction")
	}
	return e.tx.RollbackTo(name)
}

// ReleaseSavepoint discards name without rolling anything back.
func (e *Executor) ReleaseSavepoint(name string) error {
	if e.tx == nil {
		return errs.New(errs.InternalError, "RELEASE SAVEPOINT requires an open transaction")
	}
	return e.tx.ReleaseSavepoint(name)
}

func (e *Executor) execBeginStmt(s *ast.BeginStmt) (*Result, error) {
	isolation := e.opts.DefaultIsolation
	if s.HasLevel {
		isolation = isolationFromAST(s.Isolation)
	}
	if err := e.Begin(isolation); err != nil {
		return nil, err
	}
	return ackResult(0), nil
}

func (e *Executor) execCommitStmt() (*Result, error) {
	if err := e.Commit(); err != nil {
		return nil, err
	}
	return ackResult(0), nil
}

func (e *Executor) execRollbackStmt(s *ast.RollbackStmt) (*Result, error) {
	if s.ToSavepoint != "" {
		if err := e.RollbackToSavepoint(s.ToSavepoint); err != nil {
			return nil, err
		}
		return ackResult(0), nil
	}
	if err := e.Rollback(); err != nil {
		return nil, err
	}
	return ackResult(0), nil
}

func (e *Executor) execSavepointStmt(s *ast.SavepointStmt) (*Result, error) {
	if err := e.Savepoint(s.Name); err != nil {
		return nil, err
	}
	return ackResult(0), nil
}

func (e *Executor) execReleaseSavepointStmt(s *ast.ReleaseSavepointStmt) (*Result, error) {
	if err := e.ReleaseSavepoint(s.Name); err != nil {
		return nil, err
	}
	return ackResult(0), nil
}

// Tables returns the catalog's table definitions sorted by name, an
// information_schema.tables-style listing (SPEC_FULL.md §12 "catalog
// introspection"); no information_schema relation is queryable in SQL.
func (e *Executor) Tables() []*catalog.TableDef {
	return e.cat.Tables()
}

// Columns returns an information_schema.columns-shaped RecordBatch
// describing every table's columns.
func (e *Executor) Columns() *types.RecordBatch {
	return e.cat.ColumnsView()
}

// isolationFromAST maps the parser's BEGIN-clause enum to txn.Isolation;
// the two are ordered differently (ast.Isolation starts at ReadCommitted
// and lists ReadUncommitted last, txn.Isolation runs weakest to strictest).
func isolationFromAST(i ast.Isolation) txn.Isolation {
	switch i {
	case ast.ReadUncommitted:
		return txn.ReadUncommitted
	case ast.RepeatableRead:
		return txn.RepeatableRead
	case ast.Serializable:
		return txn.Serializable
	default:
		return txn.ReadCommitted
	}
}
