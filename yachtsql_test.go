package yachtsql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"yachtsql/internal/lexer"
	"yachtsql/internal/txn"
	"yachtsql/internal/types"
)

func int64Param(v int64) types.Value { return types.Int64Value(v) }

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	return New(Options{Dialect: lexer.PostgreSQL})
}

func mustExec(t *testing.T, e *Executor, sql string) *Result {
	t.Helper()
	res, err := e.Execute(sql)
	require.NoError(t, err, sql)
	return res
}

func TestCreateTableAndInsertSelect(t *testing.T) {
	e := newTestExecutor(t)

	res := mustExec(t, e, `CREATE TABLE users (id INT NOT NULL, name TEXT)`)
	require.False(t, res.IsQuery())

	mustExec(t, e, `INSERT INTO users VALUES (1, 'Alice')`)
	mustExec(t, e, `INSERT INTO users VALUES (2, 'Bob')`)

	res = mustExec(t, e, `SELECT id, name FROM users ORDER BY id`)
	require.True(t, res.IsQuery())
	require.Equal(t, 2, res.Batch.NumRows())
	require.Equal(t, int64(1), res.Batch.Row(0)[0].Int64())
	require.Equal(t, "Alice", res.Batch.Row(0)[1].Str())
	require.Equal(t, "Bob", res.Batch.Row(1)[1].Str())
}

func TestCreateTableIfNotExistsIsIdempotent(t *testing.T) {
	e := newTestExecutor(t)
	mustExec(t, e, `CREATE TABLE users (id INT NOT NULL)`)
	mustExec(t, e, `INSERT INTO users VALUES (1)`)

	// A second CREATE TABLE IF NOT EXISTS must not reset the table's data.
	mustExec(t, e, `CREATE TABLE IF NOT EXISTS users (id INT NOT NULL)`)

	res := mustExec(t, e, `SELECT id FROM users`)
	require.Equal(t, 1, res.Batch.NumRows())
}

func TestCreateTableWithoutIfNotExistsConflicts(t *testing.T) {
	e := newTestExecutor(t)
	mustExec(t, e, `CREATE TABLE users (id INT NOT NULL)`)

	_, err := e.Execute(`CREATE TABLE users (id INT NOT NULL)`)
	require.Error(t, err)
}

func TestImplicitTransactionRollsBackOnError(t *testing.T) {
	e := newTestExecutor(t)
	mustExec(t, e, `CREATE TABLE users (id INT NOT NULL)`)
	mustExec(t, e, `INSERT INTO users VALUES (1)`)

	_, err := e.Execute(`SELECT id FROM nosuchtable`)
	require.Error(t, err)

	res := mustExec(t, e, `SELECT id FROM users`)
	require.Equal(t, 1, res.Batch.NumRows())
}

func TestExplicitTransactionCommit(t *testing.T) {
	e := newTestExecutor(t)
	mustExec(t, e, `CREATE TABLE users (id INT NOT NULL)`)

	require.NoError(t, e.Begin(txn.ReadCommitted))
	mustExec(t, e, `INSERT INTO users VALUES (1)`)
	mustExec(t, e, `INSERT INTO users VALUES (2)`)
	require.NoError(t, e.Commit())

	res := mustExec(t, e, `SELECT id FROM users`)
	require.Equal(t, 2, res.Batch.NumRows())
}

func TestExplicitTransactionRollback(t *testing.T) {
	e := newTestExecutor(t)
	mustExec(t, e, `CREATE TABLE users (id INT NOT NULL)`)

	require.NoError(t, e.Begin(txn.ReadCommitted))
	mustExec(t, e, `INSERT INTO users VALUES (1)`)
	require.NoError(t, e.Rollback())

	res := mustExec(t, e, `SELECT id FROM users`)
	require.Equal(t, 0, res.Batch.NumRows())
}

func TestSavepointRollsBackPartialWork(t *testing.T) {
	e := newTestExecutor(t)
	mustExec(t, e, `CREATE TABLE users (id INT NOT NULL)`)

	require.NoError(t, e.Begin(txn.ReadCommitted))
	mustExec(t, e, `INSERT INTO users VALUES (1)`)
	require.NoError(t, e.Savepoint("sp1"))
	mustExec(t, e, `INSERT INTO users VALUES (2)`)
	require.NoError(t, e.RollbackToSavepoint("sp1"))
	require.NoError(t, e.Commit())

	res := mustExec(t, e, `SELECT id FROM users`)
	require.Equal(t, 1, res.Batch.NumRows())
}

func TestInsertReturning(t *testing.T) {
	e := newTestExecutor(t)
	mustExec(t, e, `CREATE TABLE users (id INT NOT NULL, name TEXT)`)

	res := mustExec(t, e, `INSERT INTO users VALUES (1, 'Alice') RETURNING id, name`)
	require.True(t, res.IsQuery())
	require.Equal(t, 1, res.Batch.NumRows())
	require.Equal(t, "Alice", res.Batch.Row(0)[1].Str())
}

func TestDeleteWithoutReturningIsAck(t *testing.T) {
	e := newTestExecutor(t)
	mustExec(t, e, `CREATE TABLE users (id INT NOT NULL)`)
	mustExec(t, e, `INSERT INTO users VALUES (1)`)

	res := mustExec(t, e, `DELETE FROM users WHERE id = 1`)
	require.False(t, res.IsQuery())
	require.Equal(t, 1, res.Ack.RowsAffected)
}

func TestExplainRendersPhysicalPlan(t *testing.T) {
	e := newTestExecutor(t)
	mustExec(t, e, `CREATE TABLE users (id INT NOT NULL, name TEXT)`)

	plan, err := e.Explain(`SELECT id, name FROM users WHERE id > 0 ORDER BY id`)
	require.NoError(t, err)
	require.NotEmpty(t, plan)
	require.True(t, strings.Contains(plan, "Sort") || strings.Contains(plan, "Scan"))
}

func TestExplainStmtViaExecute(t *testing.T) {
	e := newTestExecutor(t)
	mustExec(t, e, `CREATE TABLE users (id INT NOT NULL)`)

	res := mustExec(t, e, `EXPLAIN SELECT id FROM users`)
	require.True(t, res.IsQuery())
	require.Equal(t, 1, res.Batch.NumCols())
	require.Equal(t, "QUERY PLAN", res.Batch.Schema.Columns[0].Name)
}

func TestPrepareAndExecuteWithParams(t *testing.T) {
	e := newTestExecutor(t)
	mustExec(t, e, `CREATE TABLE users (id INT NOT NULL, name TEXT)`)
	mustExec(t, e, `INSERT INTO users VALUES (1, 'Alice')`)
	mustExec(t, e, `INSERT INTO users VALUES (2, 'Bob')`)

	stmt, err := e.Prepare(`SELECT name FROM users WHERE id = $1`)
	require.NoError(t, err)

	res, err := stmt.Execute(int64Param(1))
	require.NoError(t, err)
	require.Equal(t, 1, res.Batch.NumRows())
	require.Equal(t, "Alice", res.Batch.Row(0)[0].Str())

	res, err = stmt.Execute(int64Param(2))
	require.NoError(t, err)
	require.Equal(t, "Bob", res.Batch.Row(0)[0].Str())
}

func TestPrepareRejectsDDL(t *testing.T) {
	e := newTestExecutor(t)
	_, err := e.Prepare(`CREATE TABLE users (id INT NOT NULL)`)
	require.Error(t, err)
}

func TestTablesAndColumnsIntrospection(t *testing.T) {
	e := newTestExecutor(t)
	mustExec(t, e, `CREATE TABLE users (id INT NOT NULL, name TEXT)`)

	tables := e.Tables()
	require.Len(t, tables, 1)
	require.Equal(t, "users", tables[0].Name)

	cols := e.Columns()
	require.Equal(t, 2, cols.NumRows())
}
