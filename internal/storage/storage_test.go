package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"yachtsql/internal/txn"
	"yachtsql/internal/types"
)

func testSchema() *types.Schema {
	return types.NewSchema(
		types.Column{Name: "id", Type: types.Simple(types.Int64)},
		types.Column{Name: "name", Type: types.Simple(types.String)},
	)
}

func TestInsertVisibleAfterCommit(t *testing.T) {
	m := txn.NewManager()
	tbl := NewTable("accounts", testSchema())

	writer := m.Begin(txn.ReadCommitted)
	tbl.Insert(writer, []types.Value{types.Int64Value(1), types.StringValue("a")})
	require.NoError(t, m.Commit(writer))

	reader := m.Begin(txn.ReadCommitted)
	var rows [][]types.Value
	tbl.Scan(reader, func(_ RowID, row []types.Value) bool {
		rows = append(rows, row)
		return true
	})
	require.Len(t, rows, 1)
	require.Equal(t, int64(1), rows[0][0].Int64())
}

func TestRepeatableReadDoesNotSeeLaterInsert(t *testing.T) {
	m := txn.NewManager()
	tbl := NewTable("accounts", testSchema())

	reader := m.Begin(txn.RepeatableRead)

	writer := m.Begin(txn.ReadCommitted)
	tbl.Insert(writer, []types.Value{types.Int64Value(1), types.StringValue("a")})
	require.NoError(t, m.Commit(writer))

	count := 0
	tbl.Scan(reader, func(RowID, []types.Value) bool { count++; return true })
	require.Equal(t, 0, count, "a RepeatableRead snapshot taken before the insert's commit must not observe it")
}

func TestUpdateHidesOldVersionFromLaterSnapshot(t *testing.T) {
	m := txn.NewManager()
	tbl := NewTable("accounts", testSchema())

	writer := m.Begin(txn.ReadCommitted)
	id := tbl.Insert(writer, []types.Value{types.Int64Value(1), types.StringValue("a")})
	require.NoError(t, m.Commit(writer))

	updater := m.Begin(txn.ReadCommitted)
	tbl.Update(updater, id, []types.Value{types.Int64Value(1), types.StringValue("b")})
	require.NoError(t, m.Commit(updater))

	reader := m.Begin(txn.ReadCommitted)
	var rows [][]types.Value
	tbl.Scan(reader, func(_ RowID, row []types.Value) bool {
		rows = append(rows, row)
		return true
	})
	require.Len(t, rows, 1)
	require.Equal(t, "b", rows[0][1].Str())
}

func TestDeleteHidesRow(t *testing.T) {
	m := txn.NewManager()
	tbl := NewTable("accounts", testSchema())

	writer := m.Begin(txn.ReadCommitted)
	id := tbl.Insert(writer, []types.Value{types.Int64Value(1), types.StringValue("a")})
	require.NoError(t, m.Commit(writer))

	deleter := m.Begin(txn.ReadCommitted)
	tbl.Delete(deleter, id)
	require.NoError(t, m.Commit(deleter))

	reader := m.Begin(txn.ReadCommitted)
	count := 0
	tbl.Scan(reader, func(RowID, []types.Value) bool { count++; return true })
	require.Equal(t, 0, count)
}

func TestCheckUniqueDetectsConflict(t *testing.T) {
	m := txn.NewManager()
	tbl := NewTable("accounts", testSchema())

	writer := m.Begin(txn.ReadCommitted)
	tbl.Insert(writer, []types.Value{types.Int64Value(1), types.StringValue("a")})
	require.NoError(t, m.Commit(writer))

	reader := m.Begin(txn.ReadCommitted)
	conflict := tbl.CheckUnique(reader, []int{0}, []types.Value{types.Int64Value(1), types.StringValue("z")}, nil)
	require.True(t, conflict)

	noConflict := tbl.CheckUnique(reader, []int{0}, []types.Value{types.Int64Value(2), types.StringValue("z")}, nil)
	require.False(t, noConflict)
}
