package txn

import (
	"testing"

	"github.com/stretchr/testify/require"

	"yachtsql/internal/errs"
)

func TestRepeatableReadSnapshotStability(t *testing.T) {
	m := NewManager()

	reader := m.Begin(RepeatableRead)
	require.False(t, reader.Snapshot.CommittedBefore(99))

	writer := m.Begin(ReadCommitted)
	writer.RecordWrite(WriteKey{Table: "t", Row: 1})
	require.NoError(t, m.Commit(writer))

	require.False(t, reader.Snapshot.CommittedBefore(writer.Xid),
		"a RepeatableRead snapshot must not see commits that happened after it was taken")
}

func TestReadCommittedRefreshesSnapshot(t *testing.T) {
	m := NewManager()
	reader := m.Begin(ReadCommitted)

	writer := m.Begin(ReadCommitted)
	require.NoError(t, m.Commit(writer))

	m.RefreshSnapshot(reader)
	require.True(t, reader.Snapshot.CommittedBefore(writer.Xid))
}

func TestSerializableWriteConflictAborts(t *testing.T) {
	m := NewManager()

	tx1 := m.Begin(Serializable)
	tx2 := m.Begin(Serializable)

	key := WriteKey{Table: "accounts", Row: 42}
	tx1.RecordWrite(key)
	tx2.RecordWrite(key)

	require.NoError(t, m.Commit(tx1))

	err := m.Commit(tx2)
	require.Error(t, err)
	require.Equal(t, errs.SerializationFailure, errs.KindOf(err))
}

func TestSavepointRewindsWriteSet(t *testing.T) {
	m := NewManager()
	tx := m.Begin(ReadCommitted)

	tx.RecordWrite(WriteKey{Table: "t", Row: 1})
	tx.Savepoint("sp1")
	tx.RecordWrite(WriteKey{Table: "t", Row: 2})

	require.NoError(t, tx.RollbackTo("sp1"))
	require.Len(t, tx.writeSet, 1)
}

func TestHorizonTracksOldestActiveSnapshot(t *testing.T) {
	m := NewManager()
	tx1 := m.Begin(RepeatableRead)
	_ = m.Begin(RepeatableRead)

	require.Equal(t, tx1.Xid, m.Horizon())

	m.Rollback(tx1)
	require.NotEqual(t, tx1.Xid, m.Horizon())
}
