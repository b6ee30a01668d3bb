package yachtsql

import (
	"yachtsql/internal/exec"
	"yachtsql/internal/types"
)

// Result is what Execute returns: either a query's RecordBatch or a
// DML/DDL acknowledgement, never both (spec.md §6 "Result<RecordBatch |
// Ack>").
type Result struct {
	Batch *types.RecordBatch
	Ack   *Ack
}

// Ack acknowledges a statement that produced no rows of its own:
// INSERT/UPDATE/DELETE without RETURNING, CREATE TABLE/INDEX, and
// transaction-control statements.
type Ack struct {
	RowsAffected int
}

// IsQuery reports whether this Result carries a RecordBatch.
func (r *Result) IsQuery() bool { return r.Batch != nil }

func queryResult(batch *types.RecordBatch) *Result { return &Result{Batch: batch} }

func ackResult(rowsAffected int) *Result { return &Result{Ack: &Ack{RowsAffected: rowsAffected}} }

func rowsToBatch(rows []exec.Row, schema *types.Schema) *types.RecordBatch {
	batch := types.NewRecordBatch(schema)
	for _, r := range rows {
		batch.AppendRow(r)
	}
	return batch
}
