package exec

import (
	"io"

	"yachtsql/internal/ast"
	"yachtsql/internal/storage"
	"yachtsql/internal/txn"
	"yachtsql/internal/types"
)

// RowSource is implemented by an Operator whose rows map 1:1 onto a
// physical storage row: Scan, and Filter when it wraps one. DML's
// UPDATE/DELETE executors need this to recover the RowID of the row
// they are about to mutate, since the resolver always shapes an
// UPDATE/DELETE source as a Scan of the target table, optionally
// narrowed by a Filter (internal/resolver/resolve_dml.go).
type RowSource interface {
	Operator
	RowID() storage.RowID
}

// Scan reads every row version of a table visible to tx, in storage
// order (spec.md §4.6).
type Scan struct {
	table  *storage.Table
	tx     *txn.Transaction
	schema *types.Schema

	rows []scannedRow
	pos  int
	cur  storage.RowID
}

type scannedRow struct {
	id  storage.RowID
	row []types.Value
}

func NewScan(table *storage.Table, tx *txn.Transaction, schema *types.Schema) *Scan {
	return &Scan{table: table, tx: tx, schema: schema}
}

func (s *Scan) Open() error {
	s.rows = s.rows[:0]
	s.pos = 0
	s.table.Scan(s.tx, func(id storage.RowID, row []types.Value) bool {
		s.rows = append(s.rows, scannedRow{id: id, row: row})
		return true
	})
	return nil
}

func (s *Scan) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	r := s.rows[s.pos]
	s.pos++
	s.cur = r.id
	return Row(r.row), nil
}

func (s *Scan) Close() error             { s.rows = nil; return nil }
func (s *Scan) Schema() *types.Schema    { return s.schema }
func (s *Scan) RowID() storage.RowID     { return s.cur }

// Values replays a literal VALUES row set, evaluating each row's
// expressions fresh on every Open so a prepared VALUES list can be
// re-bound to new parameters.
type Values struct {
	rows   [][]ast.Expr
	schema *types.Schema
	ec     *EvalCtx
	pos    int
}

func NewValues(rows [][]ast.Expr, schema *types.Schema, ec *EvalCtx) *Values {
	return &Values{rows: rows, schema: schema, ec: ec}
}

func (v *Values) Open() error { v.pos = 0; return nil }

func (v *Values) Next() (Row, error) {
	if v.pos >= len(v.rows) {
		return nil, io.EOF
	}
	exprs := v.rows[v.pos]
	v.pos++
	out := make(Row, len(exprs))
	for i, e := range exprs {
		val, err := Eval(e, nil, v.schema, v.ec)
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

func (v *Values) Close() error          { return nil }
func (v *Values) Schema() *types.Schema { return v.schema }
