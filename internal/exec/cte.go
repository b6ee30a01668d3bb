package exec

import (
	"io"

	"yachtsql/internal/types"
)

// rowReplay serves a pre-materialized row set repeatedly, the shape
// every CTE reference compiles to once its defining query has run
// (internal/exec/compile.go). Rows are shared, not copied, since
// nothing downstream mutates a Row in place.
type rowReplay struct {
	rows   []Row
	schema *types.Schema
	pos    int
}

func newRowReplay(rows []Row, schema *types.Schema) *rowReplay {
	return &rowReplay{rows: rows, schema: schema}
}

func (r *rowReplay) Schema() *types.Schema { return r.schema }
func (r *rowReplay) Close() error          { return nil }
func (r *rowReplay) Open() error           { r.pos = 0; return nil }

func (r *rowReplay) Next() (Row, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}

// drainAll runs op to completion and collects every row it produces.
func drainAll(op Operator) ([]Row, *types.Schema, error) {
	if err := op.Open(); err != nil {
		return nil, nil, err
	}
	defer op.Close()
	var rows []Row
	for {
		row, err := op.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
	}
	return rows, op.Schema(), nil
}
