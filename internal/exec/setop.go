package exec

import (
	"io"

	"yachtsql/internal/ast"
	"yachtsql/internal/types"
)

// rowMultiset counts distinct rows by hash bucket, resolving collisions
// with a linear scan within the bucket and a types.Equal comparison per
// column. It backs SetOp's dedup and its INTERSECT ALL/EXCEPT ALL
// counting, and Distinct.
type rowMultiset struct {
	buckets map[uint64][]rowCount
}

type rowCount struct {
	row   Row
	count int
}

func newRowMultiset() *rowMultiset {
	return &rowMultiset{buckets: map[uint64][]rowCount{}}
}

func (m *rowMultiset) add(row Row) {
	h := types.HashRow(row)
	b := m.buckets[h]
	for i := range b {
		if rowsEqual(b[i].row, row) {
			b[i].count++
			return
		}
	}
	m.buckets[h] = append(b, rowCount{row: row, count: 1})
}

func (m *rowMultiset) get(row Row) int {
	b := m.buckets[types.HashRow(row)]
	for i := range b {
		if rowsEqual(b[i].row, row) {
			return b[i].count
		}
	}
	return 0
}

func (m *rowMultiset) decrement(row Row) bool {
	h := types.HashRow(row)
	b := m.buckets[h]
	for i := range b {
		if rowsEqual(b[i].row, row) {
			if b[i].count <= 0 {
				return false
			}
			b[i].count--
			return true
		}
	}
	return false
}

func rowsEqual(a, b Row) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].IsNull != b[i].IsNull {
			return false
		}
		if !a[i].IsNull && !types.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// SetOp implements UNION/INTERSECT/EXCEPT [ALL] (spec.md §4.5). Every
// variant, ALL included, drains both sides on Open and then replays the
// combined rows from memory.
type SetOp struct {
	kind   ast.SetOpKind
	all    bool
	left   Operator
	right  Operator
	schema *types.Schema

	rows []Row
	pos  int
}

func NewSetOp(kind ast.SetOpKind, all bool, left, right Operator, schema *types.Schema) *SetOp {
	return &SetOp{kind: kind, all: all, left: left, right: right, schema: schema}
}

func (s *SetOp) Schema() *types.Schema { return s.schema }

func (s *SetOp) Close() error {
	s.rows = nil
	if err := s.left.Close(); err != nil {
		return err
	}
	return s.right.Close()
}

func (s *SetOp) Open() error {
	if err := s.left.Open(); err != nil {
		return err
	}
	if err := s.right.Open(); err != nil {
		return err
	}

	var leftRows, rightRows []Row
	for {
		row, err := s.left.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		leftRows = append(leftRows, row)
	}
	for {
		row, err := s.right.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		rightRows = append(rightRows, row)
	}

	switch {
	case s.kind == ast.SetOpUnion && s.all:
		s.rows = append(append([]Row{}, leftRows...), rightRows...)
	case s.kind == ast.SetOpUnion:
		out := newRowMultiset()
		var rows []Row
		for _, r := range append(append([]Row{}, leftRows...), rightRows...) {
			if out.get(r) == 0 {
				rows = append(rows, r)
			}
			out.add(r)
		}
		s.rows = rows
	case s.kind == ast.SetOpIntersect && s.all:
		right := newRowMultiset()
		for _, r := range rightRows {
			right.add(r)
		}
		var rows []Row
		for _, r := range leftRows {
			if right.decrement(r) {
				rows = append(rows, r)
			}
		}
		s.rows = rows
	case s.kind == ast.SetOpIntersect:
		right := newRowMultiset()
		for _, r := range rightRows {
			right.add(r)
		}
		seen := newRowMultiset()
		var rows []Row
		for _, r := range leftRows {
			if right.get(r) > 0 && seen.get(r) == 0 {
				rows = append(rows, r)
			}
			seen.add(r)
		}
		s.rows = rows
	case s.kind == ast.SetOpExcept && s.all:
		right := newRowMultiset()
		for _, r := range rightRows {
			right.add(r)
		}
		var rows []Row
		for _, r := range leftRows {
			if !right.decrement(r) {
				rows = append(rows, r)
			}
		}
		s.rows = rows
	default: // SetOpExcept, dedup
		right := newRowMultiset()
		for _, r := range rightRows {
			right.add(r)
		}
		seen := newRowMultiset()
		var rows []Row
		for _, r := range leftRows {
			if right.get(r) == 0 && seen.get(r) == 0 {
				rows = append(rows, r)
			}
			seen.add(r)
		}
		s.rows = rows
	}

	s.pos = 0
	return nil
}

func (s *SetOp) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	r := s.rows[s.pos]
	s.pos++
	return r, nil
}

// Distinct removes duplicate rows, keeping the first occurrence's order.
type Distinct struct {
	input Operator
	seen  *rowMultiset
}

func NewDistinct(input Operator) *Distinct {
	return &Distinct{input: input}
}

func (d *Distinct) Schema() *types.Schema { return d.input.Schema() }
func (d *Distinct) Close() error          { return d.input.Close() }

func (d *Distinct) Open() error {
	d.seen = newRowMultiset()
	return d.input.Open()
}

func (d *Distinct) Next() (Row, error) {
	for {
		row, err := d.input.Next()
		if err != nil {
			return nil, err
		}
		if d.seen.get(row) > 0 {
			continue
		}
		d.seen.add(row)
		return row, nil
	}
}
