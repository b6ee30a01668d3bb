package exec

import (
	"io"
	"sort"

	"yachtsql/internal/ast"
	"yachtsql/internal/types"
)

// Sort materializes Input and emits it in Items order. There is no
// external-sort fallback: spec.md's in-memory engine has no spill path.
type Sort struct {
	input  Operator
	items  []ast.OrderItem
	ec     *EvalCtx
	rows   []Row
	pos    int
}

func NewSort(input Operator, items []ast.OrderItem, ec *EvalCtx) *Sort {
	return &Sort{input: input, items: items, ec: ec}
}

func (s *Sort) Schema() *types.Schema { return s.input.Schema() }
func (s *Sort) Close() error          { s.rows = nil; return s.input.Close() }

func (s *Sort) Open() error {
	if err := s.input.Open(); err != nil {
		return err
	}
	rows, err := drainSorted(s.input, s.items, s.ec)
	if err != nil {
		return err
	}
	s.rows = rows
	s.pos = 0
	return nil
}

func (s *Sort) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	r := s.rows[s.pos]
	s.pos++
	return r, nil
}

// drainSorted reads every row of in, then stable-sorts it by items.
func drainSorted(in Operator, items []ast.OrderItem, ec *EvalCtx) ([]Row, error) {
	schema := in.Schema()
	var rows []Row
	var keys [][]types.Value
	for {
		row, err := in.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		key, err := evalOrderKey(items, row, schema, ec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		keys = append(keys, key)
	}
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return lessOrderKey(keys[idx[a]], keys[idx[b]], items)
	})
	out := make([]Row, len(rows))
	for i, p := range idx {
		out[i] = rows[p]
	}
	return out, nil
}

// TopN combines ORDER BY with LIMIT/OFFSET, the physical planner's
// folding of LimitOffset-over-Sort (internal/physical/physical.go). It still
// materializes and sorts everything: a heap-based bound top-K is a
// pure performance optimization this engine doesn't need to make.
type TopN struct {
	input  Operator
	items  []ast.OrderItem
	n      ast.Expr
	offset ast.Expr
	schema *types.Schema
	ec     *EvalCtx

	rows []Row
	pos  int
}

func NewTopN(input Operator, items []ast.OrderItem, n, offset ast.Expr, schema *types.Schema, ec *EvalCtx) *TopN {
	return &TopN{input: input, items: items, n: n, offset: offset, schema: schema, ec: ec}
}

func (t *TopN) Schema() *types.Schema { return t.schema }
func (t *TopN) Close() error          { t.rows = nil; return t.input.Close() }

func (t *TopN) Open() error {
	if err := t.input.Open(); err != nil {
		return err
	}
	rows, err := drainSorted(t.input, t.items, t.ec)
	if err != nil {
		return err
	}
	off, lim, err := evalLimitOffset(t.n, t.offset, t.ec)
	if err != nil {
		return err
	}
	rows = applyLimitOffset(rows, lim, off)
	t.rows = rows
	t.pos = 0
	return nil
}

func (t *TopN) Next() (Row, error) {
	if t.pos >= len(t.rows) {
		return nil, io.EOF
	}
	r := t.rows[t.pos]
	t.pos++
	return r, nil
}
