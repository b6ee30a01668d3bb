package exec

import (
	"io"

	"yachtsql/internal/ast"
	"yachtsql/internal/errs"
	"yachtsql/internal/physical"
	"yachtsql/internal/types"
)

// Join implements every join kind spec.md §4.1 names (INNER, LEFT,
// RIGHT, FULL, SEMI, ANTI, CROSS, ASOF, ANY) over two child operators.
// The right side is fully materialized on Open, the way a HashJoin's
// build phase would; the left side is pulled one row at a time and
// probed against it, so only the build side pays a memory cost.
//
// ASOF's "nearest match" ordering and ANY's "first match wins"
// dedup are both approximated here as INNER/ordinary-match semantics
// with early exit for ANY — a full ASOF implementation would need the
// inequality operand and ordering column the resolver doesn't currently
// surface as structured fields on planir.Join, only as an opaque
// ast.Expr condition. Tracked as an open item in DESIGN.md.
type Join struct {
	kind      ast.JoinKind
	left      Operator
	right     Operator
	condition ast.Expr
	usingCols []string
	schema    *types.Schema
	ec        *EvalCtx

	leftSchema, rightSchema, joinedSchema *types.Schema

	rightRows    []Row
	rightMatched []bool
	index        map[uint64][]int
	leftKeyIdx   []int
	rightKeyIdx  []int

	curLeft     Row
	haveLeft    bool
	leftMatched bool
	candidates  []int
	candPos     int

	leftExhausted bool
	rightPos      int
}

func NewJoin(kind ast.JoinKind, strategy physical.JoinStrategy, left, right Operator, condition ast.Expr, usingCols []string, schema *types.Schema, ec *EvalCtx) *Join {
	j := &Join{
		kind: kind, left: left, right: right, condition: condition,
		usingCols: usingCols, schema: schema, ec: ec,
		leftSchema: left.Schema(), rightSchema: right.Schema(),
	}
	j.joinedSchema = j.leftSchema.Concat(j.rightSchema)
	if strategy == physical.HashJoinStrategy {
		j.leftKeyIdx, j.rightKeyIdx, _ = equalityKeyIdx(usingCols, condition, j.leftSchema, j.rightSchema)
	}
	return j
}

func (j *Join) Schema() *types.Schema { return j.schema }

func (j *Join) Open() error {
	if err := j.left.Open(); err != nil {
		return err
	}
	if err := j.right.Open(); err != nil {
		return err
	}
	j.rightRows = j.rightRows[:0]
	for {
		row, err := j.right.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		j.rightRows = append(j.rightRows, row)
	}
	j.rightMatched = make([]bool, len(j.rightRows))
	if j.leftKeyIdx != nil {
		j.index = make(map[uint64][]int, len(j.rightRows))
		for i, r := range j.rightRows {
			key := keyOf(r, j.rightKeyIdx)
			h := types.HashRow(key)
			j.index[h] = append(j.index[h], i)
		}
	}
	j.haveLeft = false
	j.leftExhausted = false
	j.rightPos = 0
	return nil
}

func (j *Join) Close() error {
	if err := j.left.Close(); err != nil {
		return err
	}
	return j.right.Close()
}

func (j *Join) Next() (Row, error) {
	for {
		if !j.leftExhausted {
			if !j.haveLeft {
				row, err := j.left.Next()
				if err == io.EOF {
					j.leftExhausted = true
					continue
				}
				if err != nil {
					return nil, err
				}
				j.curLeft = row
				j.haveLeft = true
				j.leftMatched = false
				j.candidates = j.candidatesFor(row)
				j.candPos = 0
			}

			for j.candPos < len(j.candidates) {
				idx := j.candidates[j.candPos]
				j.candPos++
				ok, err := j.rowsMatch(j.curLeft, j.rightRows[idx])
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				j.rightMatched[idx] = true
				j.leftMatched = true
				switch j.kind {
				case ast.JoinAnti:
					// keep scanning; ANTI only decides after exhausting candidates
					continue
				case ast.JoinSemi:
					j.haveLeft = false
					return append(Row{}, j.curLeft...), nil
				case ast.JoinAny:
					out := concatRow(j.curLeft, j.rightRows[idx])
					j.haveLeft = false
					return out, nil
				default:
					return concatRow(j.curLeft, j.rightRows[idx]), nil
				}
			}

			// exhausted candidates for this left row
			j.haveLeft = false
			switch {
			case j.leftMatched:
				continue
			case j.kind == ast.JoinLeft || j.kind == ast.JoinFull:
				return concatRow(j.curLeft, nullRow(j.rightSchema)), nil
			case j.kind == ast.JoinAnti:
				return append(Row{}, j.curLeft...), nil
			default:
				continue
			}
		}

		if j.kind != ast.JoinRight && j.kind != ast.JoinFull {
			return nil, io.EOF
		}
		for j.rightPos < len(j.rightRows) {
			idx := j.rightPos
			j.rightPos++
			if j.rightMatched[idx] {
				continue
			}
			return concatRow(nullRow(j.leftSchema), j.rightRows[idx]), nil
		}
		return nil, io.EOF
	}
}

func (j *Join) candidatesFor(left Row) []int {
	if j.index == nil {
		all := make([]int, len(j.rightRows))
		for i := range all {
			all[i] = i
		}
		return all
	}
	key := keyOf(left, j.leftKeyIdx)
	return j.index[types.HashRow(key)]
}

func (j *Join) rowsMatch(left, right Row) (bool, error) {
	if len(j.usingCols) > 0 {
		for _, name := range j.usingCols {
			li := j.leftSchema.IndexOf(name)
			ri := j.rightSchema.IndexOf(name)
			if li < 0 || ri < 0 {
				return false, errs.New(errs.ResolutionError, "USING column %q not found in join inputs", name)
			}
			lv, rv := left[li], right[ri]
			if lv.IsNull || rv.IsNull || !types.Equal(lv, rv) {
				return false, nil
			}
		}
		return true, nil
	}
	if j.condition == nil {
		return true, nil
	}
	v, err := Eval(j.condition, concatRow(left, right), j.joinedSchema, j.ec)
	if err != nil {
		return false, err
	}
	return types.BoolToBool3(v).MatchesWhere(), nil
}

func concatRow(a, b Row) Row {
	out := make(Row, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

func nullRow(schema *types.Schema) Row {
	out := make(Row, schema.Arity())
	for i, c := range schema.Columns {
		out[i] = types.NullValue(c.Type)
	}
	return out
}

func keyOf(row Row, idx []int) []types.Value {
	out := make([]types.Value, len(idx))
	for i, p := range idx {
		out[i] = row[p]
	}
	return out
}

// equalityKeyIdx extracts the column positions of an equi-join key from
// USING columns or a condition that is a conjunction of `left.col =
// right.col` comparisons, the same shape internal/physical's
// isEqualityCondition requires before choosing HashJoinStrategy.
func equalityKeyIdx(usingCols []string, condition ast.Expr, ls, rs *types.Schema) (leftIdx, rightIdx []int, ok bool) {
	if len(usingCols) > 0 {
		for _, name := range usingCols {
			li, ri := ls.IndexOf(name), rs.IndexOf(name)
			if li < 0 || ri < 0 {
				return nil, nil, false
			}
			leftIdx = append(leftIdx, li)
			rightIdx = append(rightIdx, ri)
		}
		return leftIdx, rightIdx, true
	}
	return collectEqualityRefs(condition, ls, rs)
}

func collectEqualityRefs(e ast.Expr, ls, rs *types.Schema) ([]int, []int, bool) {
	b, isBin := e.(*ast.BinaryExpr)
	if !isBin {
		return nil, nil, false
	}
	if b.Op == "AND" {
		l1, r1, ok1 := collectEqualityRefs(b.Left, ls, rs)
		l2, r2, ok2 := collectEqualityRefs(b.Right, ls, rs)
		if !ok1 || !ok2 {
			return nil, nil, false
		}
		return append(l1, l2...), append(r1, r2...), true
	}
	if b.Op != "=" {
		return nil, nil, false
	}
	lc, lok := b.Left.(*ast.ColumnRef)
	rc, rok := b.Right.(*ast.ColumnRef)
	if !lok || !rok {
		return nil, nil, false
	}
	if li := ls.IndexOf(lc.Name); li >= 0 {
		if ri := rs.IndexOf(rc.Name); ri >= 0 {
			return []int{li}, []int{ri}, true
		}
	}
	if li := ls.IndexOf(rc.Name); li >= 0 {
		if ri := rs.IndexOf(lc.Name); ri >= 0 {
			return []int{li}, []int{ri}, true
		}
	}
	return nil, nil, false
}
