package exec

import (
	"io"
	"sort"
	"strings"

	"yachtsql/internal/ast"
	"yachtsql/internal/errs"
	"yachtsql/internal/functions"
	"yachtsql/internal/planir"
	"yachtsql/internal/types"
)

// Window computes one or more OVER(...) functions without collapsing
// input rows, appending one value per item per row (spec.md §4.5). Each
// item carries its own PARTITION BY/ORDER BY/frame, so partitioning and
// ordering are recomputed per item rather than shared across the node.
//
// The default frame when no explicit frame clause is given follows ROWS
// semantics (UNBOUNDED PRECEDING to CURRENT ROW when an ORDER BY is
// present, the whole partition otherwise) rather than RANGE's
// peer-inclusive rule, a simplification tracked in DESIGN.md.
type Window struct {
	input  Operator
	items  []planir.WindowItem
	schema *types.Schema
	ec     *EvalCtx
	funcs  *functions.Registry

	rows   []Row
	values [][]types.Value
	pos    int
}

func NewWindow(input Operator, items []planir.WindowItem, schema *types.Schema, ec *EvalCtx, funcs *functions.Registry) *Window {
	return &Window{input: input, items: items, schema: schema, ec: ec, funcs: funcs}
}

func (w *Window) Schema() *types.Schema { return w.schema }

func (w *Window) Close() error {
	w.rows = nil
	w.values = nil
	return w.input.Close()
}

func (w *Window) Open() error {
	if err := w.input.Open(); err != nil {
		return err
	}
	inSchema := w.input.Schema()
	w.rows = w.rows[:0]
	for {
		row, err := w.input.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		w.rows = append(w.rows, row)
	}

	colType := func(cr *ast.ColumnRef) (types.DataType, error) {
		idx := inSchema.IndexOf(cr.Name)
		if idx < 0 {
			return types.DataType{}, errs.New(errs.InternalError, "column %q not found", cr.Name)
		}
		return inSchema.Columns[idx].Type, nil
	}

	w.values = make([][]types.Value, len(w.items))
	for i := range w.values {
		w.values[i] = make([]types.Value, len(w.rows))
	}
	for i, item := range w.items {
		if err := w.computeItem(i, item, inSchema, colType); err != nil {
			return err
		}
	}
	w.pos = 0
	return nil
}

func (w *Window) Next() (Row, error) {
	if w.pos >= len(w.rows) {
		return nil, io.EOF
	}
	i := w.pos
	w.pos++
	out := append(Row{}, w.rows[i]...)
	for _, vals := range w.values {
		out = append(out, vals[i])
	}
	return out, nil
}

type windowPartition struct {
	key     []types.Value
	indices []int
}

func (w *Window) computeItem(itemIdx int, item planir.WindowItem, inSchema *types.Schema, colType func(*ast.ColumnRef) (types.DataType, error)) error {
	spec := item.Spec

	index := map[uint64][]int{}
	var partitions []*windowPartition
	for i := range w.rows {
		key := make([]types.Value, len(spec.Partitions))
		for k, p := range spec.Partitions {
			v, err := Eval(p, w.rows[i], inSchema, w.ec)
			if err != nil {
				return err
			}
			key[k] = v
		}
		h := types.HashRow(key)
		var part *windowPartition
		for _, pi := range index[h] {
			if sameKey(partitions[pi].key, key) {
				part = partitions[pi]
				break
			}
		}
		if part == nil {
			part = &windowPartition{key: key}
			index[h] = append(index[h], len(partitions))
			partitions = append(partitions, part)
		}
		part.indices = append(part.indices, i)
	}

	argTypes := make([]types.DataType, len(item.Args))
	for j, arg := range item.Args {
		t, err := w.funcs.ExprReturnType(arg, colType)
		if err != nil {
			return err
		}
		argTypes[j] = t
	}
	af, aggErr := w.funcs.LookupAggregate(item.FuncName, argTypes)
	isAgg := aggErr == nil

	for _, part := range partitions {
		ordered := append([]int{}, part.indices...)
		var orderedKeys [][]types.Value
		if len(spec.OrderBy) > 0 {
			orderedKeys = make([][]types.Value, len(ordered))
			for oi, ri := range ordered {
				k, err := evalOrderKey(spec.OrderBy, w.rows[ri], inSchema, w.ec)
				if err != nil {
					return err
				}
				orderedKeys[oi] = k
			}
			idx := make([]int, len(ordered))
			for i := range idx {
				idx[i] = i
			}
			sort.SliceStable(idx, func(a, b int) bool {
				return lessOrderKey(orderedKeys[idx[a]], orderedKeys[idx[b]], spec.OrderBy)
			})
			sortedOrdered := make([]int, len(ordered))
			sortedKeys := make([][]types.Value, len(ordered))
			for i, p := range idx {
				sortedOrdered[i] = ordered[p]
				sortedKeys[i] = orderedKeys[p]
			}
			ordered, orderedKeys = sortedOrdered, sortedKeys
		}

		computeFrame := func(pos, partLen int) (int, int, error) {
			f := spec.Frame
			if f == nil {
				if len(spec.OrderBy) > 0 {
					return 0, pos, nil
				}
				return 0, partLen - 1, nil
			}
			start, err := frameBoundPos(f.Start, pos, partLen, inSchema, w.ec)
			if err != nil {
				return 0, 0, err
			}
			end, err := frameBoundPos(f.End, pos, partLen, inSchema, w.ec)
			if err != nil {
				return 0, 0, err
			}
			return start, end, nil
		}

		switch {
		case isAgg:
			for oi, ri := range ordered {
				start, end, err := computeFrame(oi, len(ordered))
				if err != nil {
					return err
				}
				acc := af.NewAcc(argTypes)
				for p := start; p <= end && p < len(ordered); p++ {
					if p < 0 {
						continue
					}
					args := make([]types.Value, len(item.Args))
					for j, arg := range item.Args {
						v, err := Eval(arg, w.rows[ordered[p]], inSchema, w.ec)
						if err != nil {
							return err
						}
						args[j] = v
					}
					acc.Accumulate(args)
				}
				w.values[itemIdx][ri] = acc.Finalize()
			}
		case functions.IsWindowOnly(item.FuncName):
			if err := w.computeRankingOrOffset(itemIdx, item, ordered, orderedKeys, computeFrame, inSchema, argTypes); err != nil {
				return err
			}
		default:
			return errs.New(errs.ResolutionError, "unknown window function %s", item.FuncName)
		}
	}
	return nil
}

func (w *Window) computeRankingOrOffset(itemIdx int, item planir.WindowItem, ordered []int, orderedKeys [][]types.Value, computeFrame func(int, int) (int, int, error), inSchema *types.Schema, argTypes []types.DataType) error {
	name := strings.ToUpper(item.FuncName)
	switch name {
	case "ROW_NUMBER":
		for oi, ri := range ordered {
			w.values[itemIdx][ri] = types.Int64Value(int64(oi + 1))
		}
	case "RANK", "DENSE_RANK":
		rank, dense := 1, 0
		for oi, ri := range ordered {
			newGroup := oi == 0
			if !newGroup && len(orderedKeys) > 0 {
				newGroup = !equalOrderKey(orderedKeys[oi], orderedKeys[oi-1])
			}
			if newGroup {
				rank = oi + 1
				dense++
			}
			if name == "RANK" {
				w.values[itemIdx][ri] = types.Int64Value(int64(rank))
			} else {
				w.values[itemIdx][ri] = types.Int64Value(int64(dense))
			}
		}
	case "NTILE":
		n := 1
		if len(item.Args) > 0 && len(ordered) > 0 {
			v, err := Eval(item.Args[0], w.rows[ordered[0]], inSchema, w.ec)
			if err != nil {
				return err
			}
			if v.Int64() > 0 {
				n = int(v.Int64())
			}
		}
		total := len(ordered)
		base, rem := total/n, total%n
		pos := 0
		for bucket := 1; bucket <= n && pos < total; bucket++ {
			size := base
			if bucket <= rem {
				size++
			}
			for k := 0; k < size && pos < total; k++ {
				w.values[itemIdx][ordered[pos]] = types.Int64Value(int64(bucket))
				pos++
			}
		}
	case "LAG", "LEAD":
		offset := 1
		if len(item.Args) > 1 {
			n, err := evalConstInt(item.Args[1], inSchema, w.ec)
			if err != nil {
				return err
			}
			offset = n
		}
		var defaultVal types.Value
		hasDefault := len(item.Args) > 2
		dir := 1
		if name == "LAG" {
			dir = -1
		}
		for oi, ri := range ordered {
			target := oi + dir*offset
			if hasDefault {
				v, err := Eval(item.Args[2], w.rows[ri], inSchema, w.ec)
				if err != nil {
					return err
				}
				defaultVal = v
			}
			if target < 0 || target >= len(ordered) {
				if hasDefault {
					w.values[itemIdx][ri] = defaultVal
				} else if len(argTypes) > 0 {
					w.values[itemIdx][ri] = types.NullValue(argTypes[0])
				} else {
					w.values[itemIdx][ri] = types.NullValue(types.Simple(types.JSON))
				}
				continue
			}
			v, err := Eval(item.Args[0], w.rows[ordered[target]], inSchema, w.ec)
			if err != nil {
				return err
			}
			w.values[itemIdx][ri] = v
		}
	case "FIRST_VALUE", "LAST_VALUE":
		for oi, ri := range ordered {
			start, end, err := computeFrame(oi, len(ordered))
			if err != nil {
				return err
			}
			if start > end || start < 0 || end >= len(ordered) {
				w.values[itemIdx][ri] = types.NullValue(argTypes[0])
				continue
			}
			target := start
			if name == "LAST_VALUE" {
				target = end
			}
			v, err := Eval(item.Args[0], w.rows[ordered[target]], inSchema, w.ec)
			if err != nil {
				return err
			}
			w.values[itemIdx][ri] = v
		}
	default:
		return errs.New(errs.FeatureNotSupported, "window function %s is not supported", item.FuncName)
	}
	return nil
}

func frameBoundPos(b ast.FrameBound, pos, partLen int, schema *types.Schema, ec *EvalCtx) (int, error) {
	switch b.Kind {
	case ast.BoundUnboundedPreceding:
		return 0, nil
	case ast.BoundUnboundedFollowing:
		return partLen - 1, nil
	case ast.BoundCurrentRow:
		return pos, nil
	case ast.BoundPreceding:
		n, err := evalConstInt(b.Offset, schema, ec)
		if err != nil {
			return 0, err
		}
		if p := pos - n; p >= 0 {
			return p, nil
		}
		return 0, nil
	case ast.BoundFollowing:
		n, err := evalConstInt(b.Offset, schema, ec)
		if err != nil {
			return 0, err
		}
		if p := pos + n; p <= partLen-1 {
			return p, nil
		}
		return partLen - 1, nil
	default:
		return pos, nil
	}
}

func evalConstInt(e ast.Expr, schema *types.Schema, ec *EvalCtx) (int, error) {
	v, err := Eval(e, nil, schema, ec)
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

func equalOrderKey(a, b []types.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].IsNull != b[i].IsNull {
			return false
		}
		if !a[i].IsNull && types.Compare(a[i], b[i]) != 0 {
			return false
		}
	}
	return true
}
