package functions

import (
	"fmt"
	"math"
	"strings"

	"yachtsql/internal/types"
)

func scalar1(name string, ret types.Tag, fn func(types.Value) (types.Value, error)) *ScalarFunc {
	return &ScalarFunc{
		Name: name, MinArgs: 1, MaxArgs: 1,
		ReturnType: func(args []types.DataType) (types.DataType, error) { return types.Simple(ret), nil },
		Call: func(args []types.Value) (types.Value, error) {
			if args[0].IsNull {
				return types.NullValue(types.Simple(ret)), nil
			}
			return fn(args[0])
		},
	}
}

func registerBuiltinScalars(r *Registry) {
	r.RegisterScalar(scalar1("ABS", types.Float64, func(v types.Value) (types.Value, error) {
		return types.Float64Value(math.Abs(numAsFloat(v))), nil
	}))
	r.RegisterScalar(scalar1("LOWER", types.String, func(v types.Value) (types.Value, error) {
		return types.StringValue(strings.ToLower(v.Str())), nil
	}))
	r.RegisterScalar(scalar1("UPPER", types.String, func(v types.Value) (types.Value, error) {
		return types.StringValue(strings.ToUpper(v.Str())), nil
	}))
	r.RegisterScalar(scalar1("LENGTH", types.Int64, func(v types.Value) (types.Value, error) {
		return types.Int64Value(int64(len(v.Str()))), nil
	}))
	r.RegisterScalar(&ScalarFunc{
		Name: "CONCAT", MinArgs: 0, MaxArgs: -1,
		ReturnType: func(args []types.DataType) (types.DataType, error) { return types.Simple(types.String), nil },
		Call: func(args []types.Value) (types.Value, error) {
			var sb strings.Builder
			for _, a := range args {
				if !a.IsNull {
					sb.WriteString(a.String())
				}
			}
			return types.StringValue(sb.String()), nil
		},
	})
	r.RegisterScalar(&ScalarFunc{
		Name: "COALESCE", MinArgs: 1, MaxArgs: -1,
		ReturnType: func(args []types.DataType) (types.DataType, error) { return args[0], nil },
		Call: func(args []types.Value) (types.Value, error) {
			for _, a := range args {
				if !a.IsNull {
					return a, nil
				}
			}
			return args[len(args)-1], nil
		},
	})
	r.RegisterScalar(&ScalarFunc{
		Name: "ROUND", MinArgs: 1, MaxArgs: 2,
		ReturnType: func(args []types.DataType) (types.DataType, error) { return types.Simple(types.Float64), nil },
		Call: func(args []types.Value) (types.Value, error) {
			if args[0].IsNull {
				return types.NullValue(types.Simple(types.Float64)), nil
			}
			n := 0
			if len(args) == 2 && !args[1].IsNull {
				n = int(args[1].Int64())
			}
			mult := math.Pow(10, float64(n))
			return types.Float64Value(math.Round(numAsFloat(args[0])*mult) / mult), nil
		},
	})
	r.RegisterScalar(&ScalarFunc{
		Name: "GREATEST", MinArgs: 1, MaxArgs: -1,
		ReturnType: func(args []types.DataType) (types.DataType, error) { return args[0], nil },
		Call: func(args []types.Value) (types.Value, error) { return pickExtreme(args, 1) }},
	)
	r.RegisterScalar(&ScalarFunc{
		Name: "LEAST", MinArgs: 1, MaxArgs: -1,
		ReturnType: func(args []types.DataType) (types.DataType, error) { return args[0], nil },
		Call: func(args []types.Value) (types.Value, error) { return pickExtreme(args, -1) }},
	)
}

func pickExtreme(args []types.Value, want int) (types.Value, error) {
	var best types.Value
	found := false
	for _, a := range args {
		if a.IsNull {
			continue
		}
		if !found {
			best, found = a, true
			continue
		}
		if types.Compare(a, best)*want > 0 {
			best = a
		}
	}
	if !found {
		return args[0], nil
	}
	return best, nil
}

func numAsFloat(v types.Value) float64 {
	switch v.Type.Tag {
	case types.Int64:
		return float64(v.Int64())
	case types.Float64:
		return v.Float64()
	case types.DecimalTag:
		d := v.Decimal()
		f, _ := d.Val.Float64()
		return f
	default:
		return 0
	}
}

// registerBuiltinAggregates wires the core set-function family (spec.md
// §4.3): COUNT/SUM/AVG/MIN/MAX, plus ARRAY_AGG. Each produces a fresh Accumulator per
// group via NewAcc, matching the Accumulator{accumulate, merge,
// finalize, reset} contract the executor drives.
func registerBuiltinAggregates(r *Registry) {
	r.RegisterAggregate(&AggregateFunc{
		Name: "COUNT", MinArgs: 0, MaxArgs: 1,
		ReturnType: func(args []types.DataType) (types.DataType, error) { return types.Simple(types.Int64), nil },
		NewAcc:     func(argTypes []types.DataType) Accumulator { return &countAcc{} },
	})
	r.RegisterAggregate(&AggregateFunc{
		Name: "SUM", MinArgs: 1, MaxArgs: 1,
		ReturnType: func(args []types.DataType) (types.DataType, error) {
			if !args[0].IsNumeric() {
				return types.DataType{}, fmt.Errorf("SUM requires a numeric argument")
			}
			return args[0], nil
		},
		NewAcc: func(argTypes []types.DataType) Accumulator { return &sumAcc{typ: argTypes[0]} },
	})
	r.RegisterAggregate(&AggregateFunc{
		Name: "AVG", MinArgs: 1, MaxArgs: 1,
		ReturnType: func(args []types.DataType) (types.DataType, error) { return types.Simple(types.Float64), nil },
		NewAcc:     func(argTypes []types.DataType) Accumulator { return &avgAcc{} },
	})
	r.RegisterAggregate(&AggregateFunc{
		Name: "MIN", MinArgs: 1, MaxArgs: 1,
		ReturnType: func(args []types.DataType) (types.DataType, error) { return args[0], nil },
		NewAcc:     func(argTypes []types.DataType) Accumulator { return &extremeAcc{want: -1} },
	})
	r.RegisterAggregate(&AggregateFunc{
		Name: "MAX", MinArgs: 1, MaxArgs: 1,
		ReturnType: func(args []types.DataType) (types.DataType, error) { return args[0], nil },
		NewAcc:     func(argTypes []types.DataType) Accumulator { return &extremeAcc{want: 1} },
	})
	r.RegisterAggregate(&AggregateFunc{
		Name: "ARRAY_AGG", MinArgs: 1, MaxArgs: 1,
		ReturnType: func(args []types.DataType) (types.DataType, error) { return types.ArrayOf(args[0]), nil },
		NewAcc:     func(argTypes []types.DataType) Accumulator { return &arrayAcc{elem: argTypes[0]} },
	})
}

type countAcc struct{ n int64 }

func (a *countAcc) Accumulate(args []types.Value) {
	if len(args) == 0 || !args[0].IsNull {
		a.n++
	}
}
func (a *countAcc) Merge(o Accumulator)   { a.n += o.(*countAcc).n }
func (a *countAcc) Finalize() types.Value { return types.Int64Value(a.n) }
func (a *countAcc) Reset()                { a.n = 0 }

type sumAcc struct {
	typ    types.DataType
	fsum   float64
	isum   int64
	dsum   types.Decimal
	isInt  bool
	isDec  bool
	any    bool
}

func (a *sumAcc) Accumulate(args []types.Value) {
	v := args[0]
	if v.IsNull {
		return
	}
	a.any = true
	if v.Type.Tag == types.Int64 {
		a.isInt = true
		a.isum += v.Int64()
	} else if v.Type.Tag == types.DecimalTag {
		a.isDec = true
		if s, err := a.dsum.Add(v.Decimal()); err == nil {
			a.dsum = s
		}
	} else {
		a.fsum += numAsFloat(v)
	}
}
func (a *sumAcc) Merge(o Accumulator) {
	other := o.(*sumAcc)
	a.isum += other.isum
	a.fsum += other.fsum
	if s, err := a.dsum.Add(other.dsum); err == nil {
		a.dsum = s
	}
	a.any = a.any || other.any
	a.isInt = a.isInt || other.isInt
	a.isDec = a.isDec || other.isDec
}
func (a *sumAcc) Finalize() types.Value {
	if !a.any {
		return types.NullValue(a.typ)
	}
	if a.isDec {
		return types.DecimalValue(a.dsum)
	}
	if a.isInt {
		return types.Int64Value(a.isum)
	}
	return types.Float64Value(a.fsum)
}
func (a *sumAcc) Reset() { *a = sumAcc{typ: a.typ} }

type avgAcc struct {
	sum float64
	n   int64
}

func (a *avgAcc) Accumulate(args []types.Value) {
	if args[0].IsNull {
		return
	}
	a.sum += numAsFloat(args[0])
	a.n++
}
func (a *avgAcc) Merge(o Accumulator) {
	other := o.(*avgAcc)
	a.sum += other.sum
	a.n += other.n
}
func (a *avgAcc) Finalize() types.Value {
	if a.n == 0 {
		return types.NullValue(types.Simple(types.Float64))
	}
	return types.Float64Value(a.sum / float64(a.n))
}
func (a *avgAcc) Reset() { *a = avgAcc{} }

type extremeAcc struct {
	want  int
	best  types.Value
	found bool
}

func (a *extremeAcc) Accumulate(args []types.Value) {
	v := args[0]
	if v.IsNull {
		return
	}
	if !a.found {
		a.best, a.found = v, true
		return
	}
	if types.Compare(v, a.best)*a.want > 0 {
		a.best = v
	}
}
func (a *extremeAcc) Merge(o Accumulator) {
	other := o.(*extremeAcc)
	if !other.found {
		return
	}
	a.Accumulate([]types.Value{other.best})
}
func (a *extremeAcc) Finalize() types.Value {
	if !a.found {
		return types.NullValue(types.Simple(types.Null))
	}
	return a.best
}
func (a *extremeAcc) Reset() { a.found = false }

type arrayAcc struct {
	elem types.DataType
	vals []types.Value
}

func (a *arrayAcc) Accumulate(args []types.Value) { a.vals = append(a.vals, args[0]) }
func (a *arrayAcc) Merge(o Accumulator)            { a.vals = append(a.vals, o.(*arrayAcc).vals...) }
func (a *arrayAcc) Finalize() types.Value          { return types.ArrayValue(a.elem, a.vals) }
func (a *arrayAcc) Reset()                         { a.vals = nil }
