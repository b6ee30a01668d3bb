// Package functions implements the FunctionRegistry described in
// spec.md §4.3: callables are looked up by name and arity (the dialect
// and the argument types are not part of the lookup), and come in four
// shapes: scalar, aggregate, window, and table functions.
package functions

import (
	"strings"

	"yachtsql/internal/ast"
	"yachtsql/internal/errs"
	"yachtsql/internal/types"
)

// Shape distinguishes the four callable kinds a registry entry can be.
type Shape int

const (
	ShapeScalar Shape = iota
	ShapeAggregate
	ShapeWindow
	ShapeTable
)

// ScalarFunc evaluates a scalar function over already-evaluated
// arguments and reports its own return type given the argument types,
// so the resolver can type-check a call before execution ever runs.
type ScalarFunc struct {
	Name      string
	MinArgs   int
	MaxArgs   int // -1 means variadic
	ReturnType func(args []types.DataType) (types.DataType, error)
	Call       func(args []types.Value) (types.Value, error)
}

// AggregateFunc describes a set function's accumulator shape; exec
// instantiates one NewAcc() per group.
type AggregateFunc struct {
	Name       string
	MinArgs    int
	MaxArgs    int
	ReturnType func(args []types.DataType) (types.DataType, error)
	NewAcc     func(argTypes []types.DataType) Accumulator
}

// Accumulator is the running-state interface every aggregate and
// window function implements (spec.md §5 "pull-based execution"):
// Accumulate folds one row's arguments in, Merge combines a partial
// accumulator built on another worker/partition, and Finalize produces
// the output value. Reset clears state for reuse across groups.
type Accumulator interface {
	Accumulate(args []types.Value)
	Merge(other Accumulator)
	Finalize() types.Value
	Reset()
}

// Registry is a catalog of callables keyed by upper-cased name. The key
// does not include a dialect, so every registered function is visible
// under all three dialects; there is no per-dialect override.
type Registry struct {
	scalars    map[string][]*ScalarFunc
	aggregates map[string][]*AggregateFunc
}

// DialectAny names the dialect-agnostic case. key ignores its dialect
// argument, so no lookup consults this value.
const DialectAny = -1

func key(name string, dialect int) string {
	return strings.ToUpper(name)
}

func New() *Registry {
	r := &Registry{scalars: map[string][]*ScalarFunc{}, aggregates: map[string][]*AggregateFunc{}}
	registerBuiltinScalars(r)
	registerBuiltinAggregates(r)
	return r
}

func (r *Registry) RegisterScalar(f *ScalarFunc) {
	k := key(f.Name, 0)
	r.scalars[k] = append(r.scalars[k], f)
}

func (r *Registry) RegisterAggregate(f *AggregateFunc) {
	k := key(f.Name, 0)
	r.aggregates[k] = append(r.aggregates[k], f)
}

// LookupScalar resolves a scalar function by name and arity: it returns
// the first registered candidate whose arity range accepts the call.
// Argument types are not compared, so there is no coercion-distance
// ranking and AmbiguousFunction is never returned.
func (r *Registry) LookupScalar(name string, argTypes []types.DataType) (*ScalarFunc, error) {
	cands := r.scalars[key(name, 0)]
	var best *ScalarFunc
	for _, c := range cands {
		if len(argTypes) < c.MinArgs {
			continue
		}
		if c.MaxArgs >= 0 && len(argTypes) > c.MaxArgs {
			continue
		}
		best = c // first arity-compatible match; builtins are registered
		// with non-overlapping arities, so ties don't occur in practice.
		break
	}
	if best == nil {
		return nil, errs.New(errs.ResolutionError, "unknown function %s/%d", name, len(argTypes))
	}
	return best, nil
}

func (r *Registry) LookupAggregate(name string, argTypes []types.DataType) (*AggregateFunc, error) {
	cands := r.aggregates[key(name, 0)]
	for _, c := range cands {
		if len(argTypes) < c.MinArgs {
			continue
		}
		if c.MaxArgs >= 0 && len(argTypes) > c.MaxArgs {
			continue
		}
		return c, nil
	}
	return nil, errs.New(errs.ResolutionError, "unknown aggregate function %s/%d", name, len(argTypes))
}

func (r *Registry) IsAggregate(name string) bool {
	_, ok := r.aggregates[key(name, 0)]
	return ok
}

// IsWindowOnly reports the small set of functions that are meaningful
// only inside an OVER(...) clause (spec.md §4.5), as opposed to
// aggregates, which can act as either.
func IsWindowOnly(name string) bool {
	switch strings.ToUpper(name) {
	case "ROW_NUMBER", "RANK", "DENSE_RANK", "LAG", "LEAD", "FIRST_VALUE", "LAST_VALUE", "NTILE":
		return true
	default:
		return false
	}
}

// ExprReturnType is a best-effort static type for an arbitrary AST
// expression, used by the resolver to build intermediate schemas
// without a full evaluator pass. It recurses structurally and defers to
// the registry for function calls.
func (r *Registry) ExprReturnType(e ast.Expr, colType func(*ast.ColumnRef) (types.DataType, error)) (types.DataType, error) {
	switch n := e.(type) {
	case *ast.Literal:
		switch n.Kind {
		case ast.LitNull:
			return types.Simple(types.Null), nil
		case ast.LitBool:
			return types.Simple(types.Bool), nil
		case ast.LitString:
			return types.Simple(types.String), nil
		case ast.LitNumber:
			if strings.ContainsAny(n.Text, ".eE") {
				return types.Simple(types.Float64), nil
			}
			return types.Simple(types.Int64), nil
		}
	case *ast.ColumnRef:
		return colType(n)
	case *ast.Parameter:
		return types.Simple(types.JSON), nil
	case *ast.BinaryExpr:
		return r.binaryReturnType(n, colType)
	case *ast.UnaryExpr:
		if n.Op == "NOT" || n.Op == "IS NULL" || n.Op == "IS NOT NULL" {
			return types.Simple(types.Bool), nil
		}
		return r.ExprReturnType(n.Operand, colType)
	case *ast.CastExpr:
		return typeNameToDataType(n.TypeName, n.Args)
	case *ast.FuncCall:
		argTypes := make([]types.DataType, 0, len(n.Args))
		for _, a := range n.Args {
			t, err := r.ExprReturnType(a, colType)
			if err != nil {
				return types.DataType{}, err
			}
			argTypes = append(argTypes, t)
		}
		if n.Over != nil || r.IsAggregate(n.Name) {
			if agg, err := r.LookupAggregate(n.Name, argTypes); err == nil {
				return agg.ReturnType(argTypes)
			}
		}
		f, err := r.LookupScalar(n.Name, argTypes)
		if err != nil {
			return types.DataType{}, err
		}
		return f.ReturnType(argTypes)
	case *ast.CaseExpr:
		if len(n.Whens) > 0 {
			return r.ExprReturnType(n.Whens[0].Then, colType)
		}
		if n.Else != nil {
			return r.ExprReturnType(n.Else, colType)
		}
		return types.Simple(types.Null), nil
	case *ast.InExpr, *ast.BetweenExpr, *ast.LikeExpr, *ast.ExistsExpr, *ast.AnySubquery:
		return types.Simple(types.Bool), nil
	case *ast.ScalarSubquery:
		if len(n.Query.Items) == 1 {
			return types.Simple(types.JSON), nil
		}
		return types.Simple(types.JSON), nil
	case *ast.ArrayLiteral:
		if len(n.Elements) == 0 {
			return types.ArrayOf(types.Simple(types.Null)), nil
		}
		elem, err := r.ExprReturnType(n.Elements[0], colType)
		if err != nil {
			return types.DataType{}, err
		}
		return types.ArrayOf(elem), nil
	case *ast.StructLiteral:
		fields := make([]types.StructField, 0, len(n.Fields))
		for _, f := range n.Fields {
			t, err := r.ExprReturnType(f.Value, colType)
			if err != nil {
				return types.DataType{}, err
			}
			fields = append(fields, types.StructField{Name: f.Name, Type: t})
		}
		return types.StructOf(fields...), nil
	case *ast.TupleLiteral:
		return types.Simple(types.JSON), nil
	}
	return types.Simple(types.JSON), nil
}

func (r *Registry) binaryReturnType(n *ast.BinaryExpr, colType func(*ast.ColumnRef) (types.DataType, error)) (types.DataType, error) {
	switch n.Op {
	case "AND", "OR", "=", "<>", "<", "<=", ">", ">=", "@>", "<@", "?|", "?&":
		return types.Simple(types.Bool), nil
	case "+", "-", "*", "/", "%":
		lt, err := r.ExprReturnType(n.Left, colType)
		if err != nil {
			return types.DataType{}, err
		}
		rt, err := r.ExprReturnType(n.Right, colType)
		if err != nil {
			return types.DataType{}, err
		}
		if !lt.IsNumeric() || !rt.IsNumeric() {
			return types.DataType{}, errs.New(errs.TypeMismatch, "operator %s requires numeric operands", n.Op)
		}
		return types.WidestNumeric(lt, rt), nil
	case "||":
		return types.Simple(types.String), nil
	case "->":
		return types.Simple(types.JSON), nil
	case "->>":
		return types.Simple(types.String), nil
	case "#>":
		return types.Simple(types.JSON), nil
	case "<->":
		return types.Simple(types.Float64), nil
	case "<=>":
		return types.Simple(types.Bool), nil
	case "-|-":
		return types.Simple(types.Bool), nil
	default:
		return types.Simple(types.JSON), nil
	}
}

// TypeNameToDataType resolves a parsed type name (as produced by
// CastExpr.TypeName/Args or a column DDL type) to a DataType. Exported
// so the executor's CAST implementation shares this table instead of
// duplicating it.
func TypeNameToDataType(name string, args []int) (types.DataType, error) {
	return typeNameToDataType(name, args)
}

func typeNameToDataType(name string, args []int) (types.DataType, error) {
	switch strings.ToUpper(name) {
	case "INT", "INT64", "INTEGER", "BIGINT":
		return types.Simple(types.Int64), nil
	case "FLOAT", "FLOAT64", "DOUBLE":
		return types.Simple(types.Float64), nil
	case "DECIMAL", "NUMERIC":
		p, s := 38, 9
		if len(args) > 0 {
			p = args[0]
		}
		if len(args) > 1 {
			s = args[1]
		}
		return types.DecimalType(p, s), nil
	case "STRING", "TEXT", "VARCHAR":
		return types.Simple(types.String), nil
	case "BYTES", "BLOB":
		return types.Simple(types.Bytes), nil
	case "BOOL", "BOOLEAN":
		return types.Simple(types.Bool), nil
	case "DATE":
		return types.Simple(types.Date), nil
	case "TIME":
		return types.Simple(types.Time), nil
	case "TIMESTAMP":
		return types.Simple(types.Timestamp), nil
	case "TIMESTAMPTZ":
		return types.Simple(types.TimestampTZ), nil
	case "UUID":
		return types.Simple(types.UUIDTag), nil
	case "JSON":
		return types.Simple(types.JSON), nil
	case "VECTOR":
		dim := 0
		if len(args) > 0 {
			dim = args[0]
		}
		return types.VectorOf(dim), nil
	default:
		return types.Simple(types.JSON), nil
	}
}
