package exec

import (
	"regexp"
	"strconv"
	"strings"

	"yachtsql/internal/ast"
	"yachtsql/internal/errs"
	"yachtsql/internal/functions"
	"yachtsql/internal/types"
)

// EvalCtx carries everything Eval needs beyond the current row: the
// function registry for scalar/aggregate calls, bound parameter values
// for prepared statements, a stack of bound outer rows for LATERAL and
// correlated-subquery evaluation (spec.md §4.5 "LATERAL"; §9 general
// correlated subqueries), and a callback to run a subquery to
// completion (SPEC_FULL.md §12 "prepared statements"; spec.md §4.5
// scalar/EXISTS/IN/ANY subqueries).
type EvalCtx struct {
	funcs  *functions.Registry
	params []types.Value
	runSub func(outer Row, outerSchema *types.Schema, q *ast.SelectStmt) ([]Row, *types.Schema, error)

	outer []outerFrame
}

type outerFrame struct {
	row    Row
	schema *types.Schema
}

// NewEvalCtx builds an EvalCtx for funcs and bound parameter values.
// runSub is left nil; callers that need subquery support wire it in
// afterward with SetSubqueryRunner once a Compiler exists to build it
// from, breaking the EvalCtx/Compiler construction cycle.
func NewEvalCtx(funcs *functions.Registry, params []types.Value) *EvalCtx {
	return &EvalCtx{funcs: funcs, params: params}
}

// SetSubqueryRunner binds the callback Eval uses to run a scalar/EXISTS/IN
// subquery to completion. See NewSubqueryRunner.
func (ec *EvalCtx) SetSubqueryRunner(runSub func(outer Row, outerSchema *types.Schema, q *ast.SelectStmt) ([]Row, *types.Schema, error)) {
	ec.runSub = runSub
}

// PushOuter binds row/schema as the innermost outer environment, making
// its columns visible to ColumnRefs that don't resolve locally. The
// LATERAL apply operator pushes the driving row before (re)opening or
// pulling from its inner child; NewSubqueryRunner pushes the row that
// triggered a correlated subquery before compiling and draining it.
func (ec *EvalCtx) PushOuter(row Row, schema *types.Schema) {
	ec.outer = append(ec.outer, outerFrame{row: row, schema: schema})
}

// PopOuter removes the innermost outer environment pushed by PushOuter.
func (ec *EvalCtx) PopOuter() {
	ec.outer = ec.outer[:len(ec.outer)-1]
}

// lookupOuter searches the outer-row stack from innermost to outermost
// for name, the same order a nested scope's correlated column lookup
// would use.
func (ec *EvalCtx) lookupOuter(name string) (types.Value, bool) {
	for i := len(ec.outer) - 1; i >= 0; i-- {
		f := ec.outer[i]
		if f.schema == nil {
			continue
		}
		if idx := f.schema.IndexOf(name); idx >= 0 {
			return f.row[idx], true
		}
	}
	return types.Value{}, false
}

// Eval evaluates e against row under schema, returning a scalar Value.
func Eval(e ast.Expr, row Row, schema *types.Schema, ec *EvalCtx) (types.Value, error) {
	switch n := e.(type) {
	case *ast.Literal:
		return evalLiteral(n)
	case *ast.ColumnRef:
		if schema != nil {
			if idx := schema.IndexOf(n.Name); idx >= 0 {
				return row[idx], nil
			}
		}
		if v, ok := ec.lookupOuter(n.Name); ok {
			return v, nil
		}
		return types.Value{}, errs.New(errs.InternalError, "column %q not present at evaluation time", n.Name)
	case *ast.Parameter:
		if n.Index < 1 || n.Index > len(ec.params) {
			return types.Value{}, errs.New(errs.ResolutionError, "parameter $%d has no bound value", n.Index)
		}
		return ec.params[n.Index-1], nil
	case *ast.BinaryExpr:
		return evalBinary(n, row, schema, ec)
	case *ast.UnaryExpr:
		return evalUnary(n, row, schema, ec)
	case *ast.CaseExpr:
		return evalCase(n, row, schema, ec)
	case *ast.CastExpr:
		return evalCast(n, row, schema, ec)
	case *ast.InExpr:
		return evalIn(n, row, schema, ec)
	case *ast.BetweenExpr:
		return evalBetween(n, row, schema, ec)
	case *ast.LikeExpr:
		return evalLike(n, row, schema, ec)
	case *ast.ExistsExpr:
		return evalExists(n, row, schema, ec)
	case *ast.ScalarSubquery:
		return evalScalarSubquery(n, row, schema, ec)
	case *ast.AnySubquery:
		return evalAnySubquery(n, row, schema, ec)
	case *ast.ArrayLiteral:
		return evalArrayLiteral(n, row, schema, ec)
	case *ast.StructLiteral:
		return evalStructLiteral(n, row, schema, ec)
	case *ast.FuncCall:
		return evalFuncCall(n, row, schema, ec)
	default:
		return types.Value{}, errs.New(errs.FeatureNotSupported, "expression type %T is not supported in this context", e)
	}
}

func evalLiteral(n *ast.Literal) (types.Value, error) {
	switch n.Kind {
	case ast.LitNull:
		return types.NullValue(types.Simple(types.Null)), nil
	case ast.LitBool:
		return types.BoolValue(n.Text == "true"), nil
	case ast.LitString:
		return types.StringValue(n.Text), nil
	case ast.LitNumber:
		if strings.ContainsAny(n.Text, ".eE") {
			f, err := strconv.ParseFloat(n.Text, 64)
			if err != nil {
				return types.Value{}, errs.Wrap(errs.SyntaxError, err, "invalid numeric literal %q", n.Text)
			}
			return types.Float64Value(f), nil
		}
		i, err := strconv.ParseInt(n.Text, 10, 64)
		if err != nil {
			return types.Value{}, errs.Wrap(errs.SyntaxError, err, "invalid numeric literal %q", n.Text)
		}
		return types.Int64Value(i), nil
	default:
		return types.Value{}, errs.New(errs.InternalError, "unknown literal kind")
	}
}

func evalUnary(n *ast.UnaryExpr, row Row, schema *types.Schema, ec *EvalCtx) (types.Value, error) {
	switch n.Op {
	case "NOT":
		v, err := Eval(n.Operand, row, schema, ec)
		if err != nil {
			return types.Value{}, err
		}
		return types.BoolToBool3(v).Not().Value(), nil
	case "IS NULL", "IS NOT NULL":
		v, err := Eval(n.Operand, row, schema, ec)
		if err != nil {
			return types.Value{}, err
		}
		if n.Op == "IS NULL" {
			return types.BoolValue(v.IsNull), nil
		}
		return types.BoolValue(!v.IsNull), nil
	case "-":
		v, err := Eval(n.Operand, row, schema, ec)
		if err != nil {
			return types.Value{}, err
		}
		if v.IsNull {
			return v, nil
		}
		switch v.Type.Tag {
		case types.Int64:
			return types.Int64Value(-v.Int64()), nil
		case types.Float64:
			return types.Float64Value(-v.Float64()), nil
		default:
			return v, nil
		}
	case "+":
		return Eval(n.Operand, row, schema, ec)
	default:
		return types.Value{}, errs.New(errs.FeatureNotSupported, "unary operator %q", n.Op)
	}
}

func evalBinary(n *ast.BinaryExpr, row Row, schema *types.Schema, ec *EvalCtx) (types.Value, error) {
	if n.Op == "AND" || n.Op == "OR" {
		l, err := Eval(n.Left, row, schema, ec)
		if err != nil {
			return types.Value{}, err
		}
		r, err := Eval(n.Right, row, schema, ec)
		if err != nil {
			return types.Value{}, err
		}
		lb, rb := types.BoolToBool3(l), types.BoolToBool3(r)
		if n.Op == "AND" {
			return lb.And(rb).Value(), nil
		}
		return lb.Or(rb).Value(), nil
	}

	l, err := Eval(n.Left, row, schema, ec)
	if err != nil {
		return types.Value{}, err
	}
	r, err := Eval(n.Right, row, schema, ec)
	if err != nil {
		return types.Value{}, err
	}

	switch n.Op {
	case "=", "<>", "<", "<=", ">", ">=":
		if l.IsNull || r.IsNull {
			return types.NullValue(types.Simple(types.Bool)), nil
		}
		c := types.Compare(l, r)
		var b bool
		switch n.Op {
		case "=":
			b = c == 0
		case "<>":
			b = c != 0
		case "<":
			b = c < 0
		case "<=":
			b = c <= 0
		case ">":
			b = c > 0
		case ">=":
			b = c >= 0
		}
		return types.BoolValue(b), nil
	case "+", "-", "*", "/", "%":
		return evalArith(n.Op, l, r)
	case "||":
		if l.IsNull || r.IsNull {
			return types.NullValue(types.Simple(types.String)), nil
		}
		return types.StringValue(l.String() + r.String()), nil
	default:
		return types.Value{}, errs.New(errs.FeatureNotSupported, "operator %q", n.Op)
	}
}

func evalArith(op string, l, r types.Value) (types.Value, error) {
	if l.IsNull || r.IsNull {
		return types.NullValue(types.WidestNumeric(l.Type, r.Type)), nil
	}
	if l.Type.Tag == types.DecimalTag || r.Type.Tag == types.DecimalTag {
		ld, rd := asDecimal(l), asDecimal(r)
		var res types.Decimal
		var err error
		switch op {
		case "+":
			res, err = ld.Add(rd)
		case "-":
			res, err = ld.Sub(rd)
		case "*":
			res, err = ld.Mul(rd)
		case "/":
			res, err = ld.Div(rd)
		default:
			return types.Value{}, errs.New(errs.FeatureNotSupported, "%% is not defined for DECIMAL")
		}
		if err != nil {
			return types.Value{}, err
		}
		return types.DecimalValue(res), nil
	}
	if l.Type.Tag == types.Int64 && r.Type.Tag == types.Int64 {
		a, b := l.Int64(), r.Int64()
		switch op {
		case "+":
			return types.Int64Value(a + b), nil
		case "-":
			return types.Int64Value(a - b), nil
		case "*":
			return types.Int64Value(a * b), nil
		case "/":
			if b == 0 {
				return types.Value{}, errs.New(errs.DivisionByZero, "division by zero")
			}
			return types.Int64Value(a / b), nil
		case "%":
			if b == 0 {
				return types.Value{}, errs.New(errs.DivisionByZero, "modulo by zero")
			}
			return types.Int64Value(a % b), nil
		}
	}
	a, b := asFloat(l), asFloat(r)
	switch op {
	case "+":
		return types.Float64Value(a + b), nil
	case "-":
		return types.Float64Value(a - b), nil
	case "*":
		return types.Float64Value(a * b), nil
	case "/":
		if b == 0 {
			return types.Value{}, errs.New(errs.DivisionByZero, "division by zero")
		}
		return types.Float64Value(a / b), nil
	case "%":
		return types.Value{}, errs.New(errs.FeatureNotSupported, "%% is not defined for FLOAT64")
	}
	return types.Value{}, errs.New(errs.FeatureNotSupported, "operator %q", op)
}

func asFloat(v types.Value) float64 {
	switch v.Type.Tag {
	case types.Int64:
		return float64(v.Int64())
	case types.Float64:
		return v.Float64()
	default:
		return 0
	}
}

func asDecimal(v types.Value) types.Decimal {
	switch v.Type.Tag {
	case types.DecimalTag:
		return v.Decimal()
	case types.Int64:
		return types.DecimalFromInt64(v.Int64(), 38, 0)
	default:
		d, _ := types.NewDecimal(v.String(), 38, 9)
		return d
	}
}

func evalCase(n *ast.CaseExpr, row Row, schema *types.Schema, ec *EvalCtx) (types.Value, error) {
	var operand types.Value
	var err error
	if n.Operand != nil {
		operand, err = Eval(n.Operand, row, schema, ec)
		if err != nil {
			return types.Value{}, err
		}
	}
	for _, w := range n.Whens {
		if n.Operand != nil {
			cv, err := Eval(w.Cond, row, schema, ec)
			if err != nil {
				return types.Value{}, err
			}
			if !operand.IsNull && !cv.IsNull && types.Equal(operand, cv) {
				return Eval(w.Then, row, schema, ec)
			}
			continue
		}
		cv, err := Eval(w.Cond, row, schema, ec)
		if err != nil {
			return types.Value{}, err
		}
		if types.BoolToBool3(cv).MatchesWhere() {
			return Eval(w.Then, row, schema, ec)
		}
	}
	if n.Else != nil {
		return Eval(n.Else, row, schema, ec)
	}
	return types.NullValue(types.Simple(types.Null)), nil
}

func evalCast(n *ast.CastExpr, row Row, schema *types.Schema, ec *EvalCtx) (types.Value, error) {
	v, err := Eval(n.Operand, row, schema, ec)
	if err != nil {
		return types.Value{}, err
	}
	return Cast(v, n.TypeName, n.Args)
}

func evalIn(n *ast.InExpr, row Row, schema *types.Schema, ec *EvalCtx) (types.Value, error) {
	v, err := Eval(n.Operand, row, schema, ec)
	if err != nil {
		return types.Value{}, err
	}
	var candidates []types.Value
	if n.Subquery != nil {
		rows, _, err := ec.runSub(row, schema, n.Subquery)
		if err != nil {
			return types.Value{}, err
		}
		for _, r := range rows {
			if len(r) > 0 {
				candidates = append(candidates, r[0])
			}
		}
	} else {
		for _, e := range n.List {
			cv, err := Eval(e, row, schema, ec)
			if err != nil {
				return types.Value{}, err
			}
			candidates = append(candidates, cv)
		}
	}
	if v.IsNull {
		return types.NullValue(types.Simple(types.Bool)), nil
	}
	sawNull := false
	for _, c := range candidates {
		if c.IsNull {
			sawNull = true
			continue
		}
		if types.Equal(v, c) {
			return types.BoolValue(!n.Negate), nil
		}
	}
	if sawNull {
		return types.NullValue(types.Simple(types.Bool)), nil
	}
	return types.BoolValue(n.Negate), nil
}

func evalBetween(n *ast.BetweenExpr, row Row, schema *types.Schema, ec *EvalCtx) (types.Value, error) {
	v, err := Eval(n.Operand, row, schema, ec)
	if err != nil {
		return types.Value{}, err
	}
	lo, err := Eval(n.Lo, row, schema, ec)
	if err != nil {
		return types.Value{}, err
	}
	hi, err := Eval(n.Hi, row, schema, ec)
	if err != nil {
		return types.Value{}, err
	}
	if v.IsNull || lo.IsNull || hi.IsNull {
		return types.NullValue(types.Simple(types.Bool)), nil
	}
	b := types.Compare(v, lo) >= 0 && types.Compare(v, hi) <= 0
	if n.Negate {
		b = !b
	}
	return types.BoolValue(b), nil
}

func evalLike(n *ast.LikeExpr, row Row, schema *types.Schema, ec *EvalCtx) (types.Value, error) {
	v, err := Eval(n.Operand, row, schema, ec)
	if err != nil {
		return types.Value{}, err
	}
	p, err := Eval(n.Pattern, row, schema, ec)
	if err != nil {
		return types.Value{}, err
	}
	if v.IsNull || p.IsNull {
		return types.NullValue(types.Simple(types.Bool)), nil
	}
	b := matchLike(v.Str(), p.Str())
	if n.Negate {
		b = !b
	}
	return types.BoolValue(b), nil
}

// matchLike implements SQL LIKE's `%`/`_` wildcards via a translation to
// regexp, the way roach88-nysm's query layer builds glob matchers rather
// than a hand-rolled backtracker.
func matchLike(s, pattern string) bool {
	var sb strings.Builder
	sb.WriteString("(?s)^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteByte('$')
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func evalExists(n *ast.ExistsExpr, row Row, schema *types.Schema, ec *EvalCtx) (types.Value, error) {
	rows, _, err := ec.runSub(row, schema, n.Subquery)
	if err != nil {
		return types.Value{}, err
	}
	b := len(rows) > 0
	if n.Negate {
		b = !b
	}
	return types.BoolValue(b), nil
}

func evalScalarSubquery(n *ast.ScalarSubquery, row Row, schema *types.Schema, ec *EvalCtx) (types.Value, error) {
	rows, subSchema, err := ec.runSub(row, schema, n.Query)
	if err != nil {
		return types.Value{}, err
	}
	if len(rows) == 0 {
		if subSchema.Arity() > 0 {
			return types.NullValue(subSchema.Columns[0].Type), nil
		}
		return types.NullValue(types.Simple(types.Null)), nil
	}
	return rows[0][0], nil
}

func evalAnySubquery(n *ast.AnySubquery, row Row, schema *types.Schema, ec *EvalCtx) (types.Value, error) {
	v, err := Eval(n.Operand, row, schema, ec)
	if err != nil {
		return types.Value{}, err
	}
	rows, _, err := ec.runSub(row, schema, n.Query)
	if err != nil {
		return types.Value{}, err
	}
	sawNull := false
	for _, r := range rows {
		if len(r) == 0 || r[0].IsNull {
			sawNull = true
			continue
		}
		if v.IsNull {
			continue
		}
		c := types.Compare(v, r[0])
		match := false
		switch n.Op {
		case "=":
			match = c == 0
		case "<>":
			match = c != 0
		case "<":
			match = c < 0
		case "<=":
			match = c <= 0
		case ">":
			match = c > 0
		case ">=":
			match = c >= 0
		}
		if match {
			return types.BoolValue(true), nil
		}
	}
	if sawNull || v.IsNull {
		return types.NullValue(types.Simple(types.Bool)), nil
	}
	return types.BoolValue(false), nil
}

func evalArrayLiteral(n *ast.ArrayLiteral, row Row, schema *types.Schema, ec *EvalCtx) (types.Value, error) {
	vals := make([]types.Value, len(n.Elements))
	elemType := types.Simple(types.Null)
	for i, e := range n.Elements {
		v, err := Eval(e, row, schema, ec)
		if err != nil {
			return types.Value{}, err
		}
		vals[i] = v
		if !v.IsNull {
			elemType = v.Type
		}
	}
	return types.ArrayValue(elemType, vals), nil
}

func evalStructLiteral(n *ast.StructLiteral, row Row, schema *types.Schema, ec *EvalCtx) (types.Value, error) {
	fields := make([]types.Value, len(n.Fields))
	fieldTypes := make([]types.StructField, len(n.Fields))
	for i, f := range n.Fields {
		v, err := Eval(f.Value, row, schema, ec)
		if err != nil {
			return types.Value{}, err
		}
		fields[i] = v
		fieldTypes[i] = types.StructField{Name: f.Name, Type: v.Type}
	}
	return types.NewStructValue(types.StructOf(fieldTypes...), fields), nil
}

func evalFuncCall(n *ast.FuncCall, row Row, schema *types.Schema, ec *EvalCtx) (types.Value, error) {
	args := make([]types.Value, len(n.Args))
	argTypes := make([]types.DataType, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(a, row, schema, ec)
		if err != nil {
			return types.Value{}, err
		}
		args[i] = v
		argTypes[i] = v.Type
	}
	f, err := ec.funcs.LookupScalar(n.Name, argTypes)
	if err != nil {
		return types.Value{}, err
	}
	return f.Call(args)
}
