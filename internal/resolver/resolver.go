package resolver

import (
	"fmt"
	"strconv"
	"strings"

	"yachtsql/internal/ast"
	"yachtsql/internal/catalog"
	"yachtsql/internal/errs"
	"yachtsql/internal/functions"
	"yachtsql/internal/planir"
	"yachtsql/internal/types"
)

// Resolver binds statements against a fixed Catalog and FunctionRegistry.
// It is stateless across calls to Resolve; every call gets a fresh root
// scope.
type Resolver struct {
	cat   *catalog.Catalog
	funcs *functions.Registry
}

func New(cat *catalog.Catalog, funcs *functions.Registry) *Resolver {
	return &Resolver{cat: cat, funcs: funcs}
}

// Resolve binds a top-level statement, returning the logical plan for a
// query or DML statement. Any other statement (DDL, transaction
// control) is rejected with an InternalError; the Executor handles
// those directly rather than through the plan pipeline.
func (r *Resolver) Resolve(stmt ast.Statement) (planir.Node, error) {
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		return r.resolveSelect(newScope(nil), s)
	case *ast.ValuesStmt:
		return r.resolveValuesStmt(newScope(nil), s)
	case *ast.InsertStmt:
		return r.resolveInsert(s)
	case *ast.UpdateStmt:
		return r.resolveUpdate(s)
	case *ast.DeleteStmt:
		return r.resolveDelete(s)
	default:
		return nil, errs.New(errs.InternalError, "resolver: statement type %T is not plan-bound", stmt)
	}
}

// ResolveCorrelated binds a SELECT that may reference columns of an
// enclosing row (a WHERE-clause EXISTS/IN/scalar/ANY subquery, or the
// inner side of a LATERAL join) by seeding the root scope with
// outerSchema's columns before resolving q, so a correlated ColumnRef
// resolves against the enclosing statement the way spec.md §4.2's
// correlation edges require. outerSchema may be nil for an uncorrelated
// caller.
func (r *Resolver) ResolveCorrelated(q *ast.SelectStmt, outerSchema *types.Schema) (planir.Node, error) {
	parent := newScope(nil)
	if outerSchema != nil {
		parent.addTable("", outerSchema)
	}
	return r.resolveSelect(parent, q)
}

func (r *Resolver) resolveValuesStmt(s *scope, v *ast.ValuesStmt) (planir.Node, error) {
	schema, err := r.valuesSchema(s, v.Rows)
	if err != nil {
		return nil, err
	}
	return planir.NewValues(v.Rows, schema), nil
}

func (r *Resolver) valuesSchema(s *scope, rows [][]ast.Expr) (*types.Schema, error) {
	if len(rows) == 0 {
		return types.NewSchema(), nil
	}
	cols := make([]types.Column, len(rows[0]))
	for i := range rows[0] {
		t, err := r.typeOf(s, rows[0][i])
		if err != nil {
			return nil, err
		}
		cols[i] = types.Column{Name: fmt.Sprintf("column%d", i+1), Type: t, Nullable: true}
	}
	return types.NewSchema(cols...), nil
}

// resolveSelect binds a SELECT, including UNION/INTERSECT/EXCEPT chains
// (spec.md §4.5) and an optional leading WITH clause.
func (r *Resolver) resolveSelect(parent *scope, sel *ast.SelectStmt) (planir.Node, error) {
	s := newScope(parent)

	var ctes []planir.NamedPlan
	if sel.With != nil {
		for _, cte := range sel.With.CTEs {
			if sel.With.Recursive && cte.Query.SetOp == ast.SetOpUnion && cte.Query.SetOpAll {
				anchor, err := r.resolveSelect(s, cte.Query.SetOpLeft)
				if err != nil {
					return nil, err
				}
				s.ctes[strings.ToLower(cte.Name)] = anchor.Schema()
				term, err := r.resolveSelect(s, cte.Query.SetOpRight)
				if err != nil {
					return nil, err
				}
				ctes = append(ctes, planir.NamedPlan{Name: cte.Name, Plan: anchor, Recursive: true, RecursiveTerm: term})
				continue
			}
			plan, err := r.resolveSelect(s, cte.Query)
			if err != nil {
				return nil, err
			}
			s.ctes[strings.ToLower(cte.Name)] = plan.Schema()
			ctes = append(ctes, planir.NamedPlan{Name: cte.Name, Plan: plan, Recursive: cte.Recursive})
		}
	}

	if sel.SetOp != ast.SetOpNone {
		left, err := r.resolveSelect(s, sel.SetOpLeft)
		if err != nil {
			return nil, err
		}
		right, err := r.resolveSelect(s, sel.SetOpRight)
		if err != nil {
			return nil, err
		}
		if !left.Schema().CompatibleWith(right.Schema()) {
			return nil, errs.New(errs.TypeMismatch, "set operation operands have incompatible schemas")
		}
		node := planir.Node(planir.NewSetOp(sel.SetOp, sel.SetOpAll, left, right))
		return r.wrapWith(ctes, node), nil
	}

	var plan planir.Node
	var err error
	if sel.From != nil {
		plan, err = r.resolveRelation(s, sel.From)
		if err != nil {
			return nil, err
		}
	} else {
		plan = planir.NewValues([][]ast.Expr{{}}, types.NewSchema())
	}

	if sel.Where != nil {
		plan = planir.NewFilter(plan, sel.Where)
	}

	isAgg := len(sel.GroupBy) > 0
	if !isAgg {
		for _, it := range sel.Items {
			if containsAggregate(r.funcs, it.Expr) {
				isAgg = true
				break
			}
		}
	}

	switch {
	case isAgg:
		plan, err = r.resolveAggregate(s, plan, sel)
		if err != nil {
			return nil, err
		}
	case hasWindowCall(sel.Items):
		// Window must see the pre-projection row shape: its function
		// arguments, PARTITION BY, and ORDER BY all reference FROM-clause
		// columns, not SELECT-list aliases. The final Project below then
		// swaps each window-call SELECT item for a reference to the
		// trailing column Window produced for it.
		witems, windowSchema, err := r.resolveWindowItems(s, plan, sel.Items)
		if err != nil {
			return nil, err
		}
		if len(witems) > 0 {
			plan = planir.NewWindow(plan, witems, windowSchema)
		}
		items, schema, err := r.resolveProjectItemsAfterWindow(s, plan, sel.Items)
		if err != nil {
			return nil, err
		}
		plan = planir.NewProject(plan, items, schema)
	default:
		items, schema, err := r.resolveProjectItems(s, plan, sel.Items)
		if err != nil {
			return nil, err
		}
		plan = planir.NewProject(plan, items, schema)
	}

	if sel.Having != nil {
		plan = planir.NewFilter(plan, sel.Having)
	}

	if sel.Distinct {
		plan = planir.NewDistinct(plan)
	}

	if len(sel.OrderBy) > 0 {
		plan = planir.NewSort(plan, sel.OrderBy)
	}

	if sel.Limit != nil || sel.Offset != nil {
		plan = planir.NewLimitOffset(plan, sel.Limit, sel.Offset)
	}

	return r.wrapWith(ctes, plan), nil
}

func (r *Resolver) wrapWith(ctes []planir.NamedPlan, body planir.Node) planir.Node {
	if len(ctes) == 0 {
		return body
	}
	return planir.NewWithScan(ctes, body)
}

// resolveProjectItems expands `*`/`t.*` and computes the output schema
// for a non-aggregating SELECT list.
func (r *Resolver) resolveProjectItems(s *scope, input planir.Node, items []ast.SelectItem) ([]planir.ProjectItem, *types.Schema, error) {
	s.addTable("", input.Schema())
	var out []planir.ProjectItem
	var cols []types.Column
	for _, it := range items {
		if it.Star {
			for _, c := range input.Schema().Columns {
				if it.StarQualifier != "" {
					// qualifier filtering is approximate: without per-column
					// table provenance on the flattened schema we include
					// every column, matching the common single-table case
					// and erring toward over-inclusion for joins.
				}
				out = append(out, planir.ProjectItem{Expr: &ast.ColumnRef{Name: c.Name}, Alias: c.Name})
				cols = append(cols, c)
			}
			continue
		}
		t, err := r.typeOf(s, it.Expr)
		if err != nil {
			return nil, nil, err
		}
		alias := it.Alias
		if alias == "" {
			alias = exprDisplayName(it.Expr)
		}
		out = append(out, planir.ProjectItem{Expr: it.Expr, Alias: alias})
		cols = append(cols, types.Column{Name: alias, Type: t, Nullable: true})
	}
	return out, types.NewSchema(cols...), nil
}

func exprDisplayName(e ast.Expr) string {
	if cr, ok := e.(*ast.ColumnRef); ok {
		return cr.Name
	}
	if fc, ok := e.(*ast.FuncCall); ok {
		return strings.ToLower(fc.Name)
	}
	return "?column?"
}

// resolveAggregate builds an Aggregate node whose own output schema is
// always (GROUP BY keys in clause order, then aggregate results in
// SELECT-list order) — unambiguous for the executor to consume — and
// wraps it in a Project that reshapes those columns into the actual
// SELECT-list order and aliases. Every non-aggregated SELECT item must
// be functionally dependent on GROUP BY (spec.md §4.5); that item's
// expression is re-evaluated against the Aggregate's group-key columns,
// which is why those columns are named after their source expression
// rather than left anonymous.
func (r *Resolver) resolveAggregate(s *scope, input planir.Node, sel *ast.SelectStmt) (planir.Node, error) {
	s.addTable("", input.Schema())

	groupBy := make([]ast.Expr, len(sel.GroupBy))
	for i, g := range sel.GroupBy {
		groupBy[i] = rewriteGroupByRef(g, sel.Items)
	}

	groupCols := make([]types.Column, len(groupBy))
	for i, g := range groupBy {
		t, err := r.typeOf(s, g)
		if err != nil {
			return nil, err
		}
		groupCols[i] = types.Column{Name: exprDisplayName(g), Type: t, Nullable: true}
	}

	var aggItems []planir.AggregateItem
	var aggCols []types.Column
	var cols []types.Column
	var projAfter []planir.ProjectItem

	for _, it := range sel.Items {
		calls := collectAggregateCalls(r.funcs, it.Expr)
		if len(calls) == 0 {
			t, err := r.typeOf(s, it.Expr)
			if err != nil {
				return nil, err
			}
			alias := it.Alias
			if alias == "" {
				alias = exprDisplayName(it.Expr)
			}
			projAfter = append(projAfter, planir.ProjectItem{Expr: it.Expr, Alias: alias})
			cols = append(cols, types.Column{Name: alias, Type: t, Nullable: true})
			continue
		}
		call := calls[0]
		argTypes := make([]types.DataType, 0, len(call.Args))
		for _, a := range call.Args {
			t, err := r.typeOf(s, a)
			if err != nil {
				return nil, err
			}
			argTypes = append(argTypes, t)
		}
		agg, err := r.funcs.LookupAggregate(call.Name, argTypes)
		if err != nil {
			return nil, err
		}
		retType, err := agg.ReturnType(argTypes)
		if err != nil {
			return nil, errs.Wrap(errs.TypeMismatch, err, "in call to %s", call.Name)
		}
		alias := it.Alias
		if alias == "" {
			alias = strings.ToLower(call.Name)
		}
		aggItems = append(aggItems, planir.AggregateItem{FuncName: call.Name, Args: call.Args, Distinct: call.Distinct, Alias: alias})
		aggCols = append(aggCols, types.Column{Name: alias, Type: retType, Nullable: true})
		cols = append(cols, types.Column{Name: alias, Type: retType, Nullable: true})
		projAfter = append(projAfter, planir.ProjectItem{Expr: &ast.ColumnRef{Name: alias}, Alias: alias})
	}

	naturalCols := append(append([]types.Column{}, groupCols...), aggCols...)
	aggNode := planir.NewAggregate(input, groupBy, aggItems, types.NewSchema(naturalCols...))
	return planir.NewProject(aggNode, projAfter, types.NewSchema(cols...)), nil
}

// rewriteGroupByRef resolves `GROUP BY 1` / `GROUP BY alias` to the
// underlying SELECT-list expression (spec.md §4.5).
func rewriteGroupByRef(e ast.Expr, items []ast.SelectItem) ast.Expr {
	if lit, ok := e.(*ast.Literal); ok && lit.Kind == ast.LitNumber {
		if n, err := strconv.Atoi(lit.Text); err == nil && n >= 1 && n <= len(items) {
			return items[n-1].Expr
		}
	}
	if ref, ok := e.(*ast.ColumnRef); ok && ref.Qualifier == "" {
		for _, it := range items {
			if strings.EqualFold(it.Alias, ref.Name) {
				return it.Expr
			}
		}
	}
	return e
}

func containsAggregate(funcs *functions.Registry, e ast.Expr) bool {
	return len(collectAggregateCalls(funcs, e)) > 0
}

// collectAggregateCalls finds aggregate function calls in e that are NOT
// inside a window OVER(...) clause (those stay scalar-shaped until the
// Window stage).
func collectAggregateCalls(funcs *functions.Registry, e ast.Expr) []*ast.FuncCall {
	var out []*ast.FuncCall
	var walk func(ast.Expr)
	walk = func(n ast.Expr) {
		switch v := n.(type) {
		case *ast.FuncCall:
			if v.Over == nil && funcs.IsAggregate(v.Name) {
				out = append(out, v)
				return
			}
			for _, a := range v.Args {
				walk(a)
			}
		case *ast.BinaryExpr:
			walk(v.Left)
			walk(v.Right)
		case *ast.UnaryExpr:
			walk(v.Operand)
		case *ast.CaseExpr:
			if v.Operand != nil {
				walk(v.Operand)
			}
			for _, w := range v.Whens {
				walk(w.Cond)
				walk(w.Then)
			}
			if v.Else != nil {
				walk(v.Else)
			}
		case *ast.CastExpr:
			walk(v.Operand)
		}
	}
	walk(e)
	return out
}

func hasWindowCall(items []ast.SelectItem) bool {
	for _, it := range items {
		found := false
		var walk func(ast.Expr)
		walk = func(n ast.Expr) {
			if fc, ok := n.(*ast.FuncCall); ok {
				if fc.Over != nil {
					found = true
					return
				}
				for _, a := range fc.Args {
					walk(a)
				}
			}
		}
		walk(it.Expr)
		if found {
			return true
		}
	}
	return false
}

// resolveWindowItems rewrites SELECT-list window calls into trailing
// Window-node columns appended after the FROM-clause's own columns.
// resolveProjectItemsAfterWindow builds the actual SELECT-list shape
// against this schema once the Window node exists.
func (r *Resolver) resolveWindowItems(s *scope, input planir.Node, items []ast.SelectItem) ([]planir.WindowItem, *types.Schema, error) {
	var witems []planir.WindowItem
	cols := append([]types.Column{}, input.Schema().Columns...)
	for _, it := range items {
		fc, ok := it.Expr.(*ast.FuncCall)
		if !ok || fc.Over == nil {
			continue
		}
		argTypes := make([]types.DataType, 0, len(fc.Args))
		for _, a := range fc.Args {
			t, err := r.typeOf(s, a)
			if err != nil {
				return nil, nil, err
			}
			argTypes = append(argTypes, t)
		}
		retType := types.Simple(types.Float64)
		if agg, err := r.funcs.LookupAggregate(fc.Name, argTypes); err == nil {
			if t, err := agg.ReturnType(argTypes); err == nil {
				retType = t
			}
		} else if functions.IsWindowOnly(fc.Name) {
			retType = windowOnlyReturnType(fc.Name)
		}
		alias := it.Alias
		if alias == "" {
			alias = strings.ToLower(fc.Name)
		}
		witems = append(witems, planir.WindowItem{FuncName: fc.Name, Args: fc.Args, Spec: fc.Over, Alias: alias})
		cols = append(cols, types.Column{Name: alias, Type: retType, Nullable: true})
	}
	return witems, types.NewSchema(cols...), nil
}

// resolveProjectItemsAfterWindow builds the final SELECT-list projection
// once a Window node is in place. A window-call item becomes a reference
// to the trailing alias column Window produced for it; every other item
// is resolved the same way resolveProjectItems would resolve it, against
// the Window node's carried-through FROM-clause columns.
func (r *Resolver) resolveProjectItemsAfterWindow(s *scope, input planir.Node, items []ast.SelectItem) ([]planir.ProjectItem, *types.Schema, error) {
	s.addTable("", input.Schema())
	var out []planir.ProjectItem
	var cols []types.Column
	for _, it := range items {
		if it.Star {
			for _, c := range input.Schema().Columns {
				out = append(out, planir.ProjectItem{Expr: &ast.ColumnRef{Name: c.Name}, Alias: c.Name})
				cols = append(cols, c)
			}
			continue
		}
		if fc, ok := it.Expr.(*ast.FuncCall); ok && fc.Over != nil {
			alias := it.Alias
			if alias == "" {
				alias = strings.ToLower(fc.Name)
			}
			idx := input.Schema().IndexOf(alias)
			t := types.Simple(types.Float64)
			if idx >= 0 {
				t = input.Schema().Columns[idx].Type
			}
			out = append(out, planir.ProjectItem{Expr: &ast.ColumnRef{Name: alias}, Alias: alias})
			cols = append(cols, types.Column{Name: alias, Type: t, Nullable: true})
			continue
		}
		t, err := r.typeOf(s, it.Expr)
		if err != nil {
			return nil, nil, err
		}
		alias := it.Alias
		if alias == "" {
			alias = exprDisplayName(it.Expr)
		}
		out = append(out, planir.ProjectItem{Expr: it.Expr, Alias: alias})
		cols = append(cols, types.Column{Name: alias, Type: t, Nullable: true})
	}
	return out, types.NewSchema(cols...), nil
}

func windowOnlyReturnType(name string) types.DataType {
	switch strings.ToUpper(name) {
	case "ROW_NUMBER", "RANK", "DENSE_RANK", "NTILE":
		return types.Simple(types.Int64)
	default:
		return types.Simple(types.JSON)
	}
}
