package optimizer

import (
	"strings"

	"yachtsql/internal/ast"
	"yachtsql/internal/planir"
	"yachtsql/internal/types"
)

// predicatePushdownRule moves a Filter below a Project, since Project
// never changes which rows exist, only their shape — pushing the
// predicate earlier lets later join/scan operators see fewer rows
// (spec.md §5 "Normalisation").
type predicatePushdownRule struct{}

func (predicatePushdownRule) Name() string { return "PredicatePushdownThroughProject" }

func (predicatePushdownRule) Apply(n planir.Node) (planir.Node, bool) {
	f, ok := n.(*planir.Filter)
	if !ok {
		return n, false
	}
	p, ok := f.Input.(*planir.Project)
	if !ok {
		return n, false
	}
	// Only safe when the predicate references no computed (non-passthrough)
	// projection item; conservatively restrict to pure column references.
	if !referencesOnlyColumns(f.Predicate, p.Items) {
		return n, false
	}
	newFilter := planir.NewFilter(p.Input, f.Predicate)
	newProject := planir.NewProject(newFilter, p.Items, p.Schema())
	return newProject, true
}

func referencesOnlyColumns(e ast.Expr, items []planir.ProjectItem) bool {
	aliasIsColumn := map[string]bool{}
	for _, it := range items {
		if cr, ok := it.Expr.(*ast.ColumnRef); ok && strings.EqualFold(cr.Name, it.Alias) {
			aliasIsColumn[it.Alias] = true
		}
	}
	ok := true
	var walk func(ast.Expr)
	walk = func(n ast.Expr) {
		switch v := n.(type) {
		case *ast.ColumnRef:
			if !aliasIsColumn[v.Name] {
				// Might still refer to an input column untouched by the
				// projection (e.g. one also selected verbatim); treat
				// unknown refs conservatively as unsafe.
				ok = false
			}
		case *ast.BinaryExpr:
			walk(v.Left)
			walk(v.Right)
		case *ast.UnaryExpr:
			walk(v.Operand)
		}
	}
	walk(e)
	return ok
}

// constantFoldRule folds a Filter predicate or Project item whose root
// is `NOT TRUE`/`NOT FALSE` into the opposite boolean literal (spec.md
// §5 "Simplification"). Literal arithmetic and comparisons such as
// `1 = 1` or `2 + 2` are left unevaluated.
type constantFoldRule struct{}

func (constantFoldRule) Name() string { return "ConstantFold" }

func (constantFoldRule) Apply(n planir.Node) (planir.Node, bool) {
	switch v := n.(type) {
	case *planir.Filter:
		folded, changed := foldExpr(v.Predicate)
		if changed {
			v.Predicate = folded
			return v, true
		}
	case *planir.Project:
		changed := false
		for i := range v.Items {
			folded, did := foldExpr(v.Items[i].Expr)
			if did {
				v.Items[i].Expr = folded
				changed = true
			}
		}
		return v, changed
	}
	return n, false
}

// foldExpr folds `NOT TRUE`/`NOT FALSE` at the root of e only; it does
// not recurse into subexpressions, so a double negation such as
// `NOT NOT TRUE` is left as it is. It only ever replaces a node with an
// equivalent, cheaper one; it never changes result types.
func foldExpr(e ast.Expr) (ast.Expr, bool) {
	u, ok := e.(*ast.UnaryExpr)
	if !ok || u.Op != "NOT" {
		return e, false
	}
	lit, ok := u.Operand.(*ast.Literal)
	if !ok || lit.Kind != ast.LitBool {
		return e, false
	}
	negated := "false"
	if lit.Text == "false" {
		negated = "true"
	}
	return &ast.Literal{Kind: ast.LitBool, Text: negated}, true
}

// removeTrivialFilterRule drops a Filter whose predicate is the literal
// TRUE, which normalization can introduce after constant folding.
type removeTrivialFilterRule struct{}

func (removeTrivialFilterRule) Name() string { return "RemoveTrivialFilter" }

func (removeTrivialFilterRule) Apply(n planir.Node) (planir.Node, bool) {
	f, ok := n.(*planir.Filter)
	if !ok {
		return n, false
	}
	lit, ok := f.Predicate.(*ast.Literal)
	if ok && lit.Kind == ast.LitBool && lit.Text == "true" {
		return f.Input, true
	}
	return n, false
}

// pushFilterThroughJoinRule splits a Filter above a Join into its AND
// conjuncts and pushes each one that references only one side's columns
// down into that side, so a HashJoin/NestedLoopJoin filters rows before
// the join instead of after (spec.md §4.3.4). A conjunct touching both
// sides, or the join's own condition, stays where it is. Pushing into
// the "preserved" side of an outer join (the side that never grows
// NULLs) is always safe; pushing into the padded side would change
// which rows the join reports as unmatched, so that side is left alone
// for LEFT/RIGHT/FULL.
type pushFilterThroughJoinRule struct{}

func (pushFilterThroughJoinRule) Name() string { return "PushFilterThroughJoin" }

func (pushFilterThroughJoinRule) Apply(n planir.Node) (planir.Node, bool) {
	f, ok := n.(*planir.Filter)
	if !ok {
		return n, false
	}
	j, ok := f.Input.(*planir.Join)
	if !ok {
		return n, false
	}

	_, leftIsTF := j.Left.(*planir.TableFunction)
	_, rightIsTF := j.Right.(*planir.TableFunction)

	var remaining []ast.Expr
	changed := false
	for _, c := range splitConjuncts(f.Predicate) {
		switch {
		case !leftIsTF && canPushLeft(j.Kind) && exprColumnsSubsetOf(c, j.Left.Schema()):
			j.Left = planir.NewFilter(j.Left, c)
			changed = true
		case !rightIsTF && canPushRight(j.Kind) && exprColumnsSubsetOf(c, j.Right.Schema()):
			j.Right = planir.NewFilter(j.Right, c)
			changed = true
		default:
			remaining = append(remaining, c)
		}
	}
	if !changed {
		return n, false
	}
	if len(remaining) == 0 {
		return j, true
	}
	return planir.NewFilter(j, joinConjuncts(remaining)), true
}

func canPushLeft(kind ast.JoinKind) bool {
	return kind != ast.JoinRight && kind != ast.JoinFull
}

func canPushRight(kind ast.JoinKind) bool {
	switch kind {
	case ast.JoinLeft, ast.JoinFull, ast.JoinSemi, ast.JoinAnti:
		return false
	default:
		return true
	}
}

func splitConjuncts(e ast.Expr) []ast.Expr {
	if b, ok := e.(*ast.BinaryExpr); ok && b.Op == "AND" {
		return append(splitConjuncts(b.Left), splitConjuncts(b.Right)...)
	}
	return []ast.Expr{e}
}

func joinConjuncts(es []ast.Expr) ast.Expr {
	out := es[0]
	for _, e := range es[1:] {
		out = &ast.BinaryExpr{Op: "AND", Left: out, Right: e}
	}
	return out
}

// exprColumnsSubsetOf reports whether every column e reaches is present
// in schema, refusing to answer true (returning false) for expression
// shapes it doesn't recognize or for a nested subquery, since either one
// might reach a column pushing would put out of scope.
func exprColumnsSubsetOf(e ast.Expr, schema *types.Schema) bool {
	names := map[string]bool{}
	if !collectColumnNames(e, names) {
		return false
	}
	for name := range names {
		if schema.IndexOf(name) < 0 {
			return false
		}
	}
	return true
}

// collectColumnNames walks e collecting every ColumnRef's name into out,
// lower-cased. It returns false, leaving out only partially populated,
// if e contains a subquery or any expression shape it doesn't know how
// to walk — callers must then treat e as needing every column rather
// than trust an incomplete set.
func collectColumnNames(e ast.Expr, out map[string]bool) bool {
	safe := true
	var walk func(ast.Expr)
	walk = func(n ast.Expr) {
		if n == nil || !safe {
			return
		}
		switch v := n.(type) {
		case *ast.ColumnRef:
			out[strings.ToLower(v.Name)] = true
		case *ast.Literal, *ast.Parameter, *ast.DatePartExpr:
		case *ast.BinaryExpr:
			walk(v.Left)
			walk(v.Right)
		case *ast.UnaryExpr:
			walk(v.Operand)
		case *ast.FuncCall:
			for _, a := range v.Args {
				walk(a)
			}
			if v.Over != nil {
				for _, p := range v.Over.Partitions {
					walk(p)
				}
				for _, o := range v.Over.OrderBy {
					walk(o.Expr)
				}
				if v.Over.Frame != nil {
					walk(v.Over.Frame.Start.Offset)
					walk(v.Over.Frame.End.Offset)
				}
			}
		case *ast.CaseExpr:
			walk(v.Operand)
			for _, w := range v.Whens {
				walk(w.Cond)
				walk(w.Then)
			}
			walk(v.Else)
		case *ast.CastExpr:
			walk(v.Operand)
		case *ast.InExpr:
			if v.Subquery != nil {
				safe = false
				return
			}
			walk(v.Operand)
			for _, item := range v.List {
				walk(item)
			}
		case *ast.BetweenExpr:
			walk(v.Operand)
			walk(v.Lo)
			walk(v.Hi)
		case *ast.LikeExpr:
			walk(v.Operand)
			walk(v.Pattern)
		case *ast.ExistsExpr, *ast.ScalarSubquery, *ast.AnySubquery:
			// A correlated subquery can reach a column by name through
			// EvalCtx's outer-row stack without it appearing as a
			// ColumnRef anywhere the walk above the subquery would see.
			safe = false
		case *ast.ArrayLiteral:
			for _, el := range v.Elements {
				walk(el)
			}
		case *ast.TupleLiteral:
			for _, el := range v.Elements {
				walk(el)
			}
		case *ast.StructLiteral:
			for _, fl := range v.Fields {
				walk(fl.Value)
			}
		default:
			safe = false
		}
	}
	walk(e)
	return safe
}

// columnPruningRule narrows a Join's inputs to the columns still needed
// above it — by the enclosing Project's items or by the join's own
// condition/USING columns — so `SELECT c1 FROM t JOIN u ON t.id = u.id`
// stops carrying every other column of u through the join (spec.md
// §4.3.2 "unused-column pruning").
type columnPruningRule struct{}

func (columnPruningRule) Name() string { return "UnusedColumnPruning" }

func (columnPruningRule) Apply(n planir.Node) (planir.Node, bool) {
	p, ok := n.(*planir.Project)
	if !ok {
		return n, false
	}
	j, ok := p.Input.(*planir.Join)
	if !ok {
		return n, false
	}

	needed := map[string]bool{}
	for _, it := range p.Items {
		if !collectColumnNames(it.Expr, needed) {
			return n, false
		}
	}
	if !collectColumnNames(j.Condition, needed) {
		return n, false
	}
	for _, name := range j.UsingCols {
		needed[strings.ToLower(name)] = true
	}

	// Table functions keep whatever columns they already return; pruning
	// them here would turn a *planir.TableFunction right side into a
	// wrapping *planir.Project, which physical.isLateralNode wouldn't
	// recognize as LATERAL anymore.
	newLeft, leftChanged := j.Left, false
	if _, isTF := j.Left.(*planir.TableFunction); !isTF {
		newLeft, leftChanged = pruneSide(j.Left, needed)
	}
	newRight, rightChanged := j.Right, false
	if _, isTF := j.Right.(*planir.TableFunction); !isTF {
		newRight, rightChanged = pruneSide(j.Right, needed)
	}
	if !leftChanged && !rightChanged {
		return n, false
	}

	schema := newLeft.Schema().Concat(newRight.Schema())
	if j.Kind == ast.JoinSemi || j.Kind == ast.JoinAnti {
		schema = newLeft.Schema()
	}
	newJoin := planir.NewJoin(j.Kind, newLeft, newRight, j.Condition, j.UsingCols, schema)
	return planir.NewProject(newJoin, p.Items, p.Schema()), true
}

// pruneSide wraps side in a Project keeping only the columns named in
// needed, preserving their order, or returns side unchanged if every
// column (or none) is needed.
func pruneSide(side planir.Node, needed map[string]bool) (planir.Node, bool) {
	cols := side.Schema().Columns
	if len(cols) == 0 {
		return side, false
	}
	kept := make([]types.Column, 0, len(cols))
	for _, c := range cols {
		if needed[strings.ToLower(c.Name)] {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(cols) {
		return side, false
	}
	items := make([]planir.ProjectItem, len(kept))
	for i, c := range kept {
		items[i] = planir.ProjectItem{Expr: &ast.ColumnRef{Name: c.Name}, Alias: c.Name}
	}
	return planir.NewProject(side, items, types.NewSchema(kept...)), true
}

// limitPushdownRule pushes a LIMIT (with no OFFSET) below a Project,
// since Project is a 1:1 row transform and the limit bound is still
// correct computed earlier (spec.md §5 "Limit push-down").
type limitPushdownRule struct{}

func (limitPushdownRule) Name() string { return "LimitPushdownThroughProject" }

func (limitPushdownRule) Apply(n planir.Node) (planir.Node, bool) {
	lo, ok := n.(*planir.LimitOffset)
	if !ok || lo.Offset != nil {
		return n, false
	}
	p, ok := lo.Input.(*planir.Project)
	if !ok {
		return n, false
	}
	pushed := planir.NewLimitOffset(p.Input, lo.Limit, nil)
	return planir.NewProject(pushed, p.Items, p.Schema()), true
}
