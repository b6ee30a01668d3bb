// Package planfmt renders logical and physical plan trees to an
// indented text form for EXPLAIN (spec.md's distillation elides this;
// the original Rust engine exposes an equivalent plan printer, and
// SPEC_FULL.md keeps it in scope). It only reads the plan; it never
// runs one.
package planfmt

import (
	"fmt"
	"strings"

	"yachtsql/internal/ast"
	"yachtsql/internal/physical"
	"yachtsql/internal/planir"
)

// Logical renders a logical plan tree, one node per line, children
// indented two spaces under their parent.
func Logical(n planir.Node) string {
	var b strings.Builder
	writeLogical(&b, n, 0)
	return b.String()
}

// Physical renders a physical plan tree the same way, additionally
// naming the chosen join/aggregate strategy at each Join/Aggregate node.
func Physical(n physical.Node) string {
	var b strings.Builder
	writePhysical(&b, n, 0)
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
}

func writeLogical(b *strings.Builder, n planir.Node, depth int) {
	indent(b, depth)
	b.WriteString(describeLogical(n))
	b.WriteByte('\n')
	for _, c := range n.Children() {
		writeLogical(b, c, depth+1)
	}
}

func describeLogical(n planir.Node) string {
	switch v := n.(type) {
	case *planir.Scan:
		return fmt.Sprintf("Scan(%s)", v.Table)
	case *planir.Values:
		return fmt.Sprintf("Values(%d rows)", len(v.Rows))
	case *planir.Filter:
		return fmt.Sprintf("Filter(%s)", ExprString(v.Predicate))
	case *planir.Project:
		return fmt.Sprintf("Project(%s)", projectItemsString(v.Items))
	case *planir.Join:
		return fmt.Sprintf("Join(%s, %s)", joinKindName(v.Kind), joinConditionString(v))
	case *planir.Aggregate:
		return fmt.Sprintf("Aggregate(group by [%s], %s)", exprListString(v.GroupBy), aggregateItemsString(v.Aggregates))
	case *planir.Window:
		return fmt.Sprintf("Window(%s)", windowItemsString(v.Items))
	case *planir.Sort:
		return fmt.Sprintf("Sort(%s)", orderItemsString(v.Items))
	case *planir.LimitOffset:
		return fmt.Sprintf("LimitOffset(limit=%s, offset=%s)", exprOrNone(v.Limit), exprOrNone(v.Offset))
	case *planir.SetOp:
		return fmt.Sprintf("SetOp(%s%s)", setOpKindName(v.Kind), allSuffix(v.All))
	case *planir.Distinct:
		return "Distinct"
	case *planir.TableFunction:
		lateral := ""
		if v.Lateral {
			lateral = ", lateral"
		}
		return fmt.Sprintf("TableFunction(%s%s)", ExprString(v.Call), lateral)
	case *planir.CTERef:
		return fmt.Sprintf("CTERef(%s)", v.Name)
	case *planir.WithScan:
		names := make([]string, len(v.CTEs))
		for i, c := range v.CTEs {
			if c.Recursive {
				names[i] = c.Name + " [recursive]"
			} else {
				names[i] = c.Name
			}
		}
		return fmt.Sprintf("WithScan(%s)", strings.Join(names, ", "))
	case *planir.DML:
		return fmt.Sprintf("DML(%s %s)", dmlKindName(v.Kind), v.Table)
	default:
		return fmt.Sprintf("%T", v)
	}
}

func writePhysical(b *strings.Builder, n physical.Node, depth int) {
	indent(b, depth)
	b.WriteString(describePhysical(n))
	b.WriteByte('\n')
	for _, c := range n.Children() {
		writePhysical(b, c, depth+1)
	}
}

func describePhysical(n physical.Node) string {
	switch v := n.(type) {
	case *physical.Scan:
		return fmt.Sprintf("Scan(%s)", v.Table)
	case *physical.Values:
		return fmt.Sprintf("Values(%d rows)", len(v.Rows))
	case *physical.Filter:
		return fmt.Sprintf("Filter(%s)", ExprString(v.Predicate))
	case *physical.Project:
		return fmt.Sprintf("Project(%s)", projectItemsString(v.Items))
	case *physical.Join:
		return fmt.Sprintf("%s(%s, %s)", joinStrategyName(v.Strategy), joinKindName(v.Kind), joinConditionString(v.Join))
	case *physical.Aggregate:
		return fmt.Sprintf("%s(group by [%s], %s)", aggStrategyName(v.Strategy), exprListString(v.GroupBy), aggregateItemsString(v.Aggregates))
	case *physical.Window:
		return fmt.Sprintf("Window(%s)", windowItemsString(v.Items))
	case *physical.Sort:
		return fmt.Sprintf("Sort(%s)", orderItemsString(v.Items))
	case *physical.TopN:
		return fmt.Sprintf("TopN(%s, limit=%s, offset=%s)", orderItemsString(v.Items), exprOrNone(v.N), exprOrNone(v.Offset))
	case *physical.LimitOffset:
		return fmt.Sprintf("LimitOffset(limit=%s, offset=%s)", exprOrNone(v.Limit), exprOrNone(v.Offset))
	case *physical.SetOp:
		return fmt.Sprintf("SetOp(%s%s)", setOpKindName(v.Kind), allSuffix(v.All))
	case *physical.Distinct:
		return "Distinct"
	case *physical.TableFunction:
		lateral := ""
		if v.Lateral {
			lateral = ", lateral"
		}
		return fmt.Sprintf("TableFunction(%s%s)", ExprString(v.Call), lateral)
	case *physical.CTERef:
		return fmt.Sprintf("CTERef(%s)", v.Name)
	case *physical.WithScan:
		names := make([]string, len(v.CTEs))
		for i, c := range v.CTEs {
			if c.Recursive {
				names[i] = c.Name + " [recursive]"
			} else {
				names[i] = c.Name
			}
		}
		return fmt.Sprintf("WithScan(%s)", strings.Join(names, ", "))
	case *physical.DML:
		return fmt.Sprintf("DML(%s %s)", dmlKindName(v.Kind), v.Table)
	default:
		return fmt.Sprintf("%T", v)
	}
}

func joinStrategyName(s physical.JoinStrategy) string {
	switch s {
	case physical.HashJoinStrategy:
		return "HashJoin"
	case physical.MergeJoinStrategy:
		return "MergeJoin"
	case physical.LateralApply:
		return "LateralApply"
	default:
		return "NestedLoopJoin"
	}
}

func aggStrategyName(s physical.AggStrategy) string {
	if s == physical.SortAggregate {
		return "SortAggregate"
	}
	return "HashAggregate"
}

func joinKindName(k ast.JoinKind) string {
	switch k {
	case ast.JoinInner:
		return "INNER"
	case ast.JoinLeft:
		return "LEFT"
	case ast.JoinRight:
		return "RIGHT"
	case ast.JoinFull:
		return "FULL"
	case ast.JoinCross:
		return "CROSS"
	case ast.JoinAsof:
		return "ASOF"
	case ast.JoinAny:
		return "ANY"
	default:
		return "INNER"
	}
}

func joinConditionString(j *planir.Join) string {
	if len(j.UsingCols) > 0 {
		return fmt.Sprintf("USING (%s)", strings.Join(j.UsingCols, ", "))
	}
	if j.Condition == nil {
		return "true"
	}
	return ExprString(j.Condition)
}

func setOpKindName(k ast.SetOpKind) string {
	switch k {
	case ast.SetOpUnion:
		return "UNION"
	case ast.SetOpIntersect:
		return "INTERSECT"
	case ast.SetOpExcept:
		return "EXCEPT"
	default:
		return "UNION"
	}
}

func allSuffix(all bool) string {
	if all {
		return " ALL"
	}
	return ""
}

func dmlKindName(k planir.DMLKind) string {
	switch k {
	case planir.DMLInsert:
		return "INSERT"
	case planir.DMLUpdate:
		return "UPDATE"
	case planir.DMLDelete:
		return "DELETE"
	default:
		return "?"
	}
}

func projectItemsString(items []planir.ProjectItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s AS %s", ExprString(it.Expr), it.Alias)
	}
	return strings.Join(parts, ", ")
}

func aggregateItemsString(items []planir.AggregateItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		distinct := ""
		if it.Distinct {
			distinct = "DISTINCT "
		}
		parts[i] = fmt.Sprintf("%s(%s%s) AS %s", it.FuncName, distinct, exprListString(it.Args), it.Alias)
	}
	return strings.Join(parts, ", ")
}

func windowItemsString(items []planir.WindowItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s(%s) OVER (...) AS %s", it.FuncName, exprListString(it.Args), it.Alias)
	}
	return strings.Join(parts, ", ")
}

func orderItemsString(items []ast.OrderItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		dir := "ASC"
		if it.Desc {
			dir = "DESC"
		}
		parts[i] = fmt.Sprintf("%s %s", ExprString(it.Expr), dir)
	}
	return strings.Join(parts, ", ")
}

func exprListString(exprs []ast.Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = ExprString(e)
	}
	return strings.Join(parts, ", ")
}

func exprOrNone(e ast.Expr) string {
	if e == nil {
		return "none"
	}
	return ExprString(e)
}
