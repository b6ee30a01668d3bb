// Package physical turns an optimized logical plan into a physical
// plan: the same shape, annotated with the concrete algorithm each
// operator should run (spec.md §5 "physical planner"). It does no cost
// estimation beyond the handful of structural heuristics spelled out
// below — the optimizer has already done the work a cost-based planner
// would otherwise redo.
package physical

import (
	"yachtsql/internal/ast"
	"yachtsql/internal/planir"
	"yachtsql/internal/types"
)

// JoinStrategy selects the physical join algorithm.
type JoinStrategy int

const (
	NestedLoopJoin JoinStrategy = iota
	HashJoinStrategy
	MergeJoinStrategy
	// LateralApply drives a LATERAL FROM-item: the inner side is
	// rebuilt and re-opened once per outer row rather than
	// materialized ahead of time (spec.md §4.5 "LATERAL").
	LateralApply
)

// AggStrategy selects the physical aggregation algorithm.
type AggStrategy int

const (
	HashAggregate AggStrategy = iota
	SortAggregate
)

// Node is a physical plan node. Most variants wrap the logical node they
// were built from (Logical) so the executor can still read the original
// expressions without a second representation of every field.
type Node interface {
	Schema() *types.Schema
	Children() []Node
	node()
}

type Scan struct{ *planir.Scan }
type Values struct{ *planir.Values }
type Filter struct {
	*planir.Filter
	Input Node
}
type Project struct {
	*planir.Project
	Input Node
}
type Join struct {
	*planir.Join
	Strategy    JoinStrategy
	Left, Right Node
}
type Aggregate struct {
	*planir.Aggregate
	Strategy AggStrategy
	Input    Node
}
type Window struct {
	*planir.Window
	Input Node
}
type Sort struct {
	*planir.Sort
	Input Node
}
type TopN struct {
	Items  []ast.OrderItem
	N      ast.Expr
	Offset ast.Expr
	Input  Node
	schema *types.Schema
}
type LimitOffset struct {
	*planir.LimitOffset
	Input Node
}
type SetOp struct {
	*planir.SetOp
	Left, Right Node
}
type Distinct struct {
	*planir.Distinct
	Input Node
}
type TableFunction struct{ *planir.TableFunction }
type CTERef struct{ *planir.CTERef }
type WithScan struct {
	*planir.WithScan
	CTEs []NamedPlan
	Body Node
}
type NamedPlan struct {
	Name          string
	Plan          Node
	Recursive     bool
	RecursiveTerm Node
}
type DML struct {
	*planir.DML
	Source Node
}

func (n *Scan) Children() []Node          { return nil }
func (n *Values) Children() []Node        { return nil }
func (n *Filter) Children() []Node        { return []Node{n.Input} }
func (n *Project) Children() []Node       { return []Node{n.Input} }
func (n *Join) Children() []Node          { return []Node{n.Left, n.Right} }
func (n *Aggregate) Children() []Node     { return []Node{n.Input} }
func (n *Window) Children() []Node        { return []Node{n.Input} }
func (n *Sort) Children() []Node          { return []Node{n.Input} }
func (n *TopN) Children() []Node          { return []Node{n.Input} }
func (n *LimitOffset) Children() []Node   { return []Node{n.Input} }
func (n *SetOp) Children() []Node         { return []Node{n.Left, n.Right} }
func (n *Distinct) Children() []Node      { return []Node{n.Input} }
func (n *TableFunction) Children() []Node { return nil }
func (n *CTERef) Children() []Node        { return nil }
func (n *WithScan) Children() []Node {
	out := make([]Node, 0, len(n.CTEs)+1)
	for _, c := range n.CTEs {
		out = append(out, c.Plan)
	}
	return append(out, n.Body)
}
func (n *DML) Children() []Node {
	if n.Source != nil {
		return []Node{n.Source}
	}
	return nil
}

func (n *TopN) Schema() *types.Schema { return n.schema }

func (*Scan) node()          {}
func (*Values) node()        {}
func (*Filter) node()        {}
func (*Project) node()       {}
func (*Join) node()          {}
func (*Aggregate) node()     {}
func (*Window) node()        {}
func (*Sort) node()          {}
func (*TopN) node()          {}
func (*LimitOffset) node()   {}
func (*SetOp) node()         {}
func (*Distinct) node()      {}
func (*TableFunction) node() {}
func (*CTERef) node()        {}
func (*WithScan) node()      {}
func (*DML) node()           {}

// Plan converts a logical plan into a physical plan, choosing join and
// aggregate strategies per node (spec.md §5).
func Plan(n planir.Node) Node {
	switch v := n.(type) {
	case *planir.Scan:
		return &Scan{v}
	case *planir.Values:
		return &Values{v}
	case *planir.Filter:
		return &Filter{v, Plan(v.Input)}
	case *planir.Project:
		return &Project{v, Plan(v.Input)}
	case *planir.Join:
		return &Join{v, chooseJoinStrategy(v), Plan(v.Left), Plan(v.Right)}
	case *planir.Aggregate:
		return &Aggregate{v, chooseAggStrategy(v), Plan(v.Input)}
	case *planir.Window:
		return &Window{v, Plan(v.Input)}
	case *planir.Sort:
		return &Sort{v, Plan(v.Input)}
	case *planir.LimitOffset:
		if sort, ok := v.Input.(*planir.Sort); ok {
			return &TopN{Items: sort.Items, N: v.Limit, Offset: v.Offset, Input: Plan(sort.Input), schema: v.Schema()}
		}
		return &LimitOffset{v, Plan(v.Input)}
	case *planir.SetOp:
		return &SetOp{v, Plan(v.Left), Plan(v.Right)}
	case *planir.Distinct:
		return &Distinct{v, Plan(v.Input)}
	case *planir.TableFunction:
		return &TableFunction{v}
	case *planir.CTERef:
		return &CTERef{v}
	case *planir.WithScan:
		ctes := make([]NamedPlan, len(v.CTEs))
		for i, c := range v.CTEs {
			np := NamedPlan{Name: c.Name, Plan: Plan(c.Plan), Recursive: c.Recursive}
			if c.RecursiveTerm != nil {
				np.RecursiveTerm = Plan(c.RecursiveTerm)
			}
			ctes[i] = np
		}
		return &WithScan{v, ctes, Plan(v.Body)}
	case *planir.DML:
		var src Node
		if v.Source != nil {
			src = Plan(v.Source)
		}
		return &DML{v, src}
	default:
		panic("physical: unhandled logical node type")
	}
}

// chooseJoinStrategy picks LateralApply when the right side is a LATERAL
// table function, NestedLoopJoin for cross joins, MergeJoin for ASOF
// joins, HashJoin for USING joins and for conditions made only of
// AND-ed equalities (ANY joins included), and NestedLoopJoin for any
// other condition (spec.md §5 "HashJoin / NestedLoopJoin / MergeJoin").
func chooseJoinStrategy(j *planir.Join) JoinStrategy {
	if isLateralNode(j.Right) {
		return LateralApply
	}
	if j.Kind == ast.JoinCross {
		return NestedLoopJoin
	}
	if j.Kind == ast.JoinAsof {
		return MergeJoinStrategy
	}
	if len(j.UsingCols) > 0 {
		return HashJoinStrategy
	}
	if isEqualityCondition(j.Condition) {
		return HashJoinStrategy
	}
	return NestedLoopJoin
}

// isLateralNode reports whether n is a FROM-item that must see the
// values of the row on the other side of its join rather than a fixed
// schema, e.g. `LATERAL generate_series(1, t.n)` (spec.md §4.5).
func isLateralNode(n planir.Node) bool {
	tf, ok := n.(*planir.TableFunction)
	return ok && tf.Lateral
}

func isEqualityCondition(e ast.Expr) bool {
	b, ok := e.(*ast.BinaryExpr)
	if !ok {
		return false
	}
	if b.Op == "AND" {
		return isEqualityCondition(b.Left) && isEqualityCondition(b.Right)
	}
	return b.Op == "="
}

// chooseAggStrategy always picks HashAggregate; SortAggregate exists as
// a physical alternative (spec.md §5) for when the input arrives
// pre-sorted on the grouping keys, which the optimizer does not yet
// detect, so HashAggregate stays the safe default.
func chooseAggStrategy(a *planir.Aggregate) AggStrategy {
	return HashAggregate
}
