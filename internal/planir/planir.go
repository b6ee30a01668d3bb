// Package planir defines the logical intermediate representation the
// resolver builds and the optimizer rewrites (spec.md §5). Every node
// carries its own output Schema so a rule never has to re-derive types
// from scratch when it splices in a replacement subtree.
package planir

import (
	"yachtsql/internal/ast"
	"yachtsql/internal/types"
)

// Node is a logical plan node. Nodes form a DAG rather than a strict
// tree so that CTEs referenced more than once share one subtree
// (spec.md §4.5 "materialized once per statement execution").
type Node interface {
	Schema() *types.Schema
	Children() []Node
	node()
}

type base struct {
	schema *types.Schema
}

func (b *base) Schema() *types.Schema { return b.schema }

// Scan reads a base table by name.
type Scan struct {
	base
	Table string
}

func (n *Scan) Children() []Node { return nil }
func (*Scan) node()              {}

func NewScan(table string, schema *types.Schema) *Scan {
	return &Scan{base: base{schema: schema}, Table: table}
}

// Values materializes a literal row set, e.g. a standalone VALUES
// clause or a CTE-free row constructor.
type Values struct {
	base
	Rows [][]ast.Expr
}

func (n *Values) Children() []Node { return nil }
func (*Values) node()              {}

func NewValues(rows [][]ast.Expr, schema *types.Schema) *Values {
	return &Values{base: base{schema: schema}, Rows: rows}
}

// Filter keeps rows for which Predicate evaluates true under
// three-valued logic (spec.md §9).
type Filter struct {
	base
	Input     Node
	Predicate ast.Expr
}

func (n *Filter) Children() []Node { return []Node{n.Input} }
func (*Filter) node()              {}

func NewFilter(input Node, predicate ast.Expr) *Filter {
	return &Filter{base: base{schema: input.Schema()}, Input: input, Predicate: predicate}
}

// ProjectItem is one output column of a Project node.
type ProjectItem struct {
	Expr  ast.Expr
	Alias string
}

// Project computes a new row shape from its input.
type Project struct {
	base
	Input Node
	Items []ProjectItem
}

func (n *Project) Children() []Node { return []Node{n.Input} }
func (*Project) node()              {}

func NewProject(input Node, items []ProjectItem, schema *types.Schema) *Project {
	return &Project{base: base{schema: schema}, Input: input, Items: items}
}

// JoinKind mirrors ast.JoinKind at the plan level.
type JoinKind = ast.JoinKind

// Join combines two inputs. Condition is nil for a cross join or a
// USING join (in which case UsingCols is populated instead).
type Join struct {
	base
	Kind      JoinKind
	Left      Node
	Right     Node
	Condition ast.Expr
	UsingCols []string
}

func (n *Join) Children() []Node { return []Node{n.Left, n.Right} }
func (*Join) node()              {}

func NewJoin(kind JoinKind, left, right Node, cond ast.Expr, using []string, schema *types.Schema) *Join {
	return &Join{base: base{schema: schema}, Kind: kind, Left: left, Right: right, Condition: cond, UsingCols: using}
}

// AggregateItem is one aggregate/window-free output column of an
// Aggregate node: a call like SUM(x) or COUNT(*).
type AggregateItem struct {
	FuncName string
	Args     []ast.Expr
	Distinct bool
	Alias    string
}

// Aggregate groups rows by GroupBy and computes Aggregates per group.
// An empty GroupBy still produces exactly one output row over empty
// input (spec.md §4.5 "aggregate with no GROUP BY").
type Aggregate struct {
	base
	Input      Node
	GroupBy    []ast.Expr
	Aggregates []AggregateItem
}

func (n *Aggregate) Children() []Node { return []Node{n.Input} }
func (*Aggregate) node()              {}

func NewAggregate(input Node, groupBy []ast.Expr, aggs []AggregateItem, schema *types.Schema) *Aggregate {
	return &Aggregate{base: base{schema: schema}, Input: input, GroupBy: groupBy, Aggregates: aggs}
}

// WindowItem is one window function output column.
type WindowItem struct {
	FuncName string
	Args     []ast.Expr
	Spec     *ast.WindowSpec
	Alias    string
}

// Window computes one or more window functions over Input without
// collapsing rows, appending WindowItems as trailing columns.
type Window struct {
	base
	Input Node
	Items []WindowItem
}

func (n *Window) Children() []Node { return []Node{n.Input} }
func (*Window) node()              {}

func NewWindow(input Node, items []WindowItem, schema *types.Schema) *Window {
	return &Window{base: base{schema: schema}, Input: input, Items: items}
}

// Sort orders Input by Items.
type Sort struct {
	base
	Input Node
	Items []ast.OrderItem
}

func (n *Sort) Children() []Node { return []Node{n.Input} }
func (*Sort) node()              {}

func NewSort(input Node, items []ast.OrderItem) *Sort {
	return &Sort{base: base{schema: input.Schema()}, Input: input, Items: items}
}

// LimitOffset truncates and skips rows. Limit/Offset of nil means
// unbounded/zero respectively.
type LimitOffset struct {
	base
	Input  Node
	Limit  ast.Expr
	Offset ast.Expr
}

func (n *LimitOffset) Children() []Node { return []Node{n.Input} }
func (*LimitOffset) node()              {}

func NewLimitOffset(input Node, limit, offset ast.Expr) *LimitOffset {
	return &LimitOffset{base: base{schema: input.Schema()}, Input: input, Limit: limit, Offset: offset}
}

// SetOpKind mirrors ast.SetOpKind.
type SetOpKind = ast.SetOpKind

// SetOp is UNION/INTERSECT/EXCEPT [ALL] over two inputs of a compatible
// schema (spec.md §4.5).
type SetOp struct {
	base
	Kind  SetOpKind
	All   bool
	Left  Node
	Right Node
}

func (n *SetOp) Children() []Node { return []Node{n.Left, n.Right} }
func (*SetOp) node()              {}

func NewSetOp(kind SetOpKind, all bool, left, right Node) *SetOp {
	return &SetOp{base: base{schema: left.Schema()}, Kind: kind, All: all, Left: left, Right: right}
}

// Distinct removes duplicate rows, the plan shape for `SELECT DISTINCT`
// once it's not folded into Aggregate.
type Distinct struct {
	base
	Input Node
}

func (n *Distinct) Children() []Node { return []Node{n.Input} }
func (*Distinct) node()              {}

func NewDistinct(input Node) *Distinct {
	return &Distinct{base: base{schema: input.Schema()}, Input: input}
}

// TableFunction invokes a table-valued function, optionally LATERAL
// against columns of a sibling relation already in scope.
type TableFunction struct {
	base
	Call    *ast.FuncCall
	Lateral bool
}

func (n *TableFunction) Children() []Node { return nil }
func (*TableFunction) node()              {}

func NewTableFunction(call *ast.FuncCall, lateral bool, schema *types.Schema) *TableFunction {
	return &TableFunction{base: base{schema: schema}, Call: call, Lateral: lateral}
}

// CTERef is a reference to a named subtree materialized once by the
// enclosing WithScan (spec.md §4.5).
type CTERef struct {
	base
	Name string
}

func (n *CTERef) Children() []Node { return nil }
func (*CTERef) node()              {}

func NewCTERef(name string, schema *types.Schema) *CTERef {
	return &CTERef{base: base{schema: schema}, Name: name}
}

// WithScan wraps a plan whose evaluation must first materialize a set
// of named CTEs, including recursive ones (NamedPlan.RecursiveTerm below
// holds the recursive member).
type WithScan struct {
	base
	CTEs []NamedPlan
	Body Node
}

type NamedPlan struct {
	Name      string
	Plan      Node
	Recursive bool
	// RecursiveTerm holds the recursive member's plan when Recursive is
	// true; Plan then holds only the non-recursive (anchor) member.
	RecursiveTerm Node
}

func (n *WithScan) Children() []Node {
	out := make([]Node, 0, len(n.CTEs)+1)
	for _, c := range n.CTEs {
		out = append(out, c.Plan)
		if c.RecursiveTerm != nil {
			out = append(out, c.RecursiveTerm)
		}
	}
	return append(out, n.Body)
}
func (*WithScan) node() {}

func NewWithScan(ctes []NamedPlan, body Node) *WithScan {
	return &WithScan{base: base{schema: body.Schema()}, CTEs: ctes, Body: body}
}

// DMLKind distinguishes the three DML operations sharing the DML node.
type DMLKind int

const (
	DMLInsert DMLKind = iota
	DMLUpdate
	DMLDelete
)

// DML is INSERT/UPDATE/DELETE, expressed uniformly so the executor
// walks one node type for all three (spec.md §4.4).
type DML struct {
	base
	Kind        DMLKind
	Table       string
	Columns     []string
	Source      Node // INSERT ... SELECT / VALUES source, or Update/Delete's filtered scan
	Assignments []ast.Assignment
	Returning   []ProjectItem
}

func (n *DML) Children() []Node {
	if n.Source != nil {
		return []Node{n.Source}
	}
	return nil
}
func (*DML) node() {}

func NewDML(kind DMLKind, table string, columns []string, source Node, assignments []ast.Assignment, returning []ProjectItem, schema *types.Schema) *DML {
	return &DML{
		base: base{schema: schema}, Kind: kind, Table: table, Columns: columns,
		Source: source, Assignments: assignments, Returning: returning,
	}
}
