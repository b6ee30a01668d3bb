// Package ast defines the parser's output: a dialect-tagged abstract
// syntax tree (spec.md §4.1). Dialect-specific constructs are typed
// variants (DatePart, JoinAsof, TupleLiteral, ...), never free strings,
// so the resolver and optimizer never have to re-parse a fragment to
// know what it means.
package ast

import "yachtsql/internal/errs"

// Dialect mirrors lexer.Dialect; duplicated here (rather than imported)
// so that ast has no dependency on the lexer package, matching the
// layering convention the teacher's internal/sql package used of
// keeping AST node definitions free of lexer types.
type Dialect int

const (
	PostgreSQL Dialect = iota
	BigQuery
	ClickHouse
)

// Node is the common interface of every AST node; it carries nothing
// but a marker so type switches stay exhaustive.
type Node interface {
	node()
}

// Statement is the common interface for top-level statements.
type Statement interface {
	Node
	stmtNode()
}

// Expr is the common interface for scalar/row expressions.
type Expr interface {
	Node
	exprNode()
	Span() errs.Span
}

// ExprBase is embedded by every concrete Expr node to carry its source
// span. It is exported (unlike a private base struct) so parser code in
// other packages can set it directly in a struct literal:
// ast.Literal{ExprBase: ast.Spanned(tok.Span), ...}.
type ExprBase struct {
	At errs.Span
}

func Spanned(sp errs.Span) ExprBase { return ExprBase{At: sp} }

func (b ExprBase) Span() errs.Span { return b.At }
func (ExprBase) node()             {}
func (ExprBase) exprNode()         {}
