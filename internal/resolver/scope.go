// Package resolver binds a parsed ast.Statement against a Catalog,
// producing a planir.Node tree with every column reference checked and
// every expression's static type known (spec.md §4.2, §5). It also
// rewrites GROUP BY ordinal/alias references. A correlated reference
// binds through the enclosing scope chain; it is not recorded as a
// correlation edge, and the optimizer does no decorrelation.
package resolver

import (
	"strings"

	"yachtsql/internal/ast"
	"yachtsql/internal/errs"
	"yachtsql/internal/types"
)

// scope is one level of name resolution: the columns visible to an
// expression, plus a link to the enclosing scope for correlated
// subqueries (spec.md §4.5 "LATERAL" and scalar subquery correlation).
type scope struct {
	parent  *scope
	columns []scopeColumn
	// ctes holds CTE output schemas visible to FROM-clause lookups
	// in this scope and nested scopes, keyed by lowercased name.
	ctes map[string]*types.Schema
}

type scopeColumn struct {
	table string // table alias, "" if anonymous (e.g. a VALUES column)
	name  string
	typ   types.DataType
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, ctes: map[string]*types.Schema{}}
}

func (s *scope) addTable(alias string, schema *types.Schema) {
	for _, c := range schema.Columns {
		s.columns = append(s.columns, scopeColumn{table: alias, name: c.Name, typ: c.Type})
	}
}

func (s *scope) addColumn(name string, typ types.DataType) {
	s.columns = append(s.columns, scopeColumn{name: name, typ: typ})
}

func (s *scope) lookupCTE(name string) (*types.Schema, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if sc, ok := cur.ctes[strings.ToLower(name)]; ok {
			return sc, true
		}
	}
	return nil, false
}

// resolveColumn finds a (possibly qualified) column reference, searching
// this scope and then enclosing scopes (correlation). It returns the
// matching type or a ResolutionError (unknown or ambiguous column).
func (s *scope) resolveColumn(ref *ast.ColumnRef) (types.DataType, error) {
	for cur := s; cur != nil; cur = cur.parent {
		var match *scopeColumn
		ambiguous := false
		for i := range cur.columns {
			c := &cur.columns[i]
			if !strings.EqualFold(c.name, ref.Name) {
				continue
			}
			if ref.Qualifier != "" && !strings.EqualFold(c.table, ref.Qualifier) {
				continue
			}
			if match != nil {
				ambiguous = true
			}
			match = c
		}
		if ambiguous {
			return types.DataType{}, errs.New(errs.ResolutionError, "column reference %q is ambiguous", ref.Name)
		}
		if match != nil {
			return match.typ, nil
		}
	}
	return types.DataType{}, errs.New(errs.ResolutionError, "column %q does not exist", qualifiedName(ref))
}

func qualifiedName(ref *ast.ColumnRef) string {
	if ref.Qualifier == "" {
		return ref.Name
	}
	return ref.Qualifier + "." + ref.Name
}

// columnTypeFunc adapts scope.resolveColumn to the shape
// functions.Registry.ExprReturnType expects.
func (s *scope) columnTypeFunc() func(*ast.ColumnRef) (types.DataType, error) {
	return func(ref *ast.ColumnRef) (types.DataType, error) { return s.resolveColumn(ref) }
}

func (r *Resolver) typeOf(s *scope, e ast.Expr) (types.DataType, error) {
	return r.funcs.ExprReturnType(e, s.columnTypeFunc())
}
