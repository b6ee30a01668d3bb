package resolver

import (
	"strings"

	"yachtsql/internal/ast"
	"yachtsql/internal/errs"
	"yachtsql/internal/planir"
	"yachtsql/internal/types"
)

// resolveRelation binds one FROM-clause relation (a table, join,
// subquery, VALUES list, or table function) into a plan subtree and
// registers its output columns in s so sibling/parent expressions can
// reference them.
func (r *Resolver) resolveRelation(s *scope, rel ast.Relation) (planir.Node, error) {
	switch n := rel.(type) {
	case *ast.TableRef:
		if schema, ok := s.lookupCTE(n.Name); ok {
			alias := n.Alias
			if alias == "" {
				alias = n.Name
			}
			s.addTable(alias, schema)
			return planir.NewCTERef(n.Name, schema), nil
		}
		t, err := r.cat.Table(n.Name)
		if err != nil {
			return nil, err
		}
		alias := n.Alias
		if alias == "" {
			alias = n.Name
		}
		s.addTable(alias, t.Schema)
		return planir.NewScan(n.Name, t.Schema), nil

	case *ast.SubqueryRef:
		plan, err := r.resolveSelect(s, n.Query)
		if err != nil {
			return nil, err
		}
		s.addTable(n.Alias, plan.Schema())
		return plan, nil

	case *ast.ValuesRef:
		schema, err := r.valuesSchema(s, n.Rows)
		if err != nil {
			return nil, err
		}
		if len(n.Columns) > 0 {
			cols := make([]types.Column, len(schema.Columns))
			copy(cols, schema.Columns)
			for i, name := range n.Columns {
				if i < len(cols) {
					cols[i].Name = name
				}
			}
			schema = types.NewSchema(cols...)
		}
		s.addTable(n.Alias, schema)
		return planir.NewValues(n.Rows, schema), nil

	case *ast.TableFunctionRef:
		argTypes := make([]types.DataType, 0, len(n.Call.Args))
		for _, a := range n.Call.Args {
			t, err := r.typeOf(s, a)
			if err != nil {
				return nil, err
			}
			argTypes = append(argTypes, t)
		}
		schema := tableFunctionSchema(n.Call.Name)
		s.addTable(n.Alias, schema)
		return planir.NewTableFunction(n.Call, n.Lateral, schema), nil

	case *ast.JoinExpr:
		return r.resolveJoin(s, n)

	default:
		return nil, errs.New(errs.InternalError, "resolver: unhandled relation %T", rel)
	}
}

// tableFunctionSchema hard-codes the shape of the small set of table
// functions spec.md §8 exercises (e.g. generate_series); user-defined
// table functions would register their shape through the same
// FunctionRegistry as scalars once added.
func tableFunctionSchema(name string) *types.Schema {
	switch strings.ToUpper(name) {
	case "GENERATE_SERIES":
		return types.NewSchema(types.Column{Name: "generate_series", Type: types.Simple(types.Int64)})
	case "UNNEST":
		return types.NewSchema(types.Column{Name: "unnest", Type: types.Simple(types.JSON)})
	default:
		return types.NewSchema(types.Column{Name: "value", Type: types.Simple(types.JSON)})
	}
}

func (r *Resolver) resolveJoin(s *scope, j *ast.JoinExpr) (planir.Node, error) {
	left, err := r.resolveRelation(s, j.Left)
	if err != nil {
		return nil, err
	}
	right, err := r.resolveRelation(s, j.Right)
	if err != nil {
		return nil, err
	}
	var cond ast.Expr
	if j.Condition != nil {
		cond = j.Condition
	}
	schema := left.Schema().Concat(right.Schema())
	if j.Kind == ast.JoinSemi || j.Kind == ast.JoinAnti {
		schema = left.Schema()
	}
	return planir.NewJoin(j.Kind, left, right, cond, j.Using, schema), nil
}
