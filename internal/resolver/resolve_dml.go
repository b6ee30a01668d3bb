package resolver

import (
	"yachtsql/internal/ast"
	"yachtsql/internal/errs"
	"yachtsql/internal/planir"
	"yachtsql/internal/types"
)

func (r *Resolver) resolveInsert(ins *ast.InsertStmt) (planir.Node, error) {
	t, err := r.cat.Table(ins.Table)
	if err != nil {
		return nil, err
	}
	columns := ins.Columns
	if len(columns) == 0 {
		columns = t.Schema.Names()
	}
	for _, c := range columns {
		if t.Schema.IndexOf(c) < 0 {
			return nil, errs.New(errs.ResolutionError, "column %q does not exist on %q", c, ins.Table)
		}
	}

	s := newScope(nil)
	var source planir.Node
	if ins.Query != nil {
		source, err = r.resolveSelect(s, ins.Query)
		if err != nil {
			return nil, err
		}
		if source.Schema().Arity() != len(columns) {
			return nil, errs.New(errs.DimensionMismatch, "INSERT has %d target columns but source has %d", len(columns), source.Schema().Arity())
		}
	} else {
		valSchema, err := r.valuesSchema(s, ins.Values)
		if err != nil {
			return nil, err
		}
		if valSchema.Arity() != len(columns) && len(ins.Values) > 0 {
			return nil, errs.New(errs.DimensionMismatch, "INSERT has %d target columns but VALUES has %d", len(columns), valSchema.Arity())
		}
		source = planir.NewValues(ins.Values, valSchema)
	}

	s.addTable(ins.Table, t.Schema)
	returning, retSchema, err := r.resolveReturning(s, ins.Returning, t.Schema)
	if err != nil {
		return nil, err
	}

	return planir.NewDML(planir.DMLInsert, ins.Table, columns, source, nil, returning, retSchema), nil
}

func (r *Resolver) resolveUpdate(upd *ast.UpdateStmt) (planir.Node, error) {
	t, err := r.cat.Table(upd.Table)
	if err != nil {
		return nil, err
	}
	s := newScope(nil)
	s.addTable(upd.Table, t.Schema)
	s.addTable("", t.Schema)

	for _, a := range upd.Assignments {
		if t.Schema.IndexOf(a.Column) < 0 {
			return nil, errs.New(errs.ResolutionError, "column %q does not exist on %q", a.Column, upd.Table)
		}
		if _, err := r.typeOf(s, a.Value); err != nil {
			return nil, err
		}
	}

	var source planir.Node = planir.NewScan(upd.Table, t.Schema)
	if upd.Where != nil {
		if _, err := r.typeOf(s, upd.Where); err != nil {
			return nil, err
		}
		source = planir.NewFilter(source, upd.Where)
	}

	returning, retSchema, err := r.resolveReturning(s, upd.Returning, t.Schema)
	if err != nil {
		return nil, err
	}

	return planir.NewDML(planir.DMLUpdate, upd.Table, nil, source, upd.Assignments, returning, retSchema), nil
}

func (r *Resolver) resolveDelete(del *ast.DeleteStmt) (planir.Node, error) {
	t, err := r.cat.Table(del.Table)
	if err != nil {
		return nil, err
	}
	s := newScope(nil)
	s.addTable(del.Table, t.Schema)
	s.addTable("", t.Schema)

	var source planir.Node = planir.NewScan(del.Table, t.Schema)
	if del.Where != nil {
		if _, err := r.typeOf(s, del.Where); err != nil {
			return nil, err
		}
		source = planir.NewFilter(source, del.Where)
	}

	returning, retSchema, err := r.resolveReturning(s, del.Returning, t.Schema)
	if err != nil {
		return nil, err
	}

	return planir.NewDML(planir.DMLDelete, del.Table, nil, source, nil, returning, retSchema), nil
}

// resolveReturning binds a RETURNING clause (SPEC_FULL.md §12); an empty
// clause yields a nil schema, signalling "no rows to report" to the
// executor's DML operator.
func (r *Resolver) resolveReturning(s *scope, items []ast.SelectItem, tableSchema *types.Schema) ([]planir.ProjectItem, *types.Schema, error) {
	if len(items) == 0 {
		return nil, nil, nil
	}
	var out []planir.ProjectItem
	var cols []types.Column
	for _, it := range items {
		if it.Star {
			for _, c := range tableSchema.Columns {
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
