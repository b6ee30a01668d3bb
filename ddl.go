package yachtsql

import (
	"yachtsql/internal/ast"
	"yachtsql/internal/catalog"
	"yachtsql/internal/errs"
	"yachtsql/internal/functions"
	"yachtsql/internal/types"
)

// execCreateTable handles CREATE TABLE directly rather than through the
// resolver/exec pipeline: DDL mutates the catalog and storage layer's
// table registry, neither of which is expressed as a plan node
// (internal/resolver.Resolve returns ok=false for it, by design).
func (e *Executor) execCreateTable(s *ast.CreateTableStmt) (*Result, error) {
	if _, err := e.cat.Table(s.Table); err == nil {
		if s.IfNotExists {
			return ackResult(0), nil
		}
		return nil, errs.New(errs.ConstraintViolation, "relation %q already exists", s.Table)
	}

	cols := make([]types.Column, len(s.Columns))
	var constraints []catalog.Constraint
	defaults := map[string]any{}
	for i, cd := range s.Columns {
		dt, err := functions.TypeNameToDataType(cd.TypeName, cd.TypeArgs)
		if err != nil {
			return nil, err
		}
		cols[i] = types.Column{Name: cd.Name, Type: dt, Nullable: !cd.NotNull}
		if cd.NotNull {
			constraints = append(constraints, catalog.Constraint{Kind: catalog.ConstraintNotNull, Columns: []string{cd.Name}})
		}
		if cd.Unique {
			constraints = append(constraints, catalog.Constraint{Kind: catalog.ConstraintUnique, Columns: []string{cd.Name}})
		}
		if cd.Check != nil {
			constraints = append(constraints, catalog.Constraint{Kind: catalog.ConstraintCheck, Columns: []string{cd.Name}, Check: cd.Check})
		}
		if cd.Default != nil {
			defaults[cd.Name] = cd.Default
		}
	}

	schema := types.NewSchema(cols...)
	def := &catalog.TableDef{Name: s.Table, Schema: schema, Constraints: constraints, Defaults: defaults}
	if err := e.cat.CreateTable(def, false); err != nil {
		return nil, err
	}
	e.store.CreateTable(s.Table, schema)
	return ackResult(0), nil
}

func (e *Executor) execCreateIndex(s *ast.CreateIndexStmt) (*Result, error) {
	idx := &catalog.IndexDef{Name: s.Name, Table: s.Table, Columns: s.Columns, Unique: s.Unique}
	if err := e.cat.CreateIndex(idx); err != nil {
		return nil, err
	}
	return ackResult(0), nil
}
