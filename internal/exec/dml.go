package exec

import (
	"io"

	"yachtsql/internal/ast"
	"yachtsql/internal/catalog"
	"yachtsql/internal/errs"
	"yachtsql/internal/planir"
	"yachtsql/internal/storage"
	"yachtsql/internal/txn"
	"yachtsql/internal/types"
)

// DML runs an INSERT/UPDATE/DELETE to completion on Open, the way
// Aggregate materializes its groups eagerly: a statement with side
// effects can't be left half-applied across a paused pull loop. Next
// then drains whatever RETURNING produced, or nothing at all.
type DML struct {
	kind        planir.DMLKind
	table       *storage.Table
	def         *catalog.TableDef
	tx          *txn.Transaction
	columns     []string
	source      Operator
	assignments []ast.Assignment
	returning   []planir.ProjectItem
	schema      *types.Schema
	ec          *EvalCtx

	rows     []Row
	pos      int
	affected int
}

func NewDML(kind planir.DMLKind, table *storage.Table, def *catalog.TableDef, tx *txn.Transaction, columns []string, source Operator, assignments []ast.Assignment, returning []planir.ProjectItem, schema *types.Schema, ec *EvalCtx) *DML {
	return &DML{
		kind: kind, table: table, def: def, tx: tx, columns: columns,
		source: source, assignments: assignments, returning: returning,
		schema: schema, ec: ec,
	}
}

func (d *DML) Schema() *types.Schema { return d.schema }

// Affected reports the number of rows inserted, updated, or deleted.
// Valid only after Open has run to completion.
func (d *DML) Affected() int { return d.affected }

func (d *DML) Close() error {
	d.rows = nil
	if d.source != nil {
		return d.source.Close()
	}
	return nil
}

func (d *DML) Open() error {
	if d.source != nil {
		if err := d.source.Open(); err != nil {
			return err
		}
	}
	switch d.kind {
	case planir.DMLInsert:
		return d.runInsert()
	case planir.DMLUpdate:
		return d.runUpdate()
	case planir.DMLDelete:
		return d.runDelete()
	default:
		return errs.New(errs.InternalError, "unknown DML kind")
	}
}

func (d *DML) Next() (Row, error) {
	if d.pos >= len(d.rows) {
		return nil, io.EOF
	}
	r := d.rows[d.pos]
	d.pos++
	return r, nil
}

func (d *DML) runInsert() error {
	cols := d.columns
	if len(cols) == 0 {
		cols = d.def.Schema.Names()
	}
	provided := make(map[string]bool, len(cols))
	for _, c := range cols {
		provided[c] = true
	}

	for {
		row, err := d.source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		full := make([]types.Value, d.def.Schema.Arity())
		for i, c := range d.def.Schema.Columns {
			full[i] = types.NullValue(c.Type)
		}
		for i, name := range cols {
			idx := d.def.Schema.IndexOf(name)
			if idx < 0 {
				return errs.New(errs.ResolutionError, "column %q does not exist", name)
			}
			full[idx] = row[i]
		}
		for i, c := range d.def.Schema.Columns {
			if provided[c.Name] {
				continue
			}
			if def, ok := d.def.Defaults[c.Name]; ok {
				expr, ok := def.(ast.Expr)
				if !ok {
					continue
				}
				v, err := Eval(expr, nil, d.def.Schema, d.ec)
				if err != nil {
					return err
				}
				full[i] = v
			}
		}

		if err := d.checkConstraints(full, nil); err != nil {
			return err
		}

		d.table.Insert(d.tx, full)
		d.affected++
		if len(d.returning) > 0 {
			out, err := projectReturning(d.returning, full, d.def.Schema, d.ec)
			if err != nil {
				return err
			}
			d.rows = append(d.rows, out)
		}
	}
	return nil
}

func (d *DML) runUpdate() error {
	src, ok := d.source.(RowSource)
	if !ok {
		return errs.New(errs.InternalError, "UPDATE source is not a row-identifiable scan")
	}
	for {
		old, err := d.source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		id := src.RowID()

		updated := append([]types.Value{}, old...)
		for _, asg := range d.assignments {
			idx := d.def.Schema.IndexOf(asg.Column)
			if idx < 0 {
				return errs.New(errs.ResolutionError, "column %q does not exist", asg.Column)
			}
			v, err := Eval(asg.Value, old, d.def.Schema, d.ec)
			if err != nil {
				return err
			}
			updated[idx] = v
		}

		if err := d.checkConstraints(updated, &id); err != nil {
			return err
		}

		d.table.Update(d.tx, id, updated)
		d.affected++
		if len(d.returning) > 0 {
			out, err := projectReturning(d.returning, updated, d.def.Schema, d.ec)
			if err != nil {
				return err
			}
			d.rows = append(d.rows, out)
		}
	}
	return nil
}

func (d *DML) runDelete() error {
	src, ok := d.source.(RowSource)
	if !ok {
		return errs.New(errs.InternalError, "DELETE source is not a row-identifiable scan")
	}
	for {
		row, err := d.source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		id := src.RowID()

		if len(d.returning) > 0 {
			out, err := projectReturning(d.returning, row, d.def.Schema, d.ec)
			if err != nil {
				return err
			}
			d.rows = append(d.rows, out)
		}
		d.table.Delete(d.tx, id)
		d.affected++
	}
	return nil
}

// checkConstraints enforces NOT NULL, CHECK, and UNIQUE per
// catalog.Constraint (spec.md §3). exclude names a row being updated in
// place, so its own prior version doesn't collide with itself in a
// UNIQUE check.
func (d *DML) checkConstraints(row []types.Value, exclude *storage.RowID) error {
	for _, c := range d.def.Constraints {
		switch c.Kind {
		case catalog.ConstraintNotNull:
			for _, colName := range c.Columns {
				idx := d.def.Schema.IndexOf(colName)
				if idx >= 0 && row[idx].IsNull {
					return errs.New(errs.ConstraintViolation, "null value in column %q violates not-null constraint", colName)
				}
			}
		case catalog.ConstraintUnique:
			idx := make([]int, len(c.Columns))
			for i, colName := range c.Columns {
				idx[i] = d.def.Schema.IndexOf(colName)
			}
			if d.table.CheckUnique(d.tx, idx, row, exclude) {
				return errs.New(errs.ConstraintViolation, "duplicate key value violates unique constraint on %v", c.Columns)
			}
		case catalog.ConstraintCheck:
			expr, ok := c.Check.(ast.Expr)
			if !ok {
				continue
			}
			v, err := Eval(expr, row, d.def.Schema, d.ec)
			if err != nil {
				return err
			}
			if !types.BoolToBool3(v).SatisfiesCheck() {
				return errs.New(errs.ConstraintViolation, "new row violates check constraint")
			}
		}
	}
	return nil
}

func projectReturning(items []planir.ProjectItem, row []types.Value, schema *types.Schema, ec *EvalCtx) (Row, error) {
	out := make(Row, len(items))
	for i, it := range items {
		v, err := Eval(it.Expr, row, schema, ec)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
