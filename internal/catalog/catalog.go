// Package catalog holds the in-memory description of every table and
// advisory index known to an Executor: schemas, constraints, and the
// information_schema-shaped introspection views that Executor.Tables and
// Executor.Columns return (SPEC_FULL.md §12).
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"yachtsql/internal/errs"
	"yachtsql/internal/types"
)

// Constraint is a single per-table constraint: NOT NULL, UNIQUE, or
// CHECK over Columns. The exec package's DML operator evaluates them at
// insert/update time (spec.md §3).
type Constraint struct {
	Kind    ConstraintKind
	Columns []string
	// Check holds the predicate of a CHECK constraint as its parsed
	// ast.Expr. It is an opaque any here to avoid a dependency cycle with
	// the exec package (which imports catalog for schema lookups); exec
	// type-asserts it back to ast.Expr.
	Check any
}

type ConstraintKind int

const (
	ConstraintNotNull ConstraintKind = iota
	ConstraintUnique
	ConstraintCheck
)

// IndexDef describes an advisory index: it accelerates lookups but its
// presence or absence never changes query results (spec.md §3).
type IndexDef struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
}

// TableDef is the catalog's record of one table: its schema, declared
// constraints, and default expressions keyed by column name.
type TableDef struct {
	Name        string
	Schema      *types.Schema
	Constraints []Constraint
	Defaults    map[string]any // column name -> default expr (an ast.Expr, held opaquely)
	Indexes     []*IndexDef
}

// Catalog is the registry of tables and indexes for one Executor. All
// methods are safe for concurrent use; DDL takes the write lock, every
// other lookup takes the read lock, mirroring how the storage package
// guards its row groups.
type Catalog struct {
	mu     sync.RWMutex
	tables map[string]*TableDef
}

func New() *Catalog {
	return &Catalog{tables: make(map[string]*TableDef)}
}

func (c *Catalog) CreateTable(def *TableDef, ifNotExists bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tables[def.Name]; ok {
		if ifNotExists {
			return nil
		}
		return errs.New(errs.ConstraintViolation, "relation %q already exists", def.Name)
	}
	c.tables[def.Name] = def
	return nil
}

func (c *Catalog) Table(name string) (*TableDef, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[name]
	if !ok {
		return nil, errs.New(errs.ResolutionError, "relation %q does not exist", name)
	}
	return t, nil
}

// CreateIndex registers an advisory index on an existing table.
func (c *Catalog) CreateIndex(idx *IndexDef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[idx.Table]
	if !ok {
		return errs.New(errs.ResolutionError, "relation %q does not exist", idx.Table)
	}
	for _, col := range idx.Columns {
		if t.Schema.IndexOf(col) < 0 {
			return errs.New(errs.ResolutionError, "column %q does not exist on %q", col, idx.Table)
		}
	}
	t.Indexes = append(t.Indexes, idx)
	return nil
}

// Tables returns every table definition, sorted by name, in the shape of
// an information_schema.tables listing (SPEC_FULL.md §12).
func (c *Catalog) Tables() []*TableDef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*TableDef, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ColumnsView renders information_schema.columns-shaped rows: one per
// (table, column) pair, ordered by table name then ordinal position.
func (c *Catalog) ColumnsView() *types.RecordBatch {
	schema := types.NewSchema(
		types.Column{Name: "table_name", Type: types.Simple(types.String)},
		types.Column{Name: "column_name", Type: types.Simple(types.String)},
		types.Column{Name: "ordinal_position", Type: types.Simple(types.Int64)},
		types.Column{Name: "data_type", Type: types.Simple(types.String)},
		types.Column{Name: "is_nullable", Type: types.Simple(types.Bool)},
	)
	batch := types.NewRecordBatch(schema)
	for _, t := range c.Tables() {
		for i, col := range t.Schema.Columns {
			batch.AppendRow([]types.Value{
				types.StringValue(t.Name),
				types.StringValue(col.Name),
				types.Int64Value(int64(i + 1)),
				types.StringValue(fmt.Sprint(col.Type)),
				types.BoolValue(col.Nullable),
			})
		}
	}
	return batch
}
