// Package storage implements the MVCC-backed table storage described in
// spec.md §4.6: row groups of append-only column chunks, a per-row MVCC
// header, version chains, and the visibility predicate snapshots use to
// decide which version of a row they see. It replaces the teacher's
// memstore (askorykh-goDB's internal/storage/memstore), which holds a
// table as a flat `[]sql.Row` under one mutex with no versioning at
// all — the shape (a table registry guarded by a RWMutex, Scan/Insert
// methods) carries over, but each row now gets a version chain instead
// of being overwritten or deleted in place.
package storage

import (
	"sync"

	"yachtsql/internal/errs"
	"yachtsql/internal/txn"
	"yachtsql/internal/types"
)

// rowGroupCapacity caps the row count of one RowGroup before a table
// opens a new one (spec.md §4.6: "~64K rows each").
const rowGroupCapacity = 1 << 16

// versionHeader is the MVCC header spec.md §3 attaches to every row
// version: {inserter_xid, deleter_xid, next_version}.
type versionHeader struct {
	InserterXid txn.Xid
	DeleterXid  txn.Xid
	NextVersion int // row index of the newer version within the row group it was appended to (that group is not recorded here), or -1
}

// RowGroup is one append-only chunk of a table: typed column chunks plus
// the parallel MVCC header array (spec.md §4.6).
type RowGroup struct {
	cols    []types.ColVector
	headers []versionHeader
}

func newRowGroup(schema *types.Schema) *RowGroup {
	cols := make([]types.ColVector, schema.Arity())
	for i, c := range schema.Columns {
		cols[i] = types.NewVector(c.Type)
	}
	return &RowGroup{cols: cols}
}

func (g *RowGroup) len() int { return len(g.headers) }

func (g *RowGroup) row(i int) []types.Value {
	out := make([]types.Value, len(g.cols))
	for c := range g.cols {
		out[c] = g.cols[c].Get(i)
	}
	return out
}

func (g *RowGroup) append(vals []types.Value, xid txn.Xid) int {
	for c, v := range vals {
		g.cols[c].Append(v)
	}
	idx := len(g.headers)
	g.headers = append(g.headers, versionHeader{InserterXid: xid, NextVersion: -1})
	return idx
}

// visible reports whether row i of this group is visible to snap under
// isolation, implementing spec.md §4.6's predicate: "V.inserter_xid
// committed at/before snapshot AND (V.deleter_xid missing OR not
// committed at/before snapshot)", with a dirty-read bypass for
// ReadUncommitted.
func (g *RowGroup) visible(i int, snap txn.Snapshot, isolation txn.Isolation, selfXid txn.Xid) bool {
	h := g.headers[i]
	if isolation == txn.ReadUncommitted {
		return h.DeleterXid == 0
	}
	insertedBySelf := h.InserterXid == selfXid
	insertedVisible := insertedBySelf || snap.CommittedBefore(h.InserterXid)
	if !insertedVisible {
		return false
	}
	if h.DeleterXid == 0 {
		return true
	}
	if h.DeleterXid == selfXid {
		return false
	}
	return !snap.CommittedBefore(h.DeleterXid)
}

// RowID identifies one physical row version within a table.
type RowID struct {
	Group int
	Row   int
}

// Table is the MVCC-versioned storage for one catalog table.
type Table struct {
	Name   string
	Schema *types.Schema

	mu     sync.RWMutex
	groups []*RowGroup
}

func NewTable(name string, schema *types.Schema) *Table {
	return &Table{Name: name, Schema: schema, groups: []*RowGroup{newRowGroup(schema)}}
}

// Store is the registry of MVCC tables for one Executor, the storage
// counterpart to internal/catalog.Catalog.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

func NewStore() *Store {
	return &Store{tables: make(map[string]*Table)}
}

func (s *Store) CreateTable(name string, schema *types.Schema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = NewTable(name, schema)
}

func (s *Store) Table(name string) (*Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return nil, errs.New(errs.ResolutionError, "relation %q has no storage", name)
	}
	return t, nil
}

// Insert appends a new row version stamped with tx's xid, returning the
// new row's RowID. Constraint checks (NOT NULL/UNIQUE/CHECK) are the
// caller's responsibility; storage only installs versions.
func (t *Table) Insert(tx *txn.Transaction, vals []types.Value) RowID {
	t.mu.Lock()
	defer t.mu.Unlock()
	g := t.groups[len(t.groups)-1]
	if g.len() >= rowGroupCapacity {
		g = newRowGroup(t.Schema)
		t.groups = append(t.groups, g)
	}
	idx := g.append(vals, tx.Xid)
	gi := len(t.groups) - 1
	tx.RecordWrite(txn.WriteKey{Table: t.Name, Row: packRowID(gi, idx)})
	return RowID{Group: gi, Row: idx}
}

// Update installs a new version of the row at old, stamping old's
// deleter_xid and linking its next_version to the new slot (spec.md
// §4.5 "UPDATE writes a new version ... stamps the old version's
// deleter_xid").
func (t *Table) Update(tx *txn.Transaction, old RowID, vals []types.Value) RowID {
	t.mu.Lock()
	defer t.mu.Unlock()
	oldGroup := t.groups[old.Group]
	oldGroup.headers[old.Row].DeleterXid = tx.Xid

	g := t.groups[len(t.groups)-1]
	if g.len() >= rowGroupCapacity {
		g = newRowGroup(t.Schema)
		t.groups = append(t.groups, g)
	}
	idx := g.append(vals, tx.Xid)
	gi := len(t.groups) - 1
	oldGroup.headers[old.Row].NextVersion = idx

	tx.RecordWrite(txn.WriteKey{Table: t.Name, Row: packRowID(old.Group, old.Row)})
	tx.RecordWrite(txn.WriteKey{Table: t.Name, Row: packRowID(gi, idx)})
	return RowID{Group: gi, Row: idx}
}

// Delete stamps the row's deleter_xid without installing a new version
// (spec.md §4.5 "DELETE stamps deleter_xid only").
func (t *Table) Delete(tx *txn.Transaction, id RowID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.groups[id.Group].headers[id.Row].DeleterXid = tx.Xid
	tx.RecordWrite(txn.WriteKey{Table: t.Name, Row: packRowID(id.Group, id.Row)})
}

// Row returns the current column values of the row at id, regardless of
// visibility; used by DML operators that already hold a RowID they just
// installed (for RETURNING) or are about to update/delete.
func (t *Table) Row(id RowID) []types.Value {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.groups[id.Group].row(id.Row)
}

// Scan calls yield for every row version visible to tx, in storage
// order, stopping early if yield returns false.
func (t *Table) Scan(tx *txn.Transaction, yield func(RowID, []types.Value) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for gi, g := range t.groups {
		for i := 0; i < g.len(); i++ {
			if !g.visible(i, tx.Snapshot, tx.Isolation, tx.Xid) {
				continue
			}
			if !yield(RowID{Group: gi, Row: i}, g.row(i)) {
				return
			}
		}
	}
}

// CheckUnique scans visible rows for an existing match on cols' values,
// used to enforce UNIQUE constraints (spec.md §4.5: "constraint checks
// run before version installation"). exclude, if non-nil, is a row id to
// skip, used by UPDATE checking uniqueness against every row but itself.
func (t *Table) CheckUnique(tx *txn.Transaction, colIdx []int, vals []types.Value, exclude *RowID) bool {
	conflict := false
	t.Scan(tx, func(id RowID, row []types.Value) bool {
		if exclude != nil && id == *exclude {
			return true
		}
		match := true
		for _, ci := range colIdx {
			if row[ci].IsNull || vals[ci].IsNull || !types.Equal(row[ci], vals[ci]) {
				match = false
				break
			}
		}
		if match {
			conflict = true
			return false
		}
		return true
	})
	return conflict
}

func packRowID(group, row int) int64 {
	return int64(group)<<32 | int64(row)
}
