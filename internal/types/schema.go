package types

import "golang.org/x/text/cases"

// foldCase returns name normalized the way every dialect in scope folds
// unquoted identifiers for lookup. A fresh Caser per call since Caser
// values carry per-transform state and aren't meant to be shared across
// goroutines.
func foldCase(name string) string { return cases.Fold().String(name) }

// Column is one entry of a Schema: spec.md §3 "(name, DataType,
// nullable)".
type Column struct {
	Name     string
	Type     DataType
	Nullable bool
}

// Schema is an ordered sequence of columns with case-folded lookup, so
// `SELECT Id FROM t` resolves a column declared `id` the way every SQL
// dialect in scope requires for unquoted identifiers.
type Schema struct {
	Columns []Column
	index   map[string]int
}

func NewSchema(cols ...Column) *Schema {
	s := &Schema{Columns: cols}
	s.reindex()
	return s
}

func (s *Schema) reindex() {
	s.index = make(map[string]int, len(s.Columns))
	for i, c := range s.Columns {
		s.index[foldCase(c.Name)] = i
	}
}

func (s *Schema) Arity() int { return len(s.Columns) }

// IndexOf returns the position of name (case-folded), or -1.
func (s *Schema) IndexOf(name string) int {
	if s.index == nil {
		s.reindex()
	}
	if i, ok := s.index[foldCase(name)]; ok {
		return i
	}
	return -1
}

// Append returns a new schema with an additional column, used by
// Project/Join when building an output schema incrementally.
func (s *Schema) Append(c Column) *Schema {
	cols := append(append([]Column{}, s.Columns...), c)
	return NewSchema(cols...)
}

// Concat returns a new schema that is the concatenation of s and o, used
// by Join's output schema.
func (s *Schema) Concat(o *Schema) *Schema {
	cols := append(append([]Column{}, s.Columns...), o.Columns...)
	return NewSchema(cols...)
}

// CompatibleWith reports whether two schemas are compatible per spec.md
// §3: same arity, and each column pair coercion-compatible.
func (s *Schema) CompatibleWith(o *Schema) bool {
	if s.Arity() != o.Arity() {
		return false
	}
	for i := range s.Columns {
		if !Coercible(s.Columns[i].Type, o.Columns[i].Type) && !Coercible(o.Columns[i].Type, s.Columns[i].Type) {
			return false
		}
	}
	return true
}

// Names returns the column names in order, used as the column list of an
// INSERT that names none.
func (s *Schema) Names() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}
