package types

// DefaultBatchSize is the target row count per RecordBatch (spec.md §3:
// "Batch size target: 1024-4096 rows").
const DefaultBatchSize = 2048

// ColVector is a dense, typed column array plus its null bitmap: the
// columnar storage unit RecordBatch is built from. INT64, FLOAT64, BOOL
// and STRING get an array-backed implementation; every other type falls
// back to ValueVector, a []Value-backed vector, which still satisfies the
// interface but forgoes the memory-density win.
type ColVector interface {
	Len() int
	Type() DataType
	IsNull(i int) bool
	Get(i int) Value
	Append(v Value)
}

// ValueVector is the fallback Vector for any type: a plain []Value.
// INT64, FLOAT64, BOOL and STRING columns use the denser typed vectors
// below; ValueVector backs every other column type.
type ValueVector struct {
	typ  DataType
	vals []Value
}

func NewValueVector(t DataType) *ValueVector { return &ValueVector{typ: t} }

func (v *ValueVector) Len() int          { return len(v.vals) }
func (v *ValueVector) Type() DataType    { return v.typ }
func (v *ValueVector) IsNull(i int) bool { return v.vals[i].IsNull }
func (v *ValueVector) Get(i int) Value   { return v.vals[i] }
func (v *ValueVector) Append(val Value)  { v.vals = append(v.vals, val) }

// Int64Vector is a dense int64 array with a parallel null bitmap.
type Int64Vector struct {
	vals  []int64
	nulls []bool
}

func NewInt64Vector() *Int64Vector { return &Int64Vector{} }

func (v *Int64Vector) Len() int          { return len(v.vals) }
func (v *Int64Vector) Type() DataType    { return Simple(Int64) }
func (v *Int64Vector) IsNull(i int) bool { return v.nulls[i] }
func (v *Int64Vector) Get(i int) Value {
	if v.nulls[i] {
		return NullValue(Simple(Int64))
	}
	return Int64Value(v.vals[i])
}
func (v *Int64Vector) Append(val Value) {
	if val.IsNull {
		v.vals = append(v.vals, 0)
		v.nulls = append(v.nulls, true)
		return
	}
	v.vals = append(v.vals, val.Int64())
	v.nulls = append(v.nulls, false)
}
func (v *Int64Vector) Raw() []int64 { return v.vals }

// Float64Vector is a dense float64 array with a parallel null bitmap.
type Float64Vector struct {
	vals  []float64
	nulls []bool
}

func NewFloat64Vector() *Float64Vector { return &Float64Vector{} }

func (v *Float64Vector) Len() int          { return len(v.vals) }
func (v *Float64Vector) Type() DataType    { return Simple(Float64) }
func (v *Float64Vector) IsNull(i int) bool { return v.nulls[i] }
func (v *Float64Vector) Get(i int) Value {
	if v.nulls[i] {
		return NullValue(Simple(Float64))
	}
	return Float64Value(v.vals[i])
}
func (v *Float64Vector) Append(val Value) {
	if val.IsNull {
		v.vals = append(v.vals, 0)
		v.nulls = append(v.nulls, true)
		return
	}
	v.vals = append(v.vals, val.Float64())
	v.nulls = append(v.nulls, false)
}

// BoolVector is a dense bool array with a parallel null bitmap.
type BoolVector struct {
	vals  []bool
	nulls []bool
}

func NewBoolVector() *BoolVector { return &BoolVector{} }

func (v *BoolVector) Len() int          { return len(v.vals) }
func (v *BoolVector) Type() DataType    { return Simple(Bool) }
func (v *BoolVector) IsNull(i int) bool { return v.nulls[i] }
func (v *BoolVector) Get(i int) Value {
	if v.nulls[i] {
		return NullValue(Simple(Bool))
	}
	return BoolValue(v.vals[i])
}
func (v *BoolVector) Append(val Value) {
	if val.IsNull {
		v.vals = append(v.vals, false)
		v.nulls = append(v.nulls, true)
		return
	}
	v.vals = append(v.vals, val.Bool())
	v.nulls = append(v.nulls, false)
}

// StringVector is a dense string array with a parallel null bitmap.
type StringVector struct {
	vals  []string
	nulls []bool
}

func NewStringVector() *StringVector { return &StringVector{} }

func (v *StringVector) Len() int          { return len(v.vals) }
func (v *StringVector) Type() DataType    { return Simple(String) }
func (v *StringVector) IsNull(i int) bool { return v.nulls[i] }
func (v *StringVector) Get(i int) Value {
	if v.nulls[i] {
		return NullValue(Simple(String))
	}
	return StringValue(v.vals[i])
}
func (v *StringVector) Append(val Value) {
	if val.IsNull {
		v.vals = append(v.vals, "")
		v.nulls = append(v.nulls, true)
		return
	}
	v.vals = append(v.vals, val.Str())
	v.nulls = append(v.nulls, false)
}

// NewVector allocates the densest Vector implementation available for
// t, falling back to ValueVector for composite types.
func NewVector(t DataType) ColVector {
	switch t.Tag {
	case Int64:
		return NewInt64Vector()
	case Float64:
		return NewFloat64Vector()
	case Bool:
		return NewBoolVector()
	case String:
		return NewStringVector()
	default:
		return NewValueVector(t)
	}
}

// RecordBatch is an ordered list of named, equal-length columns: the
// unit of execution (spec.md §3). Invariant I2: len(Columns) ==
// Schema.Arity().
type RecordBatch struct {
	Schema *Schema
	Cols   []ColVector
}

func NewRecordBatch(schema *Schema) *RecordBatch {
	cols := make([]ColVector, schema.Arity())
	for i, c := range schema.Columns {
		cols[i] = NewVector(c.Type)
	}
	return &RecordBatch{Schema: schema, Cols: cols}
}

// NumRows returns the batch's row count, i.e. the length shared by all
// columns.
func (b *RecordBatch) NumRows() int {
	if len(b.Cols) == 0 {
		return 0
	}
	return b.Cols[0].Len()
}

func (b *RecordBatch) NumCols() int { return len(b.Cols) }

// AppendRow appends one row, given in schema column order.
func (b *RecordBatch) AppendRow(vals []Value) {
	for i, v := range vals {
		b.Cols[i].Append(v)
	}
}

// Row materializes row i as a []Value, for callers that read a batch
// row by row rather than column by column (Slice, result printing).
func (b *RecordBatch) Row(i int) []Value {
	out := make([]Value, len(b.Cols))
	for c := range b.Cols {
		out[c] = b.Cols[c].Get(i)
	}
	return out
}

// Slice returns a new RecordBatch containing rows [lo, hi) of b.
func (b *RecordBatch) Slice(lo, hi int) *RecordBatch {
	out := NewRecordBatch(b.Schema)
	for i := lo; i < hi; i++ {
		out.AppendRow(b.Row(i))
	}
	return out
}
