package types

// coerceRank implements the coercion-distance lattice described in
// spec.md §4.2: smaller integers → larger integers → decimal → float;
// date → timestamp; any → JSON. Lower rank coerces to higher rank.
// Types outside the numeric/temporal ladders only coerce to themselves
// or to JSON.
func coerceRank(t Tag) (int, bool) {
	switch t {
	case Int64:
		return 0, true
	case DecimalTag:
		return 1, true
	case Float64:
		return 2, true
	default:
		return 0, false
	}
}

// Coercible reports whether a value of type from can be implicitly
// coerced to type to.
func Coercible(from, to DataType) bool {
	if from.Equal(to) {
		return true
	}
	if to.Tag == JSON {
		return true
	}
	if from.Tag == Date && to.Tag == Timestamp {
		return true
	}
	if from.Tag == Timestamp && to.Tag == TimestampTZ {
		return true
	}
	fr, fok := coerceRank(from.Tag)
	tr, tok := coerceRank(to.Tag)
	if fok && tok {
		return fr <= tr
	}
	return false
}

// CoercionDistance returns the lattice distance used to break ties
// between overloads during function/operator resolution (spec.md §4.2).
// A distance of 0 means an exact match; -1 means "not coercible".
func CoercionDistance(from, to DataType) int {
	if from.Equal(to) {
		return 0
	}
	if !Coercible(from, to) {
		return -1
	}
	fr, _ := coerceRank(from.Tag)
	tr, _ := coerceRank(to.Tag)
	if tr >= fr {
		return tr - fr + 1
	}
	return 1
}

// WidestNumeric returns the common numeric type two operand types
// coerce to, used by arithmetic operators and SUM/AVG.
func WidestNumeric(a, b DataType) DataType {
	ar, aok := coerceRank(a.Tag)
	br, bok := coerceRank(b.Tag)
	if !aok {
		return b
	}
	if !bok {
		return a
	}
	if ar >= br {
		return a
	}
	return b
}
