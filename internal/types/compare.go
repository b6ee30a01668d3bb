package types

import (
	"bytes"
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// stringCollator orders STRING values the locale-aware way ORDER BY
// needs (spec.md §3), rather than a raw byte comparison that would sort
// "Z" before "a". A Collator is not safe for concurrent use, so callers
// go through compareStrings, which serializes access with collatorMu.
var (
	collatorMu     sync.Mutex
	stringCollator = collate.New(language.Und)
)

func compareStrings(a, b string) int {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return stringCollator.CompareString(a, b)
}

// Equal implements SQL equality for two non-NULL values of comparable
// types. Callers must check IsNull themselves: per spec.md §7, NULL
// participates in three-valued logic, not plain equality.
func Equal(a, b Value) bool {
	return Compare(a, b) == 0
}

// Compare orders two non-NULL values of the same underlying tag. It is
// used by ORDER BY, MergeJoin, and window framing. Composite types
// compare element-wise / field-wise.
func Compare(a, b Value) int {
	switch a.Type.Tag {
	case Bool:
		return boolCmp(a.boolVal, b.boolVal)
	case Int64:
		return int64Cmp(a.intVal, b.intVal)
	case Float64:
		return float64Cmp(a.floatVal, b.floatVal)
	case DecimalTag:
		return a.decimal.Cmp(b.decimal)
	case String:
		return compareStrings(a.String(), b.String())
	case Bytes, JSON:
		return bytes.Compare([]byte(a.String()), []byte(b.String()))
	case Date, Time, Timestamp, TimestampTZ:
		if a.timeVal.Before(b.timeVal) {
			return -1
		}
		if a.timeVal.After(b.timeVal) {
			return 1
		}
		return 0
	case UUIDTag:
		return bytes.Compare(a.uuidVal[:], b.uuidVal[:])
	case Array:
		av, bv := a.Array(), b.Array()
		n := min(len(av), len(bv))
		for i := 0; i < n; i++ {
			if c := compareNullable(av[i], bv[i]); c != 0 {
				return c
			}
		}
		return int64Cmp(int64(len(av)), int64(len(bv)))
	case Struct:
		af, bf := a.Struct().Fields, b.Struct().Fields
		for i := range af {
			if c := compareNullable(af[i], bf[i]); c != 0 {
				return c
			}
		}
		return 0
	default:
		return 0
	}
}

func compareNullable(a, b Value) int {
	if a.IsNull && b.IsNull {
		return 0
	}
	if a.IsNull {
		return -1
	}
	if b.IsNull {
		return 1
	}
	return Compare(a, b)
}

func boolCmp(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

func int64Cmp(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func float64Cmp(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Hash returns a 64-bit hash of v, used by HashJoin's build side,
// HashAggregate's group keys, and window PARTITION BY hashing. Per
// spec.md §4.5, NULL never matches NULL under equi-join semantics, but
// it still needs a stable hash bucket for grouping (GROUP BY treats NULL
// as one group), so IsNull values hash to a fixed sentinel.
func Hash(v Value) uint64 {
	if v.IsNull {
		return 0x9e3779b97f4a7c15
	}
	var buf [8]byte
	switch v.Type.Tag {
	case Bool:
		if v.boolVal {
			return 1
		}
		return 2
	case Int64:
		binary.LittleEndian.PutUint64(buf[:], uint64(v.intVal))
		return xxhash.Sum64(buf[:])
	case Float64:
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(v.floatVal)))
		return xxhash.Sum64(buf[:])
	case DecimalTag:
		return xxhash.Sum64String(v.decimal.String())
	case String, Bytes, JSON:
		return xxhash.Sum64String(v.String())
	case UUIDTag:
		return xxhash.Sum64(v.uuidVal[:])
	case Date, Time, Timestamp, TimestampTZ:
		binary.LittleEndian.PutUint64(buf[:], uint64(v.timeVal.UnixNano()))
		return xxhash.Sum64(buf[:])
	case Array:
		h := xxhash.New()
		for _, e := range v.Array() {
			b := make([]byte, 8)
			binary.LittleEndian.PutUint64(b, Hash(e))
			_, _ = h.Write(b)
		}
		return h.Sum64()
	default:
		return xxhash.Sum64String(v.String())
	}
}

// HashRow hashes a tuple of values, used for composite group/join keys.
func HashRow(vals []Value) uint64 {
	h := xxhash.New()
	buf := make([]byte, 8)
	for _, v := range vals {
		binary.LittleEndian.PutUint64(buf, Hash(v))
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
