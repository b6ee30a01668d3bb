// Package exec implements the pull-based (Volcano-style) execution
// engine described in spec.md §5: every physical plan node becomes an
// Operator whose Open/Next/Close lifecycle drives rows upward from
// scans to the statement's final result.
package exec

import "yachtsql/internal/types"

// Row is one materialized tuple, in the column order of its owning
// Operator's Schema. The executor works row-at-a-time rather than in
// full RecordBatch vectors internally — batches are assembled only at
// the boundary handed back to the public API (spec.md §3's "Batch size
// target" governs that boundary, not every internal operator).
type Row []types.Value

// Operator is the pull-based iterator every physical node compiles to.
type Operator interface {
	Open() error
	// Next returns the next row, or (nil, io.EOF) when exhausted.
	Next() (Row, error)
	Close() error
	Schema() *types.Schema
}
