package exec

import "yachtsql/internal/types"

// Drain runs op to completion and collects every row it produces,
// exported for the public yachtsql package to call once a physical plan
// has been compiled to an Operator tree.
func Drain(op Operator) ([]Row, *types.Schema, error) {
	return drainAll(op)
}
