package exec

import (
	"io"

	"yachtsql/internal/ast"
	"yachtsql/internal/types"
)

// Apply drives spec.md §4.5's LATERAL nested-loop join: for each row
// pulled from the left/outer child, it binds that row into the shared
// EvalCtx's outer-row stack and rebuilds the right/inner child from
// scratch, so an expression evaluated while opening or draining the
// inner side (a LATERAL table function's arguments, or a correlated
// subquery buried in its WHERE clause) sees the outer row's actual
// values. Join.Open's build-once materialization can't do this: here
// the right side's rows depend on which left row is current, not just
// on its schema.
type Apply struct {
	kind       ast.JoinKind
	left       Operator
	buildRight func() (Operator, error)

	leftSchema, rightSchema, schema *types.Schema
	ec                              *EvalCtx

	right       Operator
	curLeft     Row
	haveLeft    bool
	leftMatched bool
}

// NewApply builds an Apply operator. rightSchema is the inner side's
// output schema, used to pad a LEFT JOIN LATERAL's unmatched outer rows
// with NULLs; schema is the operator's own (concatenated) output shape.
func NewApply(kind ast.JoinKind, left Operator, buildRight func() (Operator, error), rightSchema, schema *types.Schema, ec *EvalCtx) *Apply {
	return &Apply{
		kind: kind, left: left, buildRight: buildRight,
		leftSchema: left.Schema(), rightSchema: rightSchema, schema: schema, ec: ec,
	}
}

func (a *Apply) Schema() *types.Schema { return a.schema }

func (a *Apply) Open() error {
	a.haveLeft = false
	return a.left.Open()
}

func (a *Apply) Close() error {
	if a.right != nil {
		if err := a.right.Close(); err != nil {
			return err
		}
		a.right = nil
	}
	return a.left.Close()
}

func (a *Apply) Next() (Row, error) {
	for {
		if !a.haveLeft {
			row, err := a.left.Next()
			if err == io.EOF {
				return nil, io.EOF
			}
			if err != nil {
				return nil, err
			}
			a.curLeft = row
			a.haveLeft = true
			a.leftMatched = false

			if err := a.reopenRight(); err != nil {
				return nil, err
			}
		}

		a.ec.PushOuter(a.curLeft, a.leftSchema)
		rightRow, err := a.right.Next()
		a.ec.PopOuter()
		if err == io.EOF {
			a.haveLeft = false
			if !a.leftMatched && a.kind == ast.JoinLeft {
				return concatRow(a.curLeft, nullRow(a.rightSchema)), nil
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		a.leftMatched = true
		return concatRow(a.curLeft, rightRow), nil
	}
}

// reopenRight rebuilds the inner operator from its physical plan and
// opens it with a.curLeft bound as the outer row, so a LATERAL table
// function's arguments (or a nested correlated subquery) resolve
// against this outer row rather than the previous one.
func (a *Apply) reopenRight() error {
	if a.right != nil {
		if err := a.right.Close(); err != nil {
			return err
		}
	}
	right, err := a.buildRight()
	if err != nil {
		return err
	}
	a.ec.PushOuter(a.curLeft, a.leftSchema)
	err = right.Open()
	a.ec.PopOuter()
	if err != nil {
		return err
	}
	a.right = right
	return nil
}
