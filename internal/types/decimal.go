package types

import (
	"github.com/cockroachdb/apd/v3"

	"yachtsql/internal/errs"
)

// Decimal is YachtSQL's DECIMAL(p,s) payload, backed by apd.Decimal the
// way roach88-nysm's CUE-backed compiler pulls in cockroachdb/apd for
// arbitrary-precision arithmetic rather than hand-rolling big.Rat math.
type Decimal struct {
	Val       apd.Decimal
	Precision int
	Scale     int
}

var decimalCtx = apd.BaseContext.WithPrecision(38)

// NewDecimal parses a decimal literal's text form into a Decimal with
// the given precision/scale.
func NewDecimal(text string, precision, scale int) (Decimal, error) {
	d, _, err := apd.NewFromString(text)
	if err != nil {
		return Decimal{}, errs.New(errs.TypeMismatch, "invalid decimal literal %q: %v", text, err)
	}
	return Decimal{Val: *d, Precision: precision, Scale: scale}, nil
}

func DecimalFromInt64(v int64, precision, scale int) Decimal {
	d := apd.New(v, 0)
	return Decimal{Val: *d, Precision: precision, Scale: scale}
}

func (d Decimal) String() string { return d.Val.String() }

func decimalOp(op func(d, a, b *apd.Decimal) (apd.Condition, error), a, b Decimal) (Decimal, error) {
	var res apd.Decimal
	_, err := op(&res, &a.Val, &b.Val)
	if err != nil {
		return Decimal{}, errs.Wrap(errs.OutOfRange, err, "decimal arithmetic overflow")
	}
	precision := a.Precision
	if b.Precision > precision {
		precision = b.Precision
	}
	scale := a.Scale
	if b.Scale > scale {
		scale = b.Scale
	}
	return Decimal{Val: res, Precision: precision, Scale: scale}, nil
}

func (a Decimal) Add(b Decimal) (Decimal, error) {
	return decimalOp(func(d, x, y *apd.Decimal) (apd.Condition, error) { return decimalCtx.Add(d, x, y) }, a, b)
}

func (a Decimal) Sub(b Decimal) (Decimal, error) {
	return decimalOp(func(d, x, y *apd.Decimal) (apd.Condition, error) { return decimalCtx.Sub(d, x, y) }, a, b)
}

func (a Decimal) Mul(b Decimal) (Decimal, error) {
	return decimalOp(func(d, x, y *apd.Decimal) (apd.Condition, error) { return decimalCtx.Mul(d, x, y) }, a, b)
}

func (a Decimal) Div(b Decimal) (Decimal, error) {
	if b.Val.IsZero() {
		return Decimal{}, errs.New(errs.DivisionByZero, "division by zero")
	}
	return decimalOp(func(d, x, y *apd.Decimal) (apd.Condition, error) { return decimalCtx.Quo(d, x, y) }, a, b)
}

// Cmp compares two decimals; -1, 0, 1 like apd.Decimal.Cmp.
func (a Decimal) Cmp(b Decimal) int {
	return a.Val.Cmp(&b.Val)
}
