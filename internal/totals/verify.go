package totals

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnreconciled is returned when the grand total differs from its components by more than a paisa.
	ErrUnreconciled = errors.New("totals: grand total does not reconcile")
	// ErrMixedRegime indicates intra-state and inter-state tax were both applied.
	ErrMixedRegime = errors.New("totals: both intra-state and inter-state tax applied")
	// ErrSplitMismatch indicates CGST and SGST differ.
	ErrSplitMismatch = errors.New("totals: cgst and sgst differ")
	// ErrTaxOnZeroBase indicates tax was charged on an empty document.
	ErrTaxOnZeroBase = errors.New("totals: tax charged on zero base")
	// ErrNegativeAmount indicates a component went below zero.
	ErrNegativeAmount = errors.New("totals: negative amount")
)

var tolerance = decimal.New(1, -2)

// Verify checks a computed breakdown against the reconciliation and regime
// rules. All violations are joined into the returned error.
func Verify(b Breakdown) error {
	var errs []error

	for _, v := range []decimal.Decimal{
		b.RawTotal, b.Subtotal, b.DiscountSavings, b.Transport,
		b.CGST, b.SGST, b.IGST, b.GrandTotal,
	} {
		if v.IsNegative() {
			errs = append(errs, ErrNegativeAmount)
			break
		}
	}

	sum := b.Subtotal.Add(b.Transport).Add(b.CGST).Add(b.SGST).Add(b.IGST)
	if b.GrandTotal.Sub(sum).Abs().GreaterThan(tolerance) {
		errs = append(errs, ErrUnreconciled)
	}

	intra := b.CGST.IsPositive() || b.SGST.IsPositive() || b.CGSTRate.IsPositive()
	inter := b.IGST.IsPositive() || b.IGSTRate.IsPositive()
	if intra && inter {
		errs = append(errs, ErrMixedRegime)
	}
	if !b.CGST.Equal(b.SGST) || !b.CGSTRate.Equal(b.SGSTRate) {
		errs = append(errs, ErrSplitMismatch)
	}

	base := b.Subtotal.Add(b.Transport)
	if base.IsZero() && b.TotalTax().IsPositive() {
		errs = append(errs, ErrTaxOnZeroBase)
	}

	return errors.Join(errs...)
}
