package totals

import (
	"strings"

	"golang.org/x/text/cases"
)

// Regime identifies which GST components apply to a document.
type Regime string

const (
	// RegimeAuto derives the regime from the jurisdiction.
	RegimeAuto Regime = ""
	// RegimeIntraState splits the nominal rate into CGST and SGST.
	RegimeIntraState Regime = "intra_state"
	// RegimeInterState charges the full nominal rate as IGST.
	RegimeInterState Regime = "inter_state"
)

// Valid reports whether r is one of the known regimes.
func (r Regime) Valid() bool {
	switch r {
	case RegimeAuto, RegimeIntraState, RegimeInterState:
		return true
	}
	return false
}

// Jurisdiction pairs the seller's registered state with the counterparty's.
// SellerState has no default and must be supplied by the caller.
type Jurisdiction struct {
	SellerState string
	BuyerState  string
}

// NormalizeState trims, case folds and collapses internal whitespace.
func NormalizeState(state string) string {
	fields := strings.Fields(state)
	if len(fields) == 0 {
		return ""
	}
	return cases.Fold().String(strings.Join(fields, " "))
}

// SameState reports whether both names refer to the same state after normalization.
func SameState(a, b string) bool {
	return NormalizeState(a) == NormalizeState(b)
}

// ResolveRegime returns the regime implied by the jurisdiction.
func ResolveRegime(j Jurisdiction) Regime {
	if SameState(j.SellerState, j.BuyerState) {
		return RegimeIntraState
	}
	return RegimeInterState
}
