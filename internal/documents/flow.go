package documents

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/manigandan-posana/vebops/internal/totals"
)

// Flow names a document type that carries a totals breakdown.
type Flow string

const (
	FlowService       Flow = "service"
	FlowInvoice       Flow = "invoice"
	FlowProforma      Flow = "proforma"
	FlowPurchaseOrder Flow = "purchase_order"
)

// ParseFlow validates a flow name.
func ParseFlow(value string) (Flow, error) {
	switch f := Flow(value); f {
	case FlowService, FlowInvoice, FlowProforma, FlowPurchaseOrder:
		return f, nil
	}
	return "", fmt.Errorf("documents: unknown flow %q", value)
}

// Sales reports whether the tenant's company issues the document.
func (f Flow) Sales() bool {
	return f != FlowPurchaseOrder
}

// Submittable reports whether the flow can be persisted through this service.
func (f Flow) Submittable() bool {
	return f == FlowService || f == FlowPurchaseOrder
}

// Policies holds per-flow totals settings.
type Policies struct {
	ServiceRounding       totals.Rounding
	InvoiceRounding       totals.Rounding
	PurchaseOrderRounding totals.Rounding
	// NominalRate overrides the engine default when Valid. A valid zero
	// means zero-rated supplies.
	NominalRate decimal.NullDecimal
}

// DefaultPolicies rounds sales documents to whole rupees and purchase orders to paise.
func DefaultPolicies() Policies {
	return Policies{
		ServiceRounding:       totals.RoundWholeRupee,
		InvoiceRounding:       totals.RoundWholeRupee,
		PurchaseOrderRounding: totals.RoundPaise,
		NominalRate:           decimal.NewNullDecimal(totals.DefaultNominalRate),
	}
}

// Options returns the engine options for flow.
func (p Policies) Options(flow Flow) totals.Options {
	opts := totals.Options{Rounding: totals.RoundPaise}
	switch flow {
	case FlowService:
		opts.Rounding = p.ServiceRounding
	case FlowInvoice, FlowProforma:
		opts.Rounding = p.InvoiceRounding
	case FlowPurchaseOrder:
		opts.Rounding = p.PurchaseOrderRounding
	}
	opts.NominalRate = p.NominalRate
	return opts
}
