package documents

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/manigandan-posana/vebops/internal/kits"
	"github.com/manigandan-posana/vebops/internal/lineitem"
	"github.com/manigandan-posana/vebops/internal/totals"
)

// Party is the counterparty of a document: the buyer on sales documents and
// the supplier on purchase orders.
type Party struct {
	Name    string `json:"name" validate:"required,max=200"`
	State   string `json:"state,omitempty" validate:"max=64"`
	GSTIN   string `json:"gstin,omitempty" validate:"omitempty,alphanum,len=15"`
	Address string `json:"address,omitempty" validate:"max=500"`
}

// Request is a document body accepted by Preview and Submit.
type Request interface {
	draft(ctx context.Context, s *Service, flow Flow) (draft, error)
}

// ServiceRequest is the body of service, invoice and proforma documents.
type ServiceRequest struct {
	Buyer     Party                 `json:"buyer"`
	Items     []lineitem.ServiceRow `json:"items" validate:"max=500,dive"`
	Kits      []kits.Ref            `json:"kits,omitempty" validate:"max=50,dive"`
	Transport lineitem.Number       `json:"transport"`
	GSTRate   *lineitem.Number      `json:"gstRate,omitempty" validate:"omitempty,gte=0,lte=100"`
	Regime    totals.Regime         `json:"regime,omitempty" validate:"omitempty,oneof=intra_state inter_state"`
	Notes     string                `json:"notes,omitempty" validate:"max=2000"`
}

// PurchaseOrderRequest is the body of a purchase order.
type PurchaseOrderRequest struct {
	Supplier  Party                       `json:"supplier"`
	Items     []lineitem.PurchaseOrderRow `json:"items" validate:"max=500,dive"`
	Transport lineitem.Number             `json:"transport"`
	GSTRate   *lineitem.Number            `json:"gstRate,omitempty" validate:"omitempty,gte=0,lte=100"`
	Regime    totals.Regime               `json:"regime,omitempty" validate:"omitempty,oneof=intra_state inter_state"`
	Notes     string                      `json:"notes,omitempty" validate:"max=2000"`
}

// draft is a validated request reduced to what the engine and views need.
type draft struct {
	party     Party
	rows      []ItemView
	items     []totals.LineItem
	transport decimal.Decimal
	rate      decimal.NullDecimal
	regime    totals.Regime
	notes     string
}

func (r *ServiceRequest) draft(ctx context.Context, s *Service, flow Flow) (draft, error) {
	if !flow.Sales() {
		return draft{}, errFlowMismatch(flow)
	}
	if err := s.validate(r); err != nil {
		return draft{}, err
	}
	d := newDraft(r.Buyer, r.Transport, r.GSTRate, r.Regime, r.Notes)
	for _, row := range r.Items {
		d.add(row.LineItem(), ItemView{HSN: row.HSN})
	}
	if len(r.Kits) > 0 {
		expanded, err := s.expandKits(ctx, r.Kits)
		if err != nil {
			return draft{}, err
		}
		for _, row := range expanded {
			d.add(row.LineItem(), ItemView{KitID: row.KitID})
		}
	}
	if len(d.items) == 0 {
		return draft{}, errNoItems()
	}
	return d, nil
}

func (r *PurchaseOrderRequest) draft(_ context.Context, s *Service, flow Flow) (draft, error) {
	if flow != FlowPurchaseOrder {
		return draft{}, errFlowMismatch(flow)
	}
	if err := s.validate(r); err != nil {
		return draft{}, err
	}
	d := newDraft(r.Supplier, r.Transport, r.GSTRate, r.Regime, r.Notes)
	for _, row := range r.Items {
		d.add(row.LineItem(), ItemView{Unit: row.Unit})
	}
	if len(d.items) == 0 {
		return draft{}, errNoItems()
	}
	return d, nil
}

func newDraft(party Party, transport lineitem.Number, rate *lineitem.Number, regime totals.Regime, notes string) draft {
	d := draft{party: party, transport: transport.Decimal, regime: regime, notes: notes}
	if rate != nil {
		d.rate = decimal.NewNullDecimal(rate.Decimal)
	}
	return d
}

func (d *draft) add(item totals.LineItem, view ItemView) {
	view.Description = item.Description
	view.Qty = plain(item.Quantity)
	view.Rate = plain(item.UnitRate)
	view.DiscountPercent = plain(item.DiscountPercent)
	d.items = append(d.items, item)
	d.rows = append(d.rows, view)
}
