package lineitem

import "github.com/manigandan-posana/vebops/internal/totals"

// Adapter converts a source row into the engine's LineItem.
type Adapter interface {
	LineItem() totals.LineItem
}

// ServiceRow is a row of the service form and the invoice/proforma preview.
type ServiceRow struct {
	Description string  `json:"description" validate:"max=500"`
	HSN         string  `json:"hsn,omitempty" validate:"max=16"`
	Qty         Number  `json:"qty"`
	Price       Number  `json:"price"`
	Discount    Percent `json:"discount"`
}

// LineItem implements Adapter.
func (r ServiceRow) LineItem() totals.LineItem {
	return totals.LineItem{
		Description:     r.Description,
		Quantity:        r.Qty.Decimal,
		UnitRate:        r.Price.Decimal,
		DiscountPercent: r.Discount.Decimal,
	}
}

// KitRow is a catalog kit item copied into a document.
type KitRow struct {
	KitID     string  `json:"kitId,omitempty"`
	Name      string  `json:"name" validate:"max=500"`
	Quantity  Number  `json:"quantity"`
	BasePrice Number  `json:"basePrice"`
	Discount  Percent `json:"discount"`
}

// LineItem implements Adapter.
func (r KitRow) LineItem() totals.LineItem {
	return totals.LineItem{
		Description:     r.Name,
		Quantity:        r.Quantity.Decimal,
		UnitRate:        r.BasePrice.Decimal,
		DiscountPercent: r.Discount.Decimal,
	}
}

// ServiceRow converts a kit item into a form row so it can be edited alongside manual rows.
func (r KitRow) ServiceRow() ServiceRow {
	return ServiceRow{
		Description: r.Name,
		Qty:         r.Quantity,
		Price:       r.BasePrice,
		Discount:    r.Discount,
	}
}

// PurchaseOrderRow is a purchase order line.
type PurchaseOrderRow struct {
	Description     string  `json:"description" validate:"max=500"`
	Unit            string  `json:"unit,omitempty" validate:"max=16"`
	Qty             Number  `json:"qty"`
	Rate            Number  `json:"rate"`
	DiscountPercent Percent `json:"discountPercent"`
}

// LineItem implements Adapter.
func (r PurchaseOrderRow) LineItem() totals.LineItem {
	return totals.LineItem{
		Description:     r.Description,
		Quantity:        r.Qty.Decimal,
		UnitRate:        r.Rate.Decimal,
		DiscountPercent: r.DiscountPercent.Decimal,
	}
}

// Row is the engine's own shape in JSON, used by tooling endpoints.
type Row struct {
	Description     string  `json:"description" validate:"max=500"`
	Quantity        Number  `json:"quantity"`
	UnitRate        Number  `json:"unitRate"`
	DiscountPercent Percent `json:"discountPercent"`
}

// LineItem implements Adapter.
func (r Row) LineItem() totals.LineItem {
	return totals.LineItem{
		Description:     r.Description,
		Quantity:        r.Quantity.Decimal,
		UnitRate:        r.UnitRate.Decimal,
		DiscountPercent: r.DiscountPercent.Decimal,
	}
}

// Collect adapts rows in order.
func Collect[T Adapter](rows []T) []totals.LineItem {
	items := make([]totals.LineItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.LineItem())
	}
	return items
}
