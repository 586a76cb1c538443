package documents

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/manigandan-posana/vebops/internal/company"
	"github.com/manigandan-posana/vebops/internal/totals"
)

// ItemView is a document row with its computed amount.
type ItemView struct {
	Description     string      `json:"description"`
	HSN             string      `json:"hsn,omitempty"`
	Unit            string      `json:"unit,omitempty"`
	KitID           string      `json:"kitId,omitempty"`
	Qty             json.Number `json:"qty"`
	Rate            json.Number `json:"rate"`
	DiscountPercent json.Number `json:"discountPercent"`
	Amount          json.Number `json:"amount"`
}

// BreakdownView renders a totals.Breakdown with amounts as JSON numbers.
type BreakdownView struct {
	RawTotal        json.Number     `json:"rawTotal"`
	Subtotal        json.Number     `json:"subtotal"`
	DiscountSavings json.Number     `json:"discountSavings"`
	Transport       json.Number     `json:"transport"`
	TaxableBase     json.Number     `json:"taxableBase"`
	Regime          totals.Regime   `json:"regime"`
	CGSTRate        json.Number     `json:"cgstRate"`
	SGSTRate        json.Number     `json:"sgstRate"`
	IGSTRate        json.Number     `json:"igstRate"`
	CGST            json.Number     `json:"cgst"`
	SGST            json.Number     `json:"sgst"`
	IGST            json.Number     `json:"igst"`
	TotalTax        json.Number     `json:"totalTax"`
	GrandTotal      json.Number     `json:"grandTotal"`
	Rounding        totals.Rounding `json:"rounding"`
}

// NewBreakdownView converts b for presentation.
func NewBreakdownView(b totals.Breakdown) BreakdownView {
	return BreakdownView{
		RawTotal:        money(b.RawTotal),
		Subtotal:        money(b.Subtotal),
		DiscountSavings: money(b.DiscountSavings),
		Transport:       money(b.Transport),
		TaxableBase:     money(b.Base),
		Regime:          b.Regime,
		CGSTRate:        plain(b.CGSTRate),
		SGSTRate:        plain(b.SGSTRate),
		IGSTRate:        plain(b.IGSTRate),
		CGST:            money(b.CGST),
		SGST:            money(b.SGST),
		IGST:            money(b.IGST),
		TotalTax:        money(b.TotalTax()),
		GrandTotal:      money(b.GrandTotal),
		Rounding:        b.Rounding,
	}
}

// JurisdictionView records which states decided the regime.
type JurisdictionView struct {
	SellerState string `json:"sellerState"`
	BuyerState  string `json:"buyerState"`
}

// Result is a fully computed document.
type Result struct {
	Flow          Flow             `json:"flow"`
	Seller        company.Seller   `json:"seller"`
	Buyer         *Party           `json:"buyer,omitempty"`
	Supplier      *Party           `json:"supplier,omitempty"`
	Jurisdiction  JurisdictionView `json:"jurisdiction"`
	Items         []ItemView       `json:"items"`
	Totals        BreakdownView    `json:"totals"`
	AmountInWords string           `json:"amountInWords"`
	Notes         string           `json:"notes,omitempty"`
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func plain(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
