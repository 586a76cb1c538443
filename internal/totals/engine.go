package totals

import "github.com/shopspring/decimal"

// DefaultNominalRate is the GST rate applied when Options leaves NominalRate unset.
var DefaultNominalRate = decimal.NewFromInt(18)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// LineItem is the single strict row shape accepted by the engine. Callers
// adapt their own row shapes into it and clamp values before invoking.
type LineItem struct {
	Description     string
	Quantity        decimal.Decimal
	UnitRate        decimal.Decimal
	DiscountPercent decimal.Decimal
}

// Options tunes a single breakdown computation. The zero value rounds to paise
// at the default nominal rate with the regime derived from the jurisdiction.
type Options struct {
	Rounding    Rounding
	NominalRate decimal.NullDecimal
	Regime      Regime
}

func (o Options) nominal() decimal.Decimal {
	if o.NominalRate.Valid {
		return o.NominalRate.Decimal
	}
	return DefaultNominalRate
}

// Breakdown aggregates computed document totals.
type Breakdown struct {
	Lines           []decimal.Decimal
	RawTotal        decimal.Decimal
	Subtotal        decimal.Decimal
	DiscountSavings decimal.Decimal
	Transport       decimal.Decimal
	Base            decimal.Decimal
	Regime          Regime
	CGSTRate        decimal.Decimal
	SGSTRate        decimal.Decimal
	IGSTRate        decimal.Decimal
	CGST            decimal.Decimal
	SGST            decimal.Decimal
	IGST            decimal.Decimal
	GrandTotal      decimal.Decimal
	Rounding        Rounding
}

// TotalTax returns the combined tax amount.
func (b Breakdown) TotalTax() decimal.Decimal {
	return b.CGST.Add(b.SGST).Add(b.IGST)
}

// ComputeLineAmount returns rate * qty less the discount, rounded to paise.
func ComputeLineAmount(item LineItem) decimal.Decimal {
	gross := item.UnitRate.Mul(item.Quantity)
	return gross.Mul(hundred.Sub(item.DiscountPercent)).Div(hundred).Round(2)
}

// ComputeBreakdown calculates document totals for the provided rows, transport
// charge and jurisdiction. It is a pure function of its inputs.
func ComputeBreakdown(items []LineItem, transport decimal.Decimal, j Jurisdiction, opts Options) Breakdown {
	places := opts.Rounding.Places()

	lines := make([]decimal.Decimal, 0, len(items))
	raw := decimal.Zero
	discounted := decimal.Zero
	for _, it := range items {
		amount := ComputeLineAmount(it)
		lines = append(lines, amount)
		raw = raw.Add(it.UnitRate.Mul(it.Quantity))
		discounted = discounted.Add(amount)
	}

	rawTotal := raw.Round(places)
	subtotal := discounted.Round(places)
	savings := raw.Sub(subtotal).Round(places)
	if savings.IsNegative() {
		savings = decimal.Zero
	}
	shipping := transport.Round(places)
	base := subtotal.Add(shipping)

	regime := opts.Regime
	if regime == RegimeAuto {
		regime = ResolveRegime(j)
	}
	cgstRate, sgstRate, igstRate := splitRate(regime, opts.nominal())

	cgst := base.Mul(cgstRate).Div(hundred).Round(places)
	sgst := base.Mul(sgstRate).Div(hundred).Round(places)
	igst := base.Mul(igstRate).Div(hundred).Round(places)

	return Breakdown{
		Lines:           lines,
		RawTotal:        rawTotal,
		Subtotal:        subtotal,
		DiscountSavings: savings,
		Transport:       shipping,
		Base:            base,
		Regime:          regime,
		CGSTRate:        cgstRate,
		SGSTRate:        sgstRate,
		IGSTRate:        igstRate,
		CGST:            cgst,
		SGST:            sgst,
		IGST:            igst,
		GrandTotal:      base.Add(cgst).Add(sgst).Add(igst),
		Rounding:        opts.Rounding,
	}
}

func splitRate(regime Regime, nominal decimal.Decimal) (cgst, sgst, igst decimal.Decimal) {
	if regime == RegimeIntraState {
		half := nominal.Div(two)
		return half, half, decimal.Zero
	}
	return decimal.Zero, decimal.Zero, nominal
}
