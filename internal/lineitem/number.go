package lineitem

import (
	"bytes"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var maxPercent = decimal.NewFromInt(100)

// MaxAmount is the largest quantity, rate or amount accepted from input
// (one lakh crore). Anything larger decodes to zero like other unusable input.
var MaxAmount = decimal.New(1, 12)

// maxFraction is the number of decimal places kept from input.
const maxFraction = 6

// Number is a non-negative amount decoded leniently from form input. Numbers,
// numeric strings, blanks and null are accepted; anything unparsable, non-finite,
// negative or above MaxAmount decodes to zero.
type Number struct {
	decimal.Decimal
}

// NewNumber wraps d after bounding it.
func NewNumber(d decimal.Decimal) Number {
	return Number{Decimal: bound(d)}
}

// NumberFromFloat sanitizes a float before converting it.
func NumberFromFloat(f float64) Number {
	return Number{Decimal: Sanitize(f)}
}

// UnmarshalJSON implements json.Unmarshaler and never fails.
func (n *Number) UnmarshalJSON(data []byte) error {
	n.Decimal = parseLenient(data)
	return nil
}

// MarshalJSON renders the value as a bare JSON number.
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.Decimal.String()), nil
}

// Percent is a Number clamped to [0, 100].
type Percent struct {
	decimal.Decimal
}

// NewPercent clamps d into range.
func NewPercent(d decimal.Decimal) Percent {
	return Percent{Decimal: ClampPercent(d)}
}

// UnmarshalJSON implements json.Unmarshaler and never fails.
func (p *Percent) UnmarshalJSON(data []byte) error {
	p.Decimal = ClampPercent(parseLenient(data))
	return nil
}

// MarshalJSON renders the value as a bare JSON number.
func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(p.Decimal.String()), nil
}

// Sanitize converts f to a decimal, mapping NaN, infinities, negatives and
// values above MaxAmount to zero.
func Sanitize(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 || f > 1e12 {
		return decimal.Zero
	}
	return bound(decimal.NewFromFloat(f))
}

// bound maps values outside (0, MaxAmount] to zero and truncates past
// maxFraction places. Digit counts are checked before any comparison so a
// large exponent is never expanded into a big integer.
func bound(d decimal.Decimal) decimal.Decimal {
	if d.Sign() <= 0 {
		return decimal.Zero
	}
	intDigits := d.NumDigits() + int(d.Exponent())
	if intDigits > 13 || intDigits <= -maxFraction || d.GreaterThan(MaxAmount) {
		return decimal.Zero
	}
	if d.Exponent() < -maxFraction {
		d = d.Truncate(maxFraction)
	}
	return d
}

// ClampPercent bounds d to the [0, 100] range.
func ClampPercent(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(maxPercent) {
		return maxPercent
	}
	return d
}

func parseLenient(data []byte) decimal.Decimal {
	raw := bytes.TrimSpace(data)
	if bytes.Equal(raw, []byte("null")) {
		return decimal.Zero
	}
	s := strings.TrimSpace(strings.Trim(string(raw), `"`))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return bound(d)
}
