package totals

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var ones = [...]string{
	"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
	"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
	"Seventeen", "Eighteen", "Nineteen",
}

var tens = [...]string{
	"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
}

var bigCrore = big.NewInt(crore)

const (
	crore    = 10_000_000
	lakh     = 100_000
	thousand = 1_000
)

// AmountInWords renders a rupee amount using the Indian numbering system,
// for example "One Lakh Twenty Thousand Rupees and Fifty Paise Only".
// Negative amounts render as zero.
func AmountInWords(amount decimal.Decimal) string {
	if !amount.IsPositive() {
		return "Zero Rupees Only"
	}
	rupees := amount.Floor()
	paise := amount.Sub(rupees).Mul(hundred).Round(0).IntPart()
	whole := rupees.BigInt()
	if paise >= 100 {
		whole.Add(whole, big.NewInt(1))
		paise -= 100
	}

	var b strings.Builder
	if whole.Sign() == 0 {
		b.WriteString("Zero")
	} else {
		b.WriteString(bigIndianWords(whole))
	}
	b.WriteString(" Rupees")
	if paise > 0 {
		b.WriteString(" and ")
		b.WriteString(under100(paise))
		b.WriteString(" Paise")
	}
	b.WriteString(" Only")
	return b.String()
}

// bigIndianWords extends indianWords past int64 by peeling off crores.
func bigIndianWords(n *big.Int) string {
	if n.IsInt64() {
		return indianWords(n.Int64())
	}
	q, r := new(big.Int).QuoRem(n, bigCrore, new(big.Int))
	words := bigIndianWords(q) + " Crore"
	if r.Sign() > 0 {
		words += " " + indianWords(r.Int64())
	}
	return words
}

func indianWords(n int64) string {
	parts := make([]string, 0, 5)
	if n >= crore {
		parts = append(parts, indianWords(n/crore)+" Crore")
		n %= crore
	}
	if n >= lakh {
		parts = append(parts, under100(n/lakh)+" Lakh")
		n %= lakh
	}
	if n >= thousand {
		parts = append(parts, under100(n/thousand)+" Thousand")
		n %= thousand
	}
	if n >= 100 {
		parts = append(parts, ones[n/100]+" Hundred")
		n %= 100
	}
	if n > 0 {
		parts = append(parts, under100(n))
	}
	return strings.Join(parts, " ")
}

func under100(n int64) string {
	if n < 20 {
		return ones[n]
	}
	if n%10 == 0 {
		return tens[n/10]
	}
	return tens[n/10] + " " + ones[n%10]
}
