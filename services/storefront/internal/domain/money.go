package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Money travels as plain JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Decimal places stored for money and for weights in kilograms.
const (
	MoneyScale  = 2
	WeightScale = 3
)

// RoundMoney rounds to two decimal places, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// FitsScale reports whether d has no digits beyond places decimals.
func FitsScale(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}

// ParseWeightLabel reads a legacy free-text weight such as "1.5 kg".
// Everything except digits and '.' is dropped and the number left over is
// always read as kilograms, so a unit in the label is ignored. Labels that
// do not parse give zero.
func ParseWeightLabel(label string) decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, label)
	if cleaned == "" {
		return decimal.Zero
	}
	w, err := decimal.NewFromString(cleaned)
	if err != nil || w.IsNegative() {
		return decimal.Zero
	}
	return w
}
