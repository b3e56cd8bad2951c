package models

import "github.com/shopspring/decimal"

// FormatPercent renders a probability as a percentage with one decimal place,
// e.g. 0.4213 -> "42.1".
func FormatPercent(p float64) string {
	return decimal.NewFromFloat(p).Shift(2).StringFixed(1)
}
