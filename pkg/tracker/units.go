package tracker

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// On-chain fixed-point widths. Amounts are 18-decimal LP token units, values
// are 30-decimal (amount times 12-decimal price), per-share accruals carry a
// 12-decimal base on top of the value/amount gap.
const (
	AmountDecimals = 18
	ValueDecimals  = 30
	PerShareBase   = 12
)

// PriceDecimals is the width of raw price integers: value / amount.
const PriceDecimals = ValueDecimals - AmountDecimals

// PerShareDecimals is the width of raw fee/pnl per-share integers.
const PerShareDecimals = ValueDecimals - AmountDecimals + PerShareBase

// FromRaw converts a raw fixed-point integer string into a float64 report
// value by shifting the given number of decimals.
func FromRaw(raw string, decimals int32) (float64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("parse raw value %q: %w", raw, err)
	}
	return d.Shift(-decimals).InexactFloat64(), nil
}

// RawValue multiplies raw amount and price integer strings, yielding the raw
// 30-decimal position value.
func RawValue(rawAmount, rawPrice string) (string, error) {
	a, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return "", fmt.Errorf("parse raw amount %q: %w", rawAmount, err)
	}
	p, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return "", fmt.Errorf("parse raw price %q: %w", rawPrice, err)
	}
	return a.Mul(p).String(), nil
}
