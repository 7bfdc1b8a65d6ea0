package types

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is an amount in minor units of the session currency.
type Money int64

var displayPrinter = message.NewPrinter(language.English)

// Bounds of a representable amount.
const (
	MaxMoney = Money(math.MaxInt64)
	MinMoney = Money(math.MinInt64)
)

// Times returns m multiplied by a quantity, clamped to MinMoney/MaxMoney when
// the product does not fit.
func (m Money) Times(qty int) Money {
	product, ok := m.MulQty(qty)
	if ok {
		return product
	}
	if (m < 0) != (qty < 0) {
		return MinMoney
	}
	return MaxMoney
}

// MulQty multiplies m by qty and reports whether the product fits in Money.
func (m Money) MulQty(qty int) (Money, bool) {
	if m == 0 || qty == 0 {
		return 0, true
	}
	q := Money(qty)
	if (m == -1 && q == MinMoney) || (q == -1 && m == MinMoney) {
		return 0, false
	}
	product := m * q
	if product/q != m {
		return 0, false
	}
	return product, true
}

// Add returns m plus other and reports whether the sum fits in Money.
func (m Money) Add(other Money) (Money, bool) {
	sum := m + other
	if (other > 0 && sum < m) || (other < 0 && sum > m) {
		return 0, false
	}
	return sum, true
}

// ApplyRate multiplies m by rate and rounds half away from zero to a whole minor unit.
func (m Money) ApplyRate(rate decimal.Decimal) Money {
	return Money(decimal.NewFromInt(int64(m)).Mul(rate).Round(0).IntPart())
}

// IsNegative reports whether m is below zero.
func (m Money) IsNegative() bool {
	return m < 0
}

// Format renders m with grouped digits, e.g. "LKR 1,900".
func (m Money) Format(currency string) string {
	amount := displayPrinter.Sprintf("%d", int64(m))
	if currency == "" {
		return amount
	}
	return fmt.Sprintf("%s %s", currency, amount)
}
