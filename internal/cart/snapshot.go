package cart

import (
	"math"

	"github.com/angelmondragon/gourmet-cart/pkg/types"
	"github.com/shopspring/decimal"
)

// Snapshot is a read-only copy of the cart for rendering.
type Snapshot struct {
	Items       []LineItem
	DeliveryFee types.Money
	TaxRate     decimal.Decimal
}

// Subtotal sums unit price times quantity over all items.
func (s Snapshot) Subtotal() types.Money {
	return subtotalOf(s.Items)
}

// Tax is Subtotal times TaxRate, rounded to a whole minor unit.
func (s Snapshot) Tax() types.Money {
	return s.Subtotal().ApplyRate(s.TaxRate)
}

// Total is Subtotal plus DeliveryFee plus Tax.
func (s Snapshot) Total() types.Money {
	subtotal := s.Subtotal()
	return subtotal + s.DeliveryFee + subtotal.ApplyRate(s.TaxRate)
}

// ItemCount sums quantities; it is what the cart badge shows.
func (s Snapshot) ItemCount() int {
	return itemCountOf(s.Items)
}

// IsEmpty reports whether the cart has no line items.
func (s Snapshot) IsEmpty() bool {
	return len(s.Items) == 0
}

// lineTotalsOf sums unit price times quantity and reports false once a line
// or the running sum no longer fits in Money.
func lineTotalsOf(items []LineItem) (types.Money, bool) {
	var sum types.Money
	for _, item := range items {
		line, ok := item.UnitPrice.MulQty(item.Quantity)
		if !ok {
			return types.MaxMoney, false
		}
		if sum, ok = sum.Add(line); !ok {
			return types.MaxMoney, false
		}
	}
	return sum, true
}

// subtotalOf never wraps; carts the engine admits always fit.
func subtotalOf(items []LineItem) types.Money {
	sum, _ := lineTotalsOf(items)
	return sum
}

// totalFits reports whether subtotal, fee and tax of items add up without
// overflowing.
func totalFits(items []LineItem, fee types.Money, rate decimal.Decimal) bool {
	subtotal, ok := lineTotalsOf(items)
	if !ok {
		return false
	}
	withFee, ok := subtotal.Add(fee)
	if !ok {
		return false
	}
	_, ok = withFee.Add(subtotal.ApplyRate(rate))
	return ok
}

func itemCountOf(items []LineItem) int {
	count := 0
	for _, item := range items {
		if count > math.MaxInt-item.Quantity {
			return math.MaxInt
		}
		count += item.Quantity
	}
	return count
}
