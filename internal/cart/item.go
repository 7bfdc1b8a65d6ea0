package cart

import "github.com/angelmondragon/gourmet-cart/pkg/types"

// LineItem is one distinct purchasable entry in the cart.
type LineItem struct {
	ID          string
	Name        string
	UnitPrice   types.Money
	OriginLabel string
	Quantity    int
}

// Subtotal returns UnitPrice times Quantity.
func (i LineItem) Subtotal() types.Money {
	return i.UnitPrice.Times(i.Quantity)
}

// identity is the merge key of a line item. Matching is exact and case-sensitive.
type identity struct {
	name   string
	origin string
}

func (i LineItem) identity() identity {
	return identity{name: i.Name, origin: i.OriginLabel}
}
