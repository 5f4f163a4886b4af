package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one product line in a cart or order.
type CartItem struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	UnitPrice decimal.Decimal  `json:"unitPrice"`
	Quantity  int              `json:"quantity"`
	Image     string           `json:"image,omitempty"`
	MaxStock  int              `json:"maxStock"`
	WeightKg  *decimal.Decimal `json:"weightKg,omitempty"`
	Weight    string           `json:"weight,omitempty"`
	Color     string           `json:"color,omitempty"`
}

// LineTotal is unit price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ShippingWeight is the weight of one unit in kilograms. The structured
// WeightKg wins; otherwise the free-text Weight label is parsed.
func (i CartItem) ShippingWeight() decimal.Decimal {
	if i.WeightKg != nil && i.WeightKg.IsPositive() {
		return *i.WeightKg
	}
	return ParseWeightLabel(i.Weight)
}

// clampQuantity caps qty at MaxStock when stock is known.
func (i CartItem) clampQuantity(qty int) int {
	if i.MaxStock > 0 && qty > i.MaxStock {
		return i.MaxStock
	}
	return qty
}

// AppliedCoupon is the coupon currently attached to a cart.
type AppliedCoupon struct {
	Code           string          `json:"code"`
	DiscountType   string          `json:"discountType"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FreeDelivery   bool            `json:"freeDelivery"`
}

// Cart is a shopper's cart. Every transition returns a new Cart and leaves
// the receiver untouched.
type Cart struct {
	UserID    string         `json:"userId"`
	Items     []CartItem     `json:"items"`
	Coupon    *AppliedCoupon `json:"appliedCoupon,omitempty"`
	Version   int64          `json:"version"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// NewCart returns an empty cart for userID.
func NewCart(userID string) Cart {
	return Cart{UserID: userID, Items: []CartItem{}}
}

func (c Cart) clone() Cart {
	out := c
	out.Items = make([]CartItem, len(c.Items))
	copy(out.Items, c.Items)
	if c.Coupon != nil {
		coupon := *c.Coupon
		out.Coupon = &coupon
	}
	return out
}

// IndexOf returns the position of item id, or -1.
func (c Cart) IndexOf(id string) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// AddItem adds item. An existing line with the same id has the quantities
// merged, capped at the known stock.
func (c Cart) AddItem(item CartItem) Cart {
	out := c.clone()
	if idx := out.IndexOf(item.ID); idx >= 0 {
		existing := out.Items[idx]
		merged := item
		merged.Quantity = merged.clampQuantity(existing.Quantity + item.Quantity)
		out.Items[idx] = merged
		return out
	}
	item.Quantity = item.clampQuantity(item.Quantity)
	out.Items = append(out.Items, item)
	return out
}

// RemoveItem drops the line with id.
func (c Cart) RemoveItem(id string) Cart {
	out := c.clone()
	kept := out.Items[:0]
	for _, item := range out.Items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	out.Items = kept
	return out
}

// UpdateQuantity sets the quantity of id. Zero or less removes the line and
// anything above the known stock is clamped to it.
func (c Cart) UpdateQuantity(id string, qty int) Cart {
	if qty <= 0 {
		return c.RemoveItem(id)
	}
	out := c.clone()
	if idx := out.IndexOf(id); idx >= 0 {
		out.Items[idx].Quantity = out.Items[idx].clampQuantity(qty)
	}
	return out
}

// ApplyCoupon attaches coupon, replacing any previous one.
func (c Cart) ApplyCoupon(coupon AppliedCoupon) Cart {
	out := c.clone()
	out.Coupon = &coupon
	return out
}

// RemoveCoupon detaches the coupon.
func (c Cart) RemoveCoupon() Cart {
	out := c.clone()
	out.Coupon = nil
	return out
}

// Clear empties the cart and drops the coupon.
func (c Cart) Clear() Cart {
	out := c.clone()
	out.Items = []CartItem{}
	out.Coupon = nil
	return out
}

// Subtotal is the sum of the line totals.
func (c Cart) Subtotal() decimal.Decimal {
	return Subtotal(c.Items)
}

// Discount is the applied coupon's amount, or zero.
func (c Cart) Discount() decimal.Decimal {
	if c.Coupon == nil {
		return decimal.Zero
	}
	return c.Coupon.DiscountAmount
}

// FinalTotal is Subtotal minus Discount. Delivery is added at checkout.
func (c Cart) FinalTotal() decimal.Decimal {
	return c.Subtotal().Sub(c.Discount())
}

// TotalWeight is the shipped weight of the whole cart in kilograms.
func (c Cart) TotalWeight() decimal.Decimal {
	return TotalWeight(c.Items)
}

// ItemCount is the number of units across all lines.
func (c Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Subtotal sums unit price times quantity over items.
func Subtotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// TotalWeight sums per-unit shipping weight times quantity over items.
func TotalWeight(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.ShippingWeight().Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
