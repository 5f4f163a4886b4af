package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kibble() CartItem {
	w := dec("2.5")
	return CartItem{ID: "p-kibble", Name: "Salmon Kibble 2.5kg", UnitPrice: dec("1450"), Quantity: 1, MaxStock: 5, WeightKg: &w}
}

func litter() CartItem {
	return CartItem{ID: "p-litter", Name: "Clumping Litter", UnitPrice: dec("620.50"), Quantity: 2, MaxStock: 0, Weight: "5 kg"}
}

func TestCart_AddItem_Merges(t *testing.T) {
	c := NewCart("u-1").AddItem(kibble())
	c = c.AddItem(kibble())

	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestCart_AddItem_ClampsToStock(t *testing.T) {
	item := kibble()
	item.Quantity = 4
	c := NewCart("u-1").AddItem(item).AddItem(item)

	assert.Equal(t, 5, c.Items[0].Quantity)
}

func TestCart_TransitionsDoNotMutateReceiver(t *testing.T) {
	base := NewCart("u-1").AddItem(kibble()).ApplyCoupon(AppliedCoupon{Code: "SAVE10", DiscountAmount: dec("10")})

	_ = base.AddItem(litter())
	_ = base.UpdateQuantity("p-kibble", 3)
	_ = base.RemoveItem("p-kibble")
	_ = base.RemoveCoupon()
	_ = base.Clear()

	require.Len(t, base.Items, 1)
	assert.Equal(t, 1, base.Items[0].Quantity)
	require.NotNil(t, base.Coupon)
	assert.Equal(t, "SAVE10", base.Coupon.Code)
}

func TestCart_UpdateQuantity(t *testing.T) {
	c := NewCart("u-1").AddItem(kibble()).AddItem(litter())

	c = c.UpdateQuantity("p-kibble", 3)
	assert.Equal(t, 3, c.Items[c.IndexOf("p-kibble")].Quantity)

	c = c.UpdateQuantity("p-kibble", 99)
	assert.Equal(t, 5, c.Items[c.IndexOf("p-kibble")].Quantity, "clamped to max stock")

	c = c.UpdateQuantity("p-litter", 40)
	assert.Equal(t, 40, c.Items[c.IndexOf("p-litter")].Quantity, "unknown stock is not clamped")

	c = c.UpdateQuantity("p-kibble", 0)
	assert.Equal(t, -1, c.IndexOf("p-kibble"))
	assert.Len(t, c.Items, 1)

	c = c.UpdateQuantity("p-litter", -2)
	assert.Empty(t, c.Items)
}

func TestCart_Totals(t *testing.T) {
	c := NewCart("u-1").AddItem(kibble()).AddItem(litter())
	c = c.ApplyCoupon(AppliedCoupon{Code: "SAVE", DiscountType: DiscountTypeFixed, DiscountAmount: dec("100")})

	// 1450 + 2*620.50
	assert.True(t, c.Subtotal().Equal(dec("2691")))
	assert.True(t, c.Discount().Equal(dec("100")))
	assert.True(t, c.FinalTotal().Equal(dec("2591")))
	// 2.5 + 2*5
	assert.True(t, c.TotalWeight().Equal(dec("12.5")))
	assert.Equal(t, 3, c.ItemCount())

	c = c.RemoveCoupon()
	assert.True(t, c.FinalTotal().Equal(c.Subtotal()))
}

func TestCart_FinalTotalIsSubtotalMinusDiscount(t *testing.T) {
	prices := []string{"0", "0.99", "120", "1450", "99999.95"}
	for i, p := range prices {
		c := NewCart("u-1")
		want := decimal.Zero
		for j := 0; j <= i; j++ {
			item := CartItem{ID: prices[j], UnitPrice: dec(prices[j]), Quantity: j + 1}
			c = c.AddItem(item)
			want = want.Add(item.LineTotal())
		}
		c = c.ApplyCoupon(AppliedCoupon{DiscountAmount: dec(p)})

		assert.True(t, c.Subtotal().Equal(want))
		assert.True(t, c.FinalTotal().Equal(want.Sub(dec(p))))
	}
}

func TestCart_ClearDropsCoupon(t *testing.T) {
	c := NewCart("u-1").AddItem(kibble()).ApplyCoupon(AppliedCoupon{Code: "X"}).Clear()
	assert.Empty(t, c.Items)
	assert.Nil(t, c.Coupon)
	assert.Equal(t, "u-1", c.UserID)
}

func TestCartItem_ShippingWeight(t *testing.T) {
	zero := decimal.Zero
	tests := []struct {
		name string
		item CartItem
		want string
	}{
		{"structured", kibble(), "2.5"},
		{"label fallback", litter(), "5"},
		{"zero structured uses label", CartItem{WeightKg: &zero, Weight: "1.2kg"}, "1.2"},
		{"nothing", CartItem{}, "0"},
		{"garbage label", CartItem{Weight: "heavy"}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.item.ShippingWeight().Equal(dec(tt.want)))
		})
	}
}
