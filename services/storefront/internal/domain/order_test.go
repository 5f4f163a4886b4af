package domain

import (
	"encoding/json"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, OrderStatusProcessing, InitialStatus(PaymentMethodCashOnDelivery))
	assert.Equal(t, OrderStatusPending, InitialStatus(PaymentMethodBkash))
	assert.Equal(t, OrderStatusPending, InitialStatus(PaymentMethodCard))
}

func TestOrder_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusProcessing, false},
	}
	for _, tt := range tests {
		o := &Order{Status: tt.from}
		assert.Equal(t, tt.want, o.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestIsValidStatus(t *testing.T) {
	assert.True(t, IsValidStatus("Shipped"))
	assert.False(t, IsValidStatus("shipped"))
	assert.False(t, IsValidStatus("Refunded"))
}

func TestNewOrderNumber_UniqueAndOrdered(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

	numbers := make([]string, 500)
	seen := make(map[string]bool, len(numbers))
	for i := range numbers {
		n := NewOrderNumber(at)
		require.True(t, strings.HasPrefix(n, OrderNumberPrefix))
		require.Len(t, n, len(OrderNumberPrefix)+26)
		require.False(t, seen[n], "duplicate order number %s", n)
		seen[n] = true
		numbers[i] = n
	}
	assert.True(t, sort.StringsAreSorted(numbers), "numbers minted in one millisecond keep their order")

	later := NewOrderNumber(at.Add(time.Second))
	assert.Greater(t, later, numbers[len(numbers)-1])
}

func TestNewInvoice_SnapshotsOrder(t *testing.T) {
	o := &Order{
		ID:            "o-1",
		UserID:        "u-1",
		OrderNumber:   "ORD-01HXYZ",
		PaymentMethod: PaymentMethodCashOnDelivery,
		PaymentStatus: PaymentStatusPending,
		Items:         []CartItem{kibble()},
		Subtotal:      dec("1450"),
		Discount:      dec("145"),
		DiscountCode:  "SAVE10",
		DeliveryFee:   dec("100"),
		Total:         dec("1405"),
		CreatedAt:     time.Now().UTC(),
	}

	inv := NewInvoice("inv-1", o)
	assert.Equal(t, o.OrderNumber, inv.InvoiceNumber)
	assert.Equal(t, o.ID, inv.OrderID)
	assert.Equal(t, o.CreatedAt, inv.OrderDate)
	assert.True(t, inv.Total.Equal(o.Total))

	o.Items[0].Quantity = 9
	assert.Equal(t, 1, inv.Items[0].Quantity, "invoice items are a copy")
}

func TestMoneyEncodesAsJSONNumber(t *testing.T) {
	raw, err := json.Marshal(Invoice{Subtotal: dec("1450.5"), Total: dec("1530.5")})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"subtotal":1450.5`)
	assert.Contains(t, string(raw), `"total":1530.5`)
}

func TestFitsScale(t *testing.T) {
	assert.True(t, FitsScale(dec("650"), MoneyScale))
	assert.True(t, FitsScale(dec("10.50"), MoneyScale))
	assert.True(t, FitsScale(dec("10.000"), MoneyScale))
	assert.False(t, FitsScale(dec("10.005"), MoneyScale))
	assert.True(t, FitsScale(dec("0.125"), WeightScale))
	assert.False(t, FitsScale(dec("0.0004"), WeightScale))
}
