package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the printable record of an order. It is written with the
// order and only its payment status changes afterwards.
type Invoice struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	OrderID       string          `json:"orderId"`
	UserID        string          `json:"userId"`
	CustomerInfo  CustomerInfo    `json:"customerInfo"`
	Items         []CartItem      `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	DiscountCode  string          `json:"discountCode,omitempty"`
	DeliveryFee   decimal.Decimal `json:"deliveryFee"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"paymentMethod"`
	PaymentStatus string          `json:"paymentStatus"`
	OrderDate     time.Time       `json:"orderDate"`
}

// NewInvoice snapshots o. The invoice number is the order number.
func NewInvoice(id string, o *Order) *Invoice {
	items := make([]CartItem, len(o.Items))
	copy(items, o.Items)
	return &Invoice{
		ID:            id,
		InvoiceNumber: o.OrderNumber,
		OrderID:       o.ID,
		UserID:        o.UserID,
		CustomerInfo:  o.CustomerInfo,
		Items:         items,
		Subtotal:      o.Subtotal,
		Discount:      o.Discount,
		DiscountCode:  o.DiscountCode,
		DeliveryFee:   o.DeliveryFee,
		Total:         o.Total,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		OrderDate:     o.CreatedAt,
	}
}
