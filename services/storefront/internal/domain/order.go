package domain

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Order status constants.
const (
	OrderStatusPending    = "Pending"
	OrderStatusProcessing = "Processing"
	OrderStatusShipped    = "Shipped"
	OrderStatusDelivered  = "Delivered"
	OrderStatusCancelled  = "Cancelled"
)

// Payment status constants.
const (
	PaymentStatusPending = "Pending"
	PaymentStatusPaid    = "Paid"
)

// Payment methods. Cash on delivery needs no online confirmation.
const (
	PaymentMethodCashOnDelivery = "cod"
	PaymentMethodBkash          = "bkash"
	PaymentMethodNagad          = "nagad"
	PaymentMethodCard           = "card"
)

// OrderNumberPrefix starts every order and invoice number.
const OrderNumberPrefix = "ORD-"

// CustomerInfo is the billing contact captured at checkout.
type CustomerInfo struct {
	FirstName string `json:"firstName" label:"First Name" validate:"required"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email" label:"Email Address" validate:"required,email"`
	Phone     string `json:"phone" label:"Phone Number" validate:"required,bdphone"`
	Address   string `json:"address" label:"Full Address" validate:"required"`
	Division  string `json:"division" label:"Division" validate:"required"`
	District  string `json:"district" label:"District" validate:"required"`
	Thana     string `json:"thana,omitempty"`
	PostCode  string `json:"postCode,omitempty"`
}

// ShippingAddress is where the parcel goes.
type ShippingAddress struct {
	Address  string `json:"address"`
	Division string `json:"division"`
	District string `json:"district"`
	Thana    string `json:"thana,omitempty"`
	PostCode string `json:"postCode,omitempty"`
}

// IsZero reports whether no address line was given.
func (a ShippingAddress) IsZero() bool {
	return a.Address == "" && a.District == ""
}

// ShippingFromCustomer copies the billing address.
func ShippingFromCustomer(c CustomerInfo) ShippingAddress {
	return ShippingAddress{
		Address:  c.Address,
		Division: c.Division,
		District: c.District,
		Thana:    c.Thana,
		PostCode: c.PostCode,
	}
}

// Order is a placed purchase. Items never change after creation.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	OrderNumber     string          `json:"orderNumber"`
	Status          string          `json:"status"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentStatus   string          `json:"paymentStatus"`
	Items           []CartItem      `json:"items"`
	CustomerInfo    CustomerInfo    `json:"customerInfo"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	DiscountCode    string          `json:"discountCode,omitempty"`
	DeliveryFee     decimal.Decimal `json:"deliveryFee"`
	Total           decimal.Decimal `json:"total"`
	TotalWeight     decimal.Decimal `json:"totalWeight"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// InitialStatus is Processing for cash on delivery and Pending while an
// online payment is outstanding.
func InitialStatus(paymentMethod string) string {
	if paymentMethod == PaymentMethodCashOnDelivery {
		return OrderStatusProcessing
	}
	return OrderStatusPending
}

// IsValidPaymentMethod reports whether m is accepted at checkout.
func IsValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodCashOnDelivery, PaymentMethodBkash, PaymentMethodNagad, PaymentMethodCard:
		return true
	}
	return false
}

// AllowedTransitions lists the statuses reachable from each status.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
		OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
		OrderStatusShipped:    {OrderStatusDelivered},
		OrderStatusDelivered:  {},
		OrderStatusCancelled:  {},
	}
}

// IsValidStatus reports whether status is known.
func IsValidStatus(status string) bool {
	_, ok := AllowedTransitions()[status]
	return ok
}

// CanTransitionTo reports whether the order may move to target.
func (o *Order) CanTransitionTo(target string) bool {
	for _, s := range AllowedTransitions()[o.Status] {
		if s == target {
			return true
		}
	}
	return false
}

var (
	entropyMu sync.Mutex
	entropy   io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// NewOrderNumber returns "ORD-" followed by a ULID for t. Numbers minted in
// the same millisecond still sort in creation order.
func NewOrderNumber(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return OrderNumberPrefix + ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
