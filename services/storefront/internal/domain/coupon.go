package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Discount types.
const (
	DiscountTypePercentage   = "percentage"
	DiscountTypeFixed        = "fixed"
	DiscountTypeFreeDelivery = "free_delivery"
)

// Coupon is a persisted discount rule.
type Coupon struct {
	ID                string              `json:"id"`
	Code              string              `json:"code"`
	Description       string              `json:"description"`
	DiscountType      string              `json:"discountType"`
	DiscountValue     decimal.Decimal     `json:"discountValue"`
	MinOrderAmount    decimal.NullDecimal `json:"minOrderAmount"`
	MaxDiscountAmount decimal.NullDecimal `json:"maxDiscountAmount"`
	UsageLimit        *int                `json:"usageLimit"`
	UsedCount         int                 `json:"usedCount"`
	ValidFrom         time.Time           `json:"validFrom"`
	ValidUntil        time.Time           `json:"validUntil"`
	IsActive          bool                `json:"isActive"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// CouponRedemption records that an order consumed a coupon. OrderID is
// unique, so an order can redeem at most once.
type CouponRedemption struct {
	ID             string          `json:"id"`
	CouponID       string          `json:"couponId"`
	OrderID        string          `json:"orderId"`
	UserID         string          `json:"userId"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	RedeemedAt     time.Time       `json:"redeemedAt"`
}

// CouponQuote is the outcome of a successful validation.
type CouponQuote struct {
	CouponID       string          `json:"-"`
	Code           string          `json:"code"`
	DiscountType   string          `json:"discountType"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FreeDelivery   bool            `json:"freeDelivery"`
}

// CouponRejection explains why a coupon cannot be applied. It is an
// expected outcome, not a failure.
type CouponRejection struct {
	Reason string
}

func (r *CouponRejection) Error() string { return r.Reason }

// Rejection reasons.
const (
	RejectNotFound   = "Invalid coupon code"
	RejectInactive   = "This coupon is no longer active"
	RejectNotStarted = "This coupon is not valid yet"
	RejectExpired    = "This coupon has expired"
	RejectExhausted  = "This coupon has reached its usage limit"
	RejectMinimum    = "Minimum order amount of %s required for this coupon"
)

// NormalizeCouponCode trims and upper-cases a code for lookup.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidDiscountType reports whether t is a known discount type.
func IsValidDiscountType(t string) bool {
	switch t {
	case DiscountTypePercentage, DiscountTypeFixed, DiscountTypeFreeDelivery:
		return true
	}
	return false
}

// Exhausted reports whether the usage limit has been reached.
func (c *Coupon) Exhausted() bool {
	return c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit
}

// Evaluate checks the coupon against orderAmount at time now and computes
// the discount. It never changes UsedCount.
func (c *Coupon) Evaluate(orderAmount decimal.Decimal, now time.Time) (CouponQuote, *CouponRejection) {
	switch {
	case !c.IsActive:
		return CouponQuote{}, &CouponRejection{Reason: RejectInactive}
	case now.Before(c.ValidFrom):
		return CouponQuote{}, &CouponRejection{Reason: RejectNotStarted}
	case now.After(c.ValidUntil):
		return CouponQuote{}, &CouponRejection{Reason: RejectExpired}
	case c.Exhausted():
		return CouponQuote{}, &CouponRejection{Reason: RejectExhausted}
	case c.MinOrderAmount.Valid && orderAmount.LessThan(c.MinOrderAmount.Decimal):
		return CouponQuote{}, &CouponRejection{Reason: minimumReason(c.MinOrderAmount.Decimal)}
	}

	quote := CouponQuote{
		CouponID:       c.ID,
		Code:           c.Code,
		DiscountType:   c.DiscountType,
		DiscountAmount: c.discountFor(orderAmount),
		FreeDelivery:   c.DiscountType == DiscountTypeFreeDelivery,
	}
	return quote, nil
}

func (c *Coupon) discountFor(orderAmount decimal.Decimal) decimal.Decimal {
	switch c.DiscountType {
	case DiscountTypePercentage:
		d := orderAmount.Mul(c.DiscountValue).Div(decimal.NewFromInt(100))
		if c.MaxDiscountAmount.Valid {
			d = decimal.Min(d, c.MaxDiscountAmount.Decimal)
		}
		return RoundMoney(decimal.Min(d, orderAmount))
	case DiscountTypeFixed:
		return decimal.Min(c.DiscountValue, orderAmount)
	default:
		return decimal.Zero
	}
}

func minimumReason(minimum decimal.Decimal) string {
	return fmt.Sprintf(RejectMinimum, minimum.StringFixed(2))
}
