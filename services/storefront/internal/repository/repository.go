package repository

import (
	"context"

	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/pagination"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/domain"
)

// CouponFilter narrows coupon listings.
type CouponFilter struct {
	Active *bool
	Page   pagination.Params
}

// CouponRepository persists coupons.
type CouponRepository interface {
	// Create inserts a coupon. A duplicate code is an AlreadyExists error.
	Create(ctx context.Context, coupon *domain.Coupon) error

	// GetByCode looks a coupon up by its normalized code.
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)

	// List returns one page of coupons and the total match count.
	List(ctx context.Context, filter CouponFilter) ([]domain.Coupon, int, error)

	// SetActive switches a coupon on or off and returns the updated row.
	SetActive(ctx context.Context, code string, active bool) (*domain.Coupon, error)
}

// OrderRepository reads orders and applies post-checkout state changes.
type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// ListByUser returns a page of the user's orders, newest first.
	ListByUser(ctx context.Context, userID string, page pagination.Params) ([]domain.Order, int, error)

	// UpdateStatus moves an order from one status to another. It fails
	// with a Conflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id, from, to string) error

	// MarkPaid sets the payment status of the order and its invoice to
	// Paid in one transaction and moves the order to status.
	MarkPaid(ctx context.Context, id, status string) error
}

// InvoiceRepository reads invoices exactly as they were written.
type InvoiceRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Invoice, error)
}

// PlacementRepository writes everything a checkout produces atomically.
type PlacementRepository interface {
	// PlaceOrder inserts the order, its items and the invoice, and consumes
	// the coupon when redemption is non-nil. Either all of it is stored or
	// none of it is. An exhausted coupon yields a CouponRejected error.
	PlaceOrder(ctx context.Context, order *domain.Order, invoice *domain.Invoice, redemption *domain.CouponRedemption) error
}

// CartRepository stores the server-side cart mirror.
type CartRepository interface {
	// Get returns the stored cart, or an empty cart at version 0.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// SaveIfVersion stores cart only if the stored version still equals
	// expected, and bumps the version. It reports false on a lost race.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expected int64) (bool, error)

	// Delete removes the cart.
	Delete(ctx context.Context, userID string) error
}

// IdempotencyRepository remembers the outcome of keyed requests.
type IdempotencyRepository interface {
	// Reserve claims key. When the key already completed, the stored
	// response is returned and reserved is false. A key still being
	// processed yields a Conflict error.
	Reserve(ctx context.Context, key string) (stored []byte, reserved bool, err error)

	// Complete stores the response for key.
	Complete(ctx context.Context, key string, response []byte) error

	// Release forgets key so the request can be retried.
	Release(ctx context.Context, key string) error
}
