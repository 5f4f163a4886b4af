package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/errors"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/validator"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/domain"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/repository"
)

// MaxItemsPerCart bounds the number of distinct lines in a cart.
const MaxItemsPerCart = 50

// CartView is a cart with its computed totals. Message explains a coupon
// that was refused or dropped by the last change.
type CartView struct {
	Cart        *domain.Cart    `json:"cart"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	FinalTotal  decimal.Decimal `json:"finalTotal"`
	TotalWeight decimal.Decimal `json:"totalWeight"`
	ItemCount   int             `json:"itemCount"`
	Message     string          `json:"message,omitempty"`
}

// NewCartView computes the totals of cart.
func NewCartView(cart *domain.Cart, message string) *CartView {
	return &CartView{
		Cart:        cart,
		Subtotal:    cart.Subtotal(),
		Discount:    cart.Discount(),
		FinalTotal:  cart.FinalTotal(),
		TotalWeight: cart.TotalWeight(),
		ItemCount:   cart.ItemCount(),
		Message:     message,
	}
}

// UpdateQuantityInput is the body of a quantity change.
type UpdateQuantityInput struct {
	Quantity int `json:"quantity"`
}

// ApplyCouponInput is the body of a coupon application.
type ApplyCouponInput struct {
	Code string `json:"code" validate:"required"`
}

// CartService keeps the server-side cart mirror. Every change re-quotes
// the attached coupon against the new subtotal.
type CartService struct {
	repo    repository.CartRepository
	coupons *CouponService
	logger  *slog.Logger
	now     func() time.Time
}

// NewCartService creates a cart service.
func NewCartService(repo repository.CartRepository, coupons *CouponService, logger *slog.Logger) *CartService {
	return &CartService{
		repo:    repo,
		coupons: coupons,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type cartChange func(ctx context.Context, cart domain.Cart) (domain.Cart, string, error)

// GetCart returns the user's cart.
func (s *CartService) GetCart(ctx context.Context, userID string) (*CartView, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return NewCartView(cart, ""), nil
}

// AddItem adds a line, merging with an existing line of the same product.
func (s *CartService) AddItem(ctx context.Context, userID string, input ItemInput) (*CartView, error) {
	if err := validator.Validate(&input); err != nil {
		return nil, err
	}
	problems := input.precisionProblems("")
	if input.MaxStock > 0 && input.Quantity > input.MaxStock {
		problems["quantity"] = fmt.Sprintf("must be at most %d", input.MaxStock)
	}
	if len(problems) > 0 {
		return nil, apperrors.InvalidFields("request validation failed", problems)
	}

	return s.mutate(ctx, userID, func(_ context.Context, cart domain.Cart) (domain.Cart, string, error) {
		item := input.CartItem()
		if cart.IndexOf(item.ID) < 0 && len(cart.Items) >= MaxItemsPerCart {
			return cart, "", apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d items", MaxItemsPerCart))
		}
		return cart.AddItem(item), "", nil
	})
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*CartView, error) {
	return s.mutate(ctx, userID, func(_ context.Context, cart domain.Cart) (domain.Cart, string, error) {
		if cart.IndexOf(itemID) < 0 {
			return cart, "", apperrors.NotFound("cart item", itemID)
		}
		return cart.UpdateQuantity(itemID, quantity), "", nil
	})
}

// RemoveItem drops a line.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) (*CartView, error) {
	return s.mutate(ctx, userID, func(_ context.Context, cart domain.Cart) (domain.Cart, string, error) {
		if cart.IndexOf(itemID) < 0 {
			return cart, "", apperrors.NotFound("cart item", itemID)
		}
		return cart.RemoveItem(itemID), "", nil
	})
}

// ApplyCoupon attaches a coupon. A refused coupon leaves the cart as it was
// and comes back as the view's Message.
func (s *CartService) ApplyCoupon(ctx context.Context, userID string, input ApplyCouponInput) (*CartView, error) {
	input.Code = strings.TrimSpace(input.Code)
	if err := validator.Validate(&input); err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, func(ctx context.Context, cart domain.Cart) (domain.Cart, string, error) {
		_, quote, rejection, err := s.coupons.quote(ctx, input.Code, cart.Subtotal())
		if err != nil {
			return cart, "", err
		}
		if rejection != nil {
			return cart, rejection.Reason, nil
		}
		return cart.ApplyCoupon(appliedFrom(quote)), "", nil
	})
}

// RemoveCoupon detaches the coupon.
func (s *CartService) RemoveCoupon(ctx context.Context, userID string) (*CartView, error) {
	return s.mutate(ctx, userID, func(_ context.Context, cart domain.Cart) (domain.Cart, string, error) {
		return cart.RemoveCoupon(), "", nil
	})
}

// ClearCart empties the cart and drops its coupon.
func (s *CartService) ClearCart(ctx context.Context, userID string) (*CartView, error) {
	return s.mutate(ctx, userID, func(_ context.Context, cart domain.Cart) (domain.Cart, string, error) {
		return cart.Clear(), "", nil
	})
}

// mutate loads the cart, applies change, re-quotes the coupon and saves
// the result if nobody else wrote the cart in between.
func (s *CartService) mutate(ctx context.Context, userID string, change cartChange) (*CartView, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	current, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	expected := current.Version

	next, message, err := change(ctx, *current)
	if err != nil {
		return nil, err
	}

	next, dropped, err := s.requote(ctx, next)
	if err != nil {
		return nil, err
	}
	if message == "" {
		message = dropped
	}
	next.UpdatedAt = s.now()

	saved, err := s.repo.SaveIfVersion(ctx, &next, expected)
	if err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	if !saved {
		return nil, apperrors.Conflict("cart was modified concurrently, please retry")
	}

	s.logger.DebugContext(ctx, "cart updated",
		slog.String("user_id", userID),
		slog.Int64("version", next.Version),
		slog.Int("items", len(next.Items)),
	)
	return NewCartView(&next, message), nil
}

// requote refreshes the attached coupon's discount for the cart's current
// subtotal. A coupon that no longer applies is removed and its rejection
// reason returned.
func (s *CartService) requote(ctx context.Context, cart domain.Cart) (domain.Cart, string, error) {
	if cart.Coupon == nil {
		return cart, "", nil
	}

	_, quote, rejection, err := s.coupons.quote(ctx, cart.Coupon.Code, cart.Subtotal())
	if err != nil {
		return cart, "", err
	}
	if rejection != nil {
		s.logger.InfoContext(ctx, "coupon dropped from cart",
			slog.String("user_id", cart.UserID),
			slog.String("code", cart.Coupon.Code),
			slog.String("reason", rejection.Reason),
		)
		return cart.RemoveCoupon(), rejection.Reason, nil
	}
	return cart.ApplyCoupon(appliedFrom(quote)), "", nil
}

func appliedFrom(q domain.CouponQuote) domain.AppliedCoupon {
	return domain.AppliedCoupon{
		Code:           q.Code,
		DiscountType:   q.DiscountType,
		DiscountAmount: q.DiscountAmount,
		FreeDelivery:   q.FreeDelivery,
	}
}
