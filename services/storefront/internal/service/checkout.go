package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/errors"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/validator"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/domain"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/event"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/repository"
)

// PlaceOrderInput is the checkout submission. The money fields are what
// the client computed; they are compared against the server figures and
// never trusted.
type PlaceOrderInput struct {
	UserID          string                  `json:"userId"`
	CustomerInfo    domain.CustomerInfo     `json:"customerInfo"`
	Items           []ItemInput             `json:"items" validate:"required,min=1,dive"`
	ShippingAddress *domain.ShippingAddress `json:"shippingAddress,omitempty"`
	PaymentMethod   string                  `json:"paymentMethod" label:"Payment Method" validate:"omitempty,oneof=cod bkash nagad card"`
	DiscountCode    string                  `json:"discountCode,omitempty"`

	Subtotal    *decimal.Decimal `json:"subtotal,omitempty"`
	Discount    *decimal.Decimal `json:"discount,omitempty"`
	DeliveryFee *decimal.Decimal `json:"deliveryFee,omitempty"`
	Total       *decimal.Decimal `json:"total,omitempty"`
	TotalWeight *decimal.Decimal `json:"totalWeight,omitempty"`
}

// PlaceOrderResult is the created order and its invoice.
type PlaceOrderResult struct {
	Order   *domain.Order   `json:"order"`
	Invoice *domain.Invoice `json:"invoice"`
}

// Pricing is the server-side breakdown of a checkout.
type Pricing struct {
	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	DeliveryFee  decimal.Decimal
	Total        decimal.Decimal
	TotalWeight  decimal.Decimal
	FreeDelivery bool
	Coupon       *domain.Coupon
}

// CheckoutService turns a checkout submission into a persisted order.
type CheckoutService struct {
	placement   repository.PlacementRepository
	carts       repository.CartRepository
	idempotency repository.IdempotencyRepository
	coupons     *CouponService
	stock       StockChecker
	producer    *event.Producer
	metrics     *Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// NewCheckoutService creates a checkout service. idempotency and metrics
// may be nil.
func NewCheckoutService(
	placement repository.PlacementRepository,
	carts repository.CartRepository,
	idempotency repository.IdempotencyRepository,
	coupons *CouponService,
	stock StockChecker,
	producer *event.Producer,
	metrics *Metrics,
	logger *slog.Logger,
) *CheckoutService {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &CheckoutService{
		placement:   placement,
		carts:       carts,
		idempotency: idempotency,
		coupons:     coupons,
		stock:       stock,
		producer:    producer,
		metrics:     metrics,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrderOnce is PlaceOrder guarded by an idempotency key. A repeated
// key returns the first result; a key still in flight is a Conflict.
func (s *CheckoutService) PlaceOrderOnce(ctx context.Context, key string, input PlaceOrderInput) (*PlaceOrderResult, error) {
	key = strings.TrimSpace(key)
	if key == "" || s.idempotency == nil {
		return s.PlaceOrder(ctx, input)
	}
	scoped := idempotencyScope(input) + ":" + key

	stored, reserved, err := s.idempotency.Reserve(ctx, scoped)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
		s.logger.WarnContext(ctx, "idempotency store unavailable, placing order without it",
			slog.String("error", err.Error()),
		)
		return s.PlaceOrder(ctx, input)
	}
	if !reserved {
		var replay PlaceOrderResult
		if err := json.Unmarshal(stored, &replay); err != nil {
			return nil, fmt.Errorf("decode stored checkout result: %w", err)
		}
		s.logger.InfoContext(ctx, "replaying checkout result",
			slog.String("order_id", replay.Order.ID),
		)
		return &replay, nil
	}

	result, err := s.PlaceOrder(ctx, input)
	if err != nil {
		if relErr := s.idempotency.Release(ctx, scoped); relErr != nil {
			s.logger.WarnContext(ctx, "failed to release idempotency key", slog.String("error", relErr.Error()))
		}
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := s.idempotency.Complete(ctx, scoped, data); err != nil {
			s.logger.WarnContext(ctx, "failed to store checkout result", slog.String("error", err.Error()))
		}
	}
	return result, nil
}

// PlaceOrder validates the submission, prices it on the server, and stores
// the order, its invoice and the coupon redemption in one transaction.
func (s *CheckoutService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	normalizeCheckout(&input)

	if err := validateCheckout(&input); err != nil {
		s.metrics.CheckoutFailures.WithLabelValues("validation").Inc()
		return nil, err
	}

	items := make([]domain.CartItem, len(input.Items))
	for i, in := range input.Items {
		items[i] = in.CartItem()
	}

	if err := s.stock.CheckStock(ctx, items); err != nil {
		s.metrics.CheckoutFailures.WithLabelValues("stock").Inc()
		return nil, err
	}

	shipping := domain.ShippingFromCustomer(input.CustomerInfo)
	if input.ShippingAddress != nil && !input.ShippingAddress.IsZero() {
		shipping = *input.ShippingAddress
	}

	pricing, err := s.Price(ctx, items, input.DiscountCode, shipping.District)
	if err != nil {
		return nil, err
	}
	s.compareClientFigures(ctx, input, pricing)

	now := s.now()
	paymentMethod := input.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = domain.PaymentMethodCashOnDelivery
	}

	order := &domain.Order{
		ID:              uuid.New().String(),
		UserID:          input.UserID,
		OrderNumber:     domain.NewOrderNumber(now),
		Status:          domain.InitialStatus(paymentMethod),
		PaymentMethod:   paymentMethod,
		PaymentStatus:   domain.PaymentStatusPending,
		Items:           items,
		CustomerInfo:    input.CustomerInfo,
		ShippingAddress: shipping,
		Subtotal:        pricing.Subtotal,
		Discount:        pricing.Discount,
		DeliveryFee:     pricing.DeliveryFee,
		Total:           pricing.Total,
		TotalWeight:     pricing.TotalWeight,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var redemption *domain.CouponRedemption
	if pricing.Coupon != nil {
		order.DiscountCode = pricing.Coupon.Code
		redemption = &domain.CouponRedemption{
			ID:             uuid.New().String(),
			CouponID:       pricing.Coupon.ID,
			OrderID:        order.ID,
			UserID:         order.UserID,
			DiscountAmount: pricing.Discount,
			RedeemedAt:     now,
		}
	}
	invoice := domain.NewInvoice(uuid.New().String(), order)

	if err := s.placement.PlaceOrder(ctx, order, invoice, redemption); err != nil {
		if errors.Is(err, apperrors.ErrCouponRejected) {
			s.metrics.CheckoutFailures.WithLabelValues("coupon").Inc()
			return nil, err
		}
		s.metrics.CheckoutFailures.WithLabelValues("persistence").Inc()
		s.logger.ErrorContext(ctx, "order placement failed",
			slog.String("order_number", order.OrderNumber),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.PersistenceFailure(err)
	}

	s.afterPlacement(ctx, order, redemption, pricing.Coupon)

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
		slog.String("user_id", order.UserID),
		slog.String("payment_method", order.PaymentMethod),
		slog.String("total", order.Total.StringFixed(2)),
	)
	return &PlaceOrderResult{Order: order, Invoice: invoice}, nil
}

// Price computes subtotal, discount, delivery fee and total for items sent
// to district. A coupon that no longer applies is a CouponRejected error.
func (s *CheckoutService) Price(ctx context.Context, items []domain.CartItem, code, district string) (*Pricing, error) {
	p := &Pricing{
		Subtotal:    domain.Subtotal(items),
		Discount:    decimal.Zero,
		TotalWeight: domain.TotalWeight(items),
	}

	if code != "" {
		coupon, quote, rejection, err := s.coupons.quote(ctx, code, p.Subtotal)
		if err != nil {
			return nil, err
		}
		if rejection != nil {
			s.metrics.CheckoutFailures.WithLabelValues("coupon").Inc()
			return nil, apperrors.CouponRejected(rejection.Reason)
		}
		p.Coupon = coupon
		p.Discount = quote.DiscountAmount
		p.FreeDelivery = quote.FreeDelivery
	}

	p.DeliveryFee = domain.ComputeDeliveryFee(district, p.TotalWeight, p.FreeDelivery)
	p.Total = p.Subtotal.Sub(p.Discount).Add(p.DeliveryFee)
	if p.Total.IsNegative() {
		return nil, apperrors.Internal(fmt.Errorf("negative order total %s (subtotal %s, discount %s, delivery %s)",
			p.Total, p.Subtotal, p.Discount, p.DeliveryFee))
	}
	return p, nil
}

// afterPlacement runs the side effects of a committed order. Failures are
// logged and never undo the order.
func (s *CheckoutService) afterPlacement(ctx context.Context, order *domain.Order, redemption *domain.CouponRedemption, coupon *domain.Coupon) {
	if order.UserID != "" && s.carts != nil {
		if err := s.carts.Delete(ctx, order.UserID); err != nil {
			s.logger.WarnContext(ctx, "failed to clear cart after checkout",
				slog.String("user_id", order.UserID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.producer.PublishOrderPlaced(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.placed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	if redemption != nil {
		if err := s.producer.PublishCouponRedeemed(ctx, order.DiscountCode, redemption); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish coupon.redeemed event",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.metrics.OrdersPlaced.WithLabelValues(order.PaymentMethod).Inc()
	total, _ := order.Total.Float64()
	s.metrics.OrderTotal.Observe(total)
	if coupon != nil {
		s.metrics.CouponRedemptions.WithLabelValues(coupon.DiscountType).Inc()
	}
}

// compareClientFigures logs every client figure that differs from the
// server's. The server figures are always the ones stored.
func (s *CheckoutService) compareClientFigures(ctx context.Context, input PlaceOrderInput, p *Pricing) {
	checks := []struct {
		field  string
		client *decimal.Decimal
		server decimal.Decimal
	}{
		{"subtotal", input.Subtotal, p.Subtotal},
		{"discount", input.Discount, p.Discount},
		{"deliveryFee", input.DeliveryFee, p.DeliveryFee},
		{"total", input.Total, p.Total},
		{"totalWeight", input.TotalWeight, p.TotalWeight},
	}
	for _, c := range checks {
		if c.client == nil || c.client.Equal(c.server) {
			continue
		}
		s.metrics.PricingMismatches.WithLabelValues(c.field).Inc()
		s.logger.WarnContext(ctx, "client pricing differs from server",
			slog.String("field", c.field),
			slog.String("client", c.client.String()),
			slog.String("server", c.server.String()),
		)
	}
}

// idempotencyScope namespaces a key by user. Guests have no user id, so
// their keys are scoped by the normalised email and phone instead.
func idempotencyScope(in PlaceOrderInput) string {
	if userID := strings.TrimSpace(in.UserID); userID != "" {
		return userID
	}
	return "guest:" + strings.ToLower(strings.TrimSpace(in.CustomerInfo.Email)) +
		":" + validator.NormalizePhone(in.CustomerInfo.Phone)
}

func normalizeCheckout(in *PlaceOrderInput) {
	in.UserID = strings.TrimSpace(in.UserID)
	in.DiscountCode = strings.TrimSpace(in.DiscountCode)
	in.PaymentMethod = strings.ToLower(strings.TrimSpace(in.PaymentMethod))

	c := &in.CustomerInfo
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = validator.NormalizePhone(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	c.Division = strings.TrimSpace(c.Division)
	c.District = strings.TrimSpace(c.District)
	c.Thana = strings.TrimSpace(c.Thana)
	c.PostCode = strings.TrimSpace(c.PostCode)

	if a := in.ShippingAddress; a != nil {
		a.Address = strings.TrimSpace(a.Address)
		a.Division = strings.TrimSpace(a.Division)
		a.District = strings.TrimSpace(a.District)
		a.Thana = strings.TrimSpace(a.Thana)
		a.PostCode = strings.TrimSpace(a.PostCode)
	}
}

// validateCheckout reports every failing field at once.
func validateCheckout(in *PlaceOrderInput) error {
	fields := make(map[string]string)

	if err := validator.Validate(in); err != nil {
		var valErr *validator.ValidationError
		if !errors.As(err, &valErr) {
			return apperrors.InvalidInput(err.Error())
		}
		for k, v := range valErr.Fields() {
			fields[k] = v
		}
	}

	for i, item := range in.Items {
		prefix := fmt.Sprintf("items[%d].", i)
		if item.MaxStock > 0 && item.Quantity > item.MaxStock {
			fields[prefix+"quantity"] = fmt.Sprintf("must be at most %d", item.MaxStock)
		}
		for k, v := range item.precisionProblems(prefix) {
			fields[k] = v
		}
	}

	if len(fields) > 0 {
		return apperrors.InvalidFields("request validation failed", fields)
	}
	return nil
}
