package service

import (
	"context"
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

// ValidateCouponInput is the body of a coupon preview.
type ValidateCouponInput struct {
	Code        string          `json:"code" validate:"required"`
	OrderAmount decimal.Decimal `json:"orderAmount" validate:"gte=0"`
}

// CouponValidation is the answer to a coupon preview. A rejected coupon is
// Valid=false with a Message, not an error.
type CouponValidation struct {
	Valid   bool                `json:"valid"`
	Coupon  *domain.CouponQuote `json:"coupon,omitempty"`
	Message string              `json:"message,omitempty"`
}

// CreateCouponInput holds the fields of a new coupon.
type CreateCouponInput struct {
	Code              string           `json:"code" validate:"required,max=64"`
	Description       string           `json:"description" validate:"max=500"`
	DiscountType      string           `json:"discountType" validate:"required,oneof=percentage fixed free_delivery"`
	DiscountValue     decimal.Decimal  `json:"discountValue" validate:"gte=0"`
	MinOrderAmount    *decimal.Decimal `json:"minOrderAmount,omitempty"`
	MaxDiscountAmount *decimal.Decimal `json:"maxDiscountAmount,omitempty"`
	UsageLimit        *int             `json:"usageLimit,omitempty" validate:"omitempty,gte=1"`
	ValidFrom         time.Time        `json:"validFrom" validate:"required"`
	ValidUntil        time.Time        `json:"validUntil" validate:"required"`
	IsActive          *bool            `json:"isActive,omitempty"`
}

// CouponService validates coupons for shoppers and manages them for admins.
type CouponService struct {
	repo     repository.CouponRepository
	producer *event.Producer
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewCouponService creates a coupon service. metrics may be nil.
func NewCouponService(repo repository.CouponRepository, producer *event.Producer, metrics *Metrics, logger *slog.Logger) *CouponService {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &CouponService{
		repo:     repo,
		producer: producer,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Validate previews code against orderAmount. It never changes the
// coupon's usage count.
func (s *CouponService) Validate(ctx context.Context, input ValidateCouponInput) (*CouponValidation, error) {
	input.Code = strings.TrimSpace(input.Code)
	if err := validator.Validate(&input); err != nil {
		return nil, err
	}

	_, quote, rejection, err := s.quote(ctx, input.Code, input.OrderAmount)
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		s.metrics.CouponValidations.WithLabelValues(OutcomeRejected).Inc()
		return &CouponValidation{Valid: false, Message: rejection.Reason}, nil
	}

	s.metrics.CouponValidations.WithLabelValues(OutcomeValid).Inc()
	return &CouponValidation{Valid: true, Coupon: &quote}, nil
}

// quote looks the coupon up and evaluates it for orderAmount. An unknown
// code is a rejection, not an error.
func (s *CouponService) quote(ctx context.Context, code string, orderAmount decimal.Decimal) (*domain.Coupon, domain.CouponQuote, *domain.CouponRejection, error) {
	normalized := domain.NormalizeCouponCode(code)
	if normalized == "" {
		return nil, domain.CouponQuote{}, &domain.CouponRejection{Reason: domain.RejectNotFound}, nil
	}

	coupon, err := s.repo.GetByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.CouponQuote{}, &domain.CouponRejection{Reason: domain.RejectNotFound}, nil
		}
		return nil, domain.CouponQuote{}, nil, fmt.Errorf("get coupon %s: %w", normalized, err)
	}

	quote, rejection := coupon.Evaluate(orderAmount, s.now())
	if rejection != nil {
		s.logger.DebugContext(ctx, "coupon rejected",
			slog.String("code", normalized),
			slog.String("reason", rejection.Reason),
		)
		return coupon, domain.CouponQuote{}, rejection, nil
	}
	return coupon, quote, nil, nil
}

// CreateCoupon stores a new coupon and announces it.
func (s *CouponService) CreateCoupon(ctx context.Context, input CreateCouponInput) (*domain.Coupon, error) {
	if err := validator.Validate(&input); err != nil {
		return nil, err
	}

	fields := make(map[string]string)
	switch input.DiscountType {
	case domain.DiscountTypePercentage:
		if !input.DiscountValue.IsPositive() || input.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
			fields["discountValue"] = "must be greater than 0 and at most 100 for a percentage coupon"
		}
	case domain.DiscountTypeFixed:
		if !input.DiscountValue.IsPositive() {
			fields["discountValue"] = "must be greater than 0 for a fixed coupon"
		}
	}
	if input.MinOrderAmount != nil && input.MinOrderAmount.IsNegative() {
		fields["minOrderAmount"] = "must be greater than or equal to 0"
	}
	if input.MaxDiscountAmount != nil && !input.MaxDiscountAmount.IsPositive() {
		fields["maxDiscountAmount"] = "must be greater than 0"
	}
	if !input.ValidUntil.After(input.ValidFrom) {
		fields["validUntil"] = "must be after validFrom"
	}
	if len(fields) > 0 {
		return nil, apperrors.InvalidFields("validation failed", fields)
	}

	now := s.now()
	coupon := &domain.Coupon{
		ID:            uuid.New().String(),
		Code:          domain.NormalizeCouponCode(input.Code),
		Description:   strings.TrimSpace(input.Description),
		DiscountType:  input.DiscountType,
		DiscountValue: input.DiscountValue,
		UsageLimit:    input.UsageLimit,
		ValidFrom:     input.ValidFrom.UTC(),
		ValidUntil:    input.ValidUntil.UTC(),
		IsActive:      input.IsActive == nil || *input.IsActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if input.DiscountType == domain.DiscountTypeFreeDelivery {
		coupon.DiscountValue = decimal.Zero
	}
	if input.MinOrderAmount != nil {
		coupon.MinOrderAmount = decimal.NewNullDecimal(*input.MinOrderAmount)
	}
	if input.MaxDiscountAmount != nil {
		coupon.MaxDiscountAmount = decimal.NewNullDecimal(*input.MaxDiscountAmount)
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}

	if err := s.producer.PublishCouponCreated(ctx, coupon); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish coupon.created event",
			slog.String("coupon_id", coupon.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "coupon created",
		slog.String("coupon_id", coupon.ID),
		slog.String("code", coupon.Code),
		slog.String("discount_type", coupon.DiscountType),
	)
	return coupon, nil
}

// GetCoupon returns a coupon by code.
func (s *CouponService) GetCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	normalized := domain.NormalizeCouponCode(code)
	if normalized == "" {
		return nil, apperrors.InvalidInput("coupon code is required")
	}
	return s.repo.GetByCode(ctx, normalized)
}

// ListCoupons returns one page of coupons.
func (s *CouponService) ListCoupons(ctx context.Context, filter repository.CouponFilter) ([]domain.Coupon, int, error) {
	coupons, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, total, nil
}

// SetCouponActive switches a coupon on or off.
func (s *CouponService) SetCouponActive(ctx context.Context, code string, active bool) (*domain.Coupon, error) {
	normalized := domain.NormalizeCouponCode(code)
	if normalized == "" {
		return nil, apperrors.InvalidInput("coupon code is required")
	}

	coupon, err := s.repo.SetActive(ctx, normalized, active)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "coupon status changed",
		slog.String("code", normalized),
		slog.Bool("active", active),
	)
	return coupon, nil
}
