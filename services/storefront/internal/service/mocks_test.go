package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	pkgkafka "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/kafka"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/pagination"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/domain"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/event"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/repository"
)

// --- Repository mocks ---

type mockCouponRepository struct {
	mock.Mock
}

func (m *mockCouponRepository) Create(ctx context.Context, c *domain.Coupon) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Coupon), args.Error(1)
}

func (m *mockCouponRepository) List(ctx context.Context, filter repository.CouponFilter) ([]domain.Coupon, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Coupon), args.Int(1), args.Error(2)
}

func (m *mockCouponRepository) SetActive(ctx context.Context, code string, active bool) (*domain.Coupon, error) {
	args := m.Called(ctx, code, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Coupon), args.Error(1)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID string, page pagination.Params) ([]domain.Order, int, error) {
	args := m.Called(ctx, userID, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id, from, to string) error {
	return m.Called(ctx, id, from, to).Error(0)
}

func (m *mockOrderRepository) MarkPaid(ctx context.Context, id, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

type mockInvoiceRepository struct {
	mock.Mock
}

func (m *mockInvoiceRepository) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *mockInvoiceRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Invoice, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

type mockPlacementRepository struct {
	mock.Mock
}

func (m *mockPlacementRepository) PlaceOrder(ctx context.Context, o *domain.Order, inv *domain.Invoice, r *domain.CouponRedemption) error {
	return m.Called(ctx, o, inv, r).Error(0)
}

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expected int64) (bool, error) {
	args := m.Called(ctx, cart, expected)
	return args.Bool(0), args.Error(1)
}

func (m *mockCartRepository) Delete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockIdempotencyRepository struct {
	mock.Mock
}

func (m *mockIdempotencyRepository) Reserve(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.Bool(1), args.Error(2)
}

func (m *mockIdempotencyRepository) Complete(ctx context.Context, key string, response []byte) error {
	return m.Called(ctx, key, response).Error(0)
}

func (m *mockIdempotencyRepository) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type mockStockChecker struct {
	mock.Mock
}

func (m *mockStockChecker) CheckStock(ctx context.Context, items []domain.CartItem) error {
	return m.Called(ctx, items).Error(0)
}

// --- Event publisher ---

type recordingPublisher struct {
	topics []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ *pkgkafka.Event) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	return nil
}

// --- Helpers ---

var testNow = time.Date(2026, 4, 10, 9, 30, 0, 0, time.UTC)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestProducer(pub *recordingPublisher) *event.Producer {
	return event.NewProducer(pub, newTestLogger())
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(v int) *int { return &v }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func welcome10() *domain.Coupon {
	return &domain.Coupon{
		ID:                "cpn-welcome",
		Code:              "WELCOME10",
		DiscountType:      domain.DiscountTypePercentage,
		DiscountValue:     dec("10"),
		MinOrderAmount:    decimal.NewNullDecimal(dec("500")),
		MaxDiscountAmount: decimal.NewNullDecimal(dec("300")),
		ValidFrom:         testNow.AddDate(0, -1, 0),
		ValidUntil:        testNow.AddDate(1, 0, 0),
		IsActive:          true,
	}
}

func free10() *domain.Coupon {
	return &domain.Coupon{
		ID:            "cpn-free",
		Code:          "FREE10",
		DiscountType:  domain.DiscountTypeFreeDelivery,
		DiscountValue: decimal.Zero,
		UsageLimit:    intPtr(1000),
		UsedCount:     10,
		ValidFrom:     testNow.AddDate(0, -1, 0),
		ValidUntil:    testNow.AddDate(1, 0, 0),
		IsActive:      true,
	}
}

func newTestCouponService(repo *mockCouponRepository, pub *recordingPublisher) *CouponService {
	s := NewCouponService(repo, newTestProducer(pub), NewMetrics(), newTestLogger())
	s.now = func() time.Time { return testNow }
	return s
}
