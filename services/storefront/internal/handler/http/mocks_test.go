package http

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/auth"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/health"
	pkgkafka "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/kafka"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/middleware"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/pagination"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/domain"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/event"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/repository"
	redisrepo "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/repository/redis"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/service"
)

// ============================================================================
// Mock repositories
// ============================================================================

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

type recordingPublisher struct {
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ *pkgkafka.Event) error {
	p.topics = append(p.topics, topic)
	return nil
}

// ============================================================================
// Test environment
// ============================================================================

const testJWTSecret = "storefront-test-secret"

type testEnv struct {
	router    http.Handler
	coupons   *mockCouponRepository
	orders    *mockOrderRepository
	invoices  *mockInvoiceRepository
	placement *mockPlacementRepository
	pub       *recordingPublisher
	redis     *miniredis.Miniredis
	verifier  *auth.HMACVerifier
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestEnv wires the real services and router over mocked Postgres
// repositories and a miniredis-backed cart mirror.
func newTestEnv(t *testing.T, opts ...func(*RouterConfig)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	env := &testEnv{
		coupons:   new(mockCouponRepository),
		orders:    new(mockOrderRepository),
		invoices:  new(mockInvoiceRepository),
		placement: new(mockPlacementRepository),
		pub:       &recordingPublisher{},
		redis:     mr,
		verifier:  auth.NewHMACVerifier(testJWTSecret, "storefront-test"),
	}

	logger := testLogger()
	producer := event.NewProducer(env.pub, logger)
	metrics := service.NewMetrics()
	carts := redisrepo.NewCartRepository(client, time.Hour)

	couponSvc := service.NewCouponService(env.coupons, producer, metrics, logger)
	checkoutSvc := service.NewCheckoutService(
		env.placement,
		carts,
		redisrepo.NewIdempotencyRepository(client, time.Hour),
		couponSvc,
		service.NewCatalogClient(nil, "", logger),
		producer,
		metrics,
		logger,
	)

	routerCfg := RouterConfig{
		Checkout:       checkoutSvc,
		Orders:         service.NewOrderService(env.orders, env.invoices, producer, logger),
		Coupons:        couponSvc,
		Carts:          service.NewCartService(carts, couponSvc, logger),
		Health:         health.NewHandler(),
		Registry:       prometheus.NewRegistry(),
		TokenValidator: env.verifier.Verify,
		CORS:           middleware.DefaultCORSConfig(),
		PprofCIDRs:     []string{"127.0.0.1/32"},
		Logger:         logger,
	}
	for _, opt := range opts {
		opt(&routerCfg)
	}
	router, err := NewRouter(routerCfg)
	require.NoError(t, err)
	env.router = router
	return env
}

func (e *testEnv) token(t *testing.T, role string) string {
	t.Helper()
	tok, err := e.verifier.Sign("admin-1", "ops@meowmeow.test", role, time.Hour)
	require.NoError(t, err)
	return tok
}
