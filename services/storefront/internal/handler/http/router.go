package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/health"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/middleware"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/service"
)

// ServiceName labels metrics and spans emitted by the router.
const ServiceName = "storefront"

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Checkout *service.CheckoutService
	Orders   *service.OrderService
	Coupons  *service.CouponService
	Carts    *service.CartService
	Health   *health.Handler

	// Registry backs both the HTTP metrics and the /metrics endpoint.
	Registry *prometheus.Registry

	// TokenValidator guards the admin routes.
	TokenValidator middleware.TokenValidator

	// RateLimiter throttles coupon checks and order submission. nil disables it.
	RateLimiter func(http.Handler) http.Handler

	CORS           middleware.CORSConfig
	PprofCIDRs     []string
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter creates the chi router with every storefront route registered.
func NewRouter(cfg RouterConfig) (http.Handler, error) {
	httpMetrics, err := middleware.NewHTTPMetrics(cfg.Registry, ServiceName)
	if err != nil {
		return nil, err
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	throttle := cfg.RateLimiter
	if throttle == nil {
		throttle = func(next http.Handler) http.Handler { return next }
	}

	r := chi.NewRouter()

	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(timeout))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(httpMetrics.Handler)
	r.Use(middleware.Tracing(ServiceName))

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{Registry: cfg.Registry}))
	middleware.RegisterPprof(r, cfg.PprofCIDRs, cfg.Logger)

	coupons := NewCouponHandler(cfg.Coupons, cfg.Logger)
	orders := NewOrderHandler(cfg.Checkout, cfg.Orders, cfg.Logger)
	carts := NewCartHandler(cfg.Carts, cfg.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NoStore)

		r.With(throttle).Post("/coupons/validate", coupons.Validate)

		r.Route("/orders", func(r chi.Router) {
			r.With(throttle).Post("/", orders.CreateOrder)
			r.Get("/user/{userId}", orders.ListUserOrders)
			r.Get("/{orderId}", orders.GetOrder)
			r.Get("/{orderId}/invoice", orders.GetOrderInvoice)
		})
		r.Get("/invoices/{invoiceId}", orders.GetInvoice)

		r.Route("/cart", func(r chi.Router) {
			r.Use(RequireUserID)

			r.Get("/", carts.GetCart)
			r.Delete("/", carts.ClearCart)
			r.Post("/items", carts.AddItem)
			r.Patch("/items/{itemId}", carts.UpdateQuantity)
			r.Delete("/items/{itemId}", carts.RemoveItem)
			r.Post("/coupon", carts.ApplyCoupon)
			r.Delete("/coupon", carts.RemoveCoupon)
		})

		r.Route("/admin/coupons", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.TokenValidator))
			r.Use(middleware.RequireRole("admin"))

			r.Post("/", coupons.CreateCoupon)
			r.Get("/", coupons.ListCoupons)
			r.Get("/{code}", coupons.GetCoupon)
			r.Patch("/{code}/status", coupons.SetStatus)
		})
	})

	return r, nil
}
