package service

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Coupon validation outcomes.
const (
	OutcomeValid    = "valid"
	OutcomeRejected = "rejected"
)

// Metrics holds the storefront business collectors.
type Metrics struct {
	OrdersPlaced      *prometheus.CounterVec
	OrderTotal        prometheus.Histogram
	CheckoutFailures  *prometheus.CounterVec
	CouponValidations *prometheus.CounterVec
	CouponRedemptions *prometheus.CounterVec
	PricingMismatches *prometheus.CounterVec
}

// NewMetrics builds the collectors. They are not registered.
func NewMetrics() *Metrics {
	return &Metrics{
		OrdersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Total number of orders placed",
		}, []string{"payment_method"}),
		OrderTotal: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_order_total_taka",
			Help:    "Distribution of order totals in taka",
			Buckets: []float64{250, 500, 1000, 2000, 5000, 10000, 25000, 50000},
		}),
		CheckoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_checkout_failures_total",
			Help: "Total number of rejected or failed checkouts",
		}, []string{"reason"}),
		CouponValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_coupon_validations_total",
			Help: "Total number of coupon validations by outcome",
		}, []string{"outcome"}),
		CouponRedemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_coupon_redemptions_total",
			Help: "Total number of coupons consumed by placed orders",
		}, []string{"discount_type"}),
		PricingMismatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_pricing_mismatches_total",
			Help: "Client supplied figures that differed from the server computation",
		}, []string{"field"}),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.OrdersPlaced, m.OrderTotal, m.CheckoutFailures,
		m.CouponValidations, m.CouponRedemptions, m.PricingMismatches,
	} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return fmt.Errorf("register storefront metrics: %w", err)
		}
	}
	return nil
}
