package httpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig tunes a breaker guarding one downstream service.
type CircuitBreakerConfig struct {
	Name string

	// MaxRequests is the number of probes let through while half-open.
	MaxRequests uint32

	// Interval resets the failure counts while closed. Zero keeps them forever.
	Interval time.Duration

	// Timeout is how long the breaker rejects calls before probing again.
	Timeout time.Duration

	// The breaker opens once MinRequests calls were seen and at least
	// FailureRatio of them failed.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultCircuitBreakerConfig returns the settings used for the catalog.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// FallbackFunc replaces a rejected call. err is ErrCircuitOpen or
// ErrHalfOpenSaturated.
type FallbackFunc func(ctx context.Context, err error) (*http.Response, error)

// Rejection errors raised by the breaker itself.
var (
	ErrCircuitOpen       = gobreaker.ErrOpenState
	ErrHalfOpenSaturated = gobreaker.ErrTooManyRequests
)

const (
	rejectOpen     = "open"
	rejectHalfOpen = "half_open_limit"
)

var (
	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Downstream breaker state: 0 closed, 1 half-open, 2 open.",
		},
		[]string{"name"},
	)

	breakerRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_fallback_invoked_total",
			Help: "Calls answered by the fallback instead of the downstream service.",
		},
		[]string{"name", "reason"},
	)
)

// RegisterMetrics adds the breaker collectors to reg. A second call against
// the same registry is a no-op.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{breakerState, breakerRejections} {
		err := reg.Register(c)
		var already prometheus.AlreadyRegisteredError
		if err != nil && !errors.As(err, &already) {
			return fmt.Errorf("register circuit breaker metrics: %w", err)
		}
	}
	return nil
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}

// CircuitBreakerClient sends requests through a gobreaker breaker. A 5xx
// reply or a transport error counts against the downstream; a caller giving
// up on its own context does not.
type CircuitBreakerClient struct {
	name     string
	client   *Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	logger   *slog.Logger
	fallback FallbackFunc
}

// NewCircuitBreakerClient wraps client with a breaker configured by cfg.
func NewCircuitBreakerClient(client *Client, cfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= cfg.MinRequests &&
				float64(counts.TotalFailures) >= cfg.FailureRatio*float64(counts.Requests)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("downstream breaker changed state",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateValue(to))
		},
	}
	breakerState.WithLabelValues(cfg.Name).Set(stateValue(gobreaker.StateClosed))

	return &CircuitBreakerClient{
		name:    cfg.Name,
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
		logger:  logger,
	}
}

// WithFallback returns a copy that answers rejected calls with fn.
func (c *CircuitBreakerClient) WithFallback(fn FallbackFunc) *CircuitBreakerClient {
	cpy := *c
	cpy.fallback = fn
	return &cpy
}

// Do executes req. 5xx replies are consumed and returned as
// SERVICE_UNAVAILABLE errors; any other status is handed back untouched.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, ParseResponseError(resp, c.name)
		}
		return resp, nil
	})
	if err == nil {
		return resp, nil
	}

	reason := rejectionReason(err)
	if reason == "" || c.fallback == nil {
		return nil, err
	}
	breakerRejections.WithLabelValues(c.name, reason).Inc()
	c.logger.WarnContext(ctx, "downstream call rejected by breaker, using fallback",
		slog.String("breaker", c.name),
		slog.String("reason", reason),
	)
	return c.fallback(ctx, err)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrCircuitOpen):
		return rejectOpen
	case errors.Is(err, ErrHalfOpenSaturated):
		return rejectHalfOpen
	}
	return ""
}

// State reports the breaker's current state.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}
