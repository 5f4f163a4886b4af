package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/httputil"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/pagination"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/domain"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/service"
)

// IdempotencyKeyHeader lets a client retry an order submission safely.
const IdempotencyKeyHeader = "Idempotency-Key"

// OrderHandler serves checkout and order reads.
type OrderHandler struct {
	checkout *service.CheckoutService
	orders   *service.OrderService
	logger   *slog.Logger
}

// NewOrderHandler creates an order handler.
func NewOrderHandler(checkout *service.CheckoutService, orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{checkout: checkout, orders: orders, logger: logger}
}

type orderListResponse struct {
	Orders []domain.Order `json:"orders"`
	pagination.Meta
}

// CreateOrder handles POST /api/orders.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var input service.PlaceOrderInput
	if err := httputil.DecodeJSON(w, r, &input); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.checkout.PlaceOrderOnce(r.Context(), r.Header.Get(IdempotencyKeyHeader), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

// GetOrder handles GET /api/orders/{orderId}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "orderId"))
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"order": order})
}

// ListUserOrders handles GET /api/orders/user/{userId}.
func (h *OrderHandler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	orders, total, err := h.orders.ListUserOrders(r.Context(), chi.URLParam(r, "userId"), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orderListResponse{
		Orders: orders,
		Meta:   pagination.NewMeta(total, params),
	})
}

// GetOrderInvoice handles GET /api/orders/{orderId}/invoice.
func (h *OrderHandler) GetOrderInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "orderId"))
	if !ok {
		return
	}

	invoice, err := h.orders.GetInvoiceByOrder(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"invoice": invoice})
}

// GetInvoice handles GET /api/invoices/{invoiceId}.
func (h *OrderHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "invoiceId"))
	if !ok {
		return
	}

	invoice, err := h.orders.GetInvoice(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"invoice": invoice})
}
