package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/errors"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/httputil"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/service"
)

// UserIDHeader identifies the shopper who owns a cart.
const UserIDHeader = "X-User-ID"

// CartHandler serves the server-side cart mirror.
type CartHandler struct {
	carts  *service.CartService
	logger *slog.Logger
}

// NewCartHandler creates a cart handler.
func NewCartHandler(carts *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

// RequireUserID rejects cart requests that do not name their shopper.
func RequireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(r.Header.Get(UserIDHeader)) == "" {
			httputil.WriteError(w, r, apperrors.Unauthorized("X-User-ID header is required"), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserIDHeader))
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, view *service.CartView, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// GetCart handles GET /api/cart.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.GetCart(r.Context(), userID(r))
	h.respond(w, r, view, err)
}

// AddItem handles POST /api/cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var input service.ItemInput
	if err := httputil.DecodeJSON(w, r, &input); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	view, err := h.carts.AddItem(r.Context(), userID(r), input)
	h.respond(w, r, view, err)
}

// UpdateQuantity handles PATCH /api/cart/items/{itemId}.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var input service.UpdateQuantityInput
	if err := httputil.DecodeJSON(w, r, &input); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	view, err := h.carts.UpdateQuantity(r.Context(), userID(r), chi.URLParam(r, "itemId"), input.Quantity)
	h.respond(w, r, view, err)
}

// RemoveItem handles DELETE /api/cart/items/{itemId}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.RemoveItem(r.Context(), userID(r), chi.URLParam(r, "itemId"))
	h.respond(w, r, view, err)
}

// ApplyCoupon handles POST /api/cart/coupon. A refused coupon is a 200
// whose message says why.
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var input service.ApplyCouponInput
	if err := httputil.DecodeJSON(w, r, &input); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	view, err := h.carts.ApplyCoupon(r.Context(), userID(r), input)
	h.respond(w, r, view, err)
}

// RemoveCoupon handles DELETE /api/cart/coupon.
func (h *CartHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.RemoveCoupon(r.Context(), userID(r))
	h.respond(w, r, view, err)
}

// ClearCart handles DELETE /api/cart.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.ClearCart(r.Context(), userID(r))
	h.respond(w, r, view, err)
}
