package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/errors"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/httputil"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/pagination"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/domain"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/repository"
	"github.com/Saad200724/MeowMeowPetShop-Construction-sub001/services/storefront/internal/service"
)

// CouponHandler serves coupon previews and coupon administration.
type CouponHandler struct {
	coupons *service.CouponService
	logger  *slog.Logger
}

// NewCouponHandler creates a coupon handler.
func NewCouponHandler(coupons *service.CouponService, logger *slog.Logger) *CouponHandler {
	return &CouponHandler{coupons: coupons, logger: logger}
}

// SetStatusRequest is the body of PATCH /api/admin/coupons/{code}/status.
type SetStatusRequest struct {
	IsActive *bool `json:"isActive"`
}

type couponListResponse struct {
	Coupons []domain.Coupon `json:"coupons"`
	pagination.Meta
}

// Validate handles POST /api/coupons/validate. A refused coupon is still a
// 200 with valid=false.
func (h *CouponHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var input service.ValidateCouponInput
	if err := httputil.DecodeJSON(w, r, &input); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.coupons.Validate(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// CreateCoupon handles POST /api/admin/coupons.
func (h *CouponHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var input service.CreateCouponInput
	if err := httputil.DecodeJSON(w, r, &input); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	coupon, err := h.coupons.CreateCoupon(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"coupon": coupon})
}

// ListCoupons handles GET /api/admin/coupons?active=true&page=1&perPage=20.
func (h *CouponHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	filter := repository.CouponFilter{Page: pagination.FromRequest(r)}
	if v := r.URL.Query().Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("active must be true or false"), h.logger)
			return
		}
		filter.Active = &active
	}

	coupons, total, err := h.coupons.ListCoupons(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, couponListResponse{
		Coupons: coupons,
		Meta:    pagination.NewMeta(total, filter.Page),
	})
}

// GetCoupon handles GET /api/admin/coupons/{code}.
func (h *CouponHandler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	coupon, err := h.coupons.GetCoupon(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"coupon": coupon})
}

// SetStatus handles PATCH /api/admin/coupons/{code}/status.
func (h *CouponHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if req.IsActive == nil {
		httputil.WriteError(w, r, apperrors.InvalidFields("request validation failed", map[string]string{
			"isActive": "is required",
		}), h.logger)
		return
	}

	coupon, err := h.coupons.SetCouponActive(r.Context(), chi.URLParam(r, "code"), *req.IsActive)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"coupon": coupon})
}
