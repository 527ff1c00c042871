package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/sarit-store/internal/domain/coupon"
	"github.com/xenking/sarit-store/internal/domain/validate"
	"github.com/xenking/sarit-store/pkg/pagination"
)

type createCouponRequest struct {
	Code          string              `json:"code"`
	DiscountType  coupon.DiscountType `json:"discountType"`
	DiscountValue *decimal.Decimal    `json:"discountValue"`
	ExpiresAt     *time.Time          `json:"expiresAt"`
	UsageLimit    int                 `json:"usageLimit"`
	Active        *bool               `json:"active"`
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.DiscountValue == nil {
		var v validate.Error
		v.Add("discountValue", "discountValue is required")
		writeError(w, r, v.Err())
		return
	}
	c, err := h.Coupons.Create(r.Context(), coupon.Input{
		Code:          req.Code,
		DiscountType:  req.DiscountType,
		DiscountValue: *req.DiscountValue,
		ExpiresAt:     req.ExpiresAt,
		UsageLimit:    req.UsageLimit,
		Active:        req.Active,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{Message: "coupon created", Data: newCouponView(c)})
}

type listRequest struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Search string `json:"search"`
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	page := pagination.New(req.Page, req.Limit)
	coupons, total, err := h.Coupons.List(r.Context(), coupon.ListQuery{Search: req.Search, Page: page})
	if err != nil {
		writeError(w, r, err)
		return
	}
	items := make([]couponView, len(coupons))
	for i := range coupons {
		items[i] = newCouponView(&coupons[i])
	}
	meta := page.MetaFor(total)
	writeOK(w, http.StatusOK, envelope{Items: items, Pagination: &meta})
}

func (h *Handler) getCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.Coupons.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Data: newCouponView(c)})
}

type updateCouponRequest struct {
	DiscountType  *coupon.DiscountType `json:"discountType"`
	DiscountValue *decimal.Decimal     `json:"discountValue"`
	// ExpiresAt is raw so an explicit null can clear the expiry.
	ExpiresAt  json.RawMessage `json:"expiresAt"`
	UsageLimit *int            `json:"usageLimit"`
	Active     *bool           `json:"active"`
}

func (u updateCouponRequest) patch() (coupon.Patch, error) {
	p := coupon.Patch{
		DiscountType:  u.DiscountType,
		DiscountValue: u.DiscountValue,
		UsageLimit:    u.UsageLimit,
		Active:        u.Active,
	}
	switch raw := bytes.TrimSpace(u.ExpiresAt); {
	case len(raw) == 0:
	case bytes.Equal(raw, []byte("null")):
		p.ClearExpiry = true
	default:
		var t time.Time
		if err := json.Unmarshal(raw, &t); err != nil {
			var v validate.Error
			v.Add("expiresAt", "expiresAt must be an RFC 3339 timestamp")
			return p, v.Err()
		}
		p.ExpiresAt = &t
	}
	return p, nil
}

func (h *Handler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	var req updateCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := req.patch()
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Coupons.Update(r.Context(), chi.URLParam(r, "code"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Message: "coupon updated", Data: newCouponView(c)})
}

func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.Coupons.Delete(r.Context(), chi.URLParam(r, "code")); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Message: "coupon deleted"})
}

type applyCouponRequest struct {
	Code       string           `json:"code"`
	OrderTotal *decimal.Decimal `json:"orderTotal"`
}

type applyCouponView struct {
	Code     string `json:"code"`
	Discount money  `json:"discount"`
	NewTotal money  `json:"newTotal"`
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var v validate.Error
	v.Require("code", req.Code)
	if req.OrderTotal == nil {
		v.Add("orderTotal", "orderTotal is required")
	}
	if err := v.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Coupons.Apply(r.Context(), req.Code, *req.OrderTotal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{
		Message: "coupon applied",
		Data: applyCouponView{
			Code:     res.Discount.Code,
			Discount: money(res.Discount.Amount),
			NewTotal: money(res.NewTotal),
		},
	})
}
