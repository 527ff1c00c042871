package handler

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"unicode"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/sarit-store/internal/domain/order"
	"github.com/xenking/sarit-store/internal/domain/shipping"
	"github.com/xenking/sarit-store/internal/storage/cache"
)

// IdempotencyKeyHeader lets clients retry a checkout safely.
const IdempotencyKeyHeader = "Idempotency-Key"

const (
	idempotencyScope  = "checkout"
	maxIdempotencyKey = 128
)

// cartItems accepts either a list of product ids or a list of
// {id, quantity} objects.
type cartItems []order.LineRequest

type cartLine struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id"`
	Quantity *int   `json:"quantity"`
}

func (c *cartItems) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "items must be an array")
	}
	lines := make([]order.LineRequest, 0, len(raw))
	for i, r := range raw {
		r = bytes.TrimSpace(r)
		if len(r) > 0 && r[0] == '"' {
			var id string
			if err := json.Unmarshal(r, &id); err != nil {
				return errors.Wrapf(err, "items[%d]", i)
			}
			lines = append(lines, order.LineRequest{ProductID: id, Quantity: 1})
			continue
		}
		var l cartLine
		if err := json.Unmarshal(r, &l); err != nil {
			return errors.Wrapf(err, "items[%d]", i)
		}
		line := order.LineRequest{ProductID: l.ID, Quantity: 1}
		if line.ProductID == "" {
			line.ProductID = l.LegacyID
		}
		if l.Quantity != nil {
			line.Quantity = *l.Quantity
		}
		lines = append(lines, line)
	}
	*c = lines
	return nil
}

type addressInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	Apartment string `json:"apartment"`
	StateID   string `json:"stateId"`
	CityID    string `json:"cityId"`
	Pin       string `json:"pin"`
	Phone     string `json:"phone"`
}

func (a addressInput) domain() order.AddressInput {
	return order.AddressInput{
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Address:    a.Address,
		Apartment:  a.Apartment,
		StateID:    a.StateID,
		CityID:     a.CityID,
		PostalCode: a.Pin,
		Phone:      a.Phone,
	}
}

type checkoutForm struct {
	addressInput
	Email         string              `json:"email"`
	Subscribe     bool                `json:"subscribe"`
	PaymentMethod order.PaymentMethod `json:"paymentMethod"`
	BillingSame   *bool               `json:"billingSame"`
}

type checkoutRequest struct {
	Items          cartItems         `json:"items"`
	Form           checkoutForm      `json:"form"`
	ShippingID     shipping.MethodID `json:"shippingId"`
	Coupon         string            `json:"coupon"`
	BillingAddress *addressInput     `json:"billingAddress"`
}

// domain converts the payload. Billing defaults to the shipping address
// unless billingSame is false or a billing address is supplied without it.
func (c checkoutRequest) domain(customerID string) order.CheckoutRequest {
	billingSame := c.BillingAddress == nil
	if c.Form.BillingSame != nil {
		billingSame = *c.Form.BillingSame
	}
	req := order.CheckoutRequest{
		Items:         c.Items,
		Email:         c.Form.Email,
		Subscribe:     c.Form.Subscribe,
		Shipping:      c.Form.domain(),
		PaymentMethod: c.Form.PaymentMethod,
		BillingSame:   billingSame,
		CouponCode:    c.Coupon,
		ShippingID:    c.ShippingID,
		CustomerID:    customerID,
	}
	if !billingSame && c.BillingAddress != nil {
		b := c.BillingAddress.domain()
		req.Billing = &b
	}
	return req
}

type checkoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	receiptView
}

func validIdempotencyKey(key string) bool {
	if len(key) > maxIdempotencyKey {
		return false
	}
	for _, r := range key {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := r.Header.Get(IdempotencyKeyHeader)
	if key == "" || h.Idempotency == nil {
		h.placeOrder(w, r)
		return
	}
	if !validIdempotencyKey(key) {
		writeError(w, r, errBadIdempKey)
		return
	}

	raw, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	fp := requestFingerprint(customerFrom(ctx), raw)

	if h.replay(w, r, key, fp) {
		return
	}
	locked, err := h.Idempotency.TryLock(ctx, idempotencyScope, key)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "lock checkout"))
		return
	}
	if !locked {
		writeError(w, r, errInProgress)
		return
	}

	lg := zctx.From(ctx).With(zap.String("idempotency_key", key))
	release := func() {
		if err := h.Idempotency.Release(ctx, idempotencyScope, key); err != nil {
			lg.Warn("Release idempotency lock", zap.Error(err))
		}
	}
	// A request with the same key may have finished between the first
	// recall and the lock.
	if h.replay(w, r, key, fp) {
		release()
		return
	}

	resp, err := h.placeOrder(w, r)
	if err != nil {
		release()
		return
	}
	body, err := json.Marshal(resp)
	if err != nil {
		lg.Error("Marshal checkout response", zap.Error(err))
		release()
		return
	}
	if err := h.Idempotency.Remember(ctx, idempotencyScope, key, cache.StoredResponse{
		Status:      http.StatusCreated,
		Body:        body,
		Fingerprint: fp,
	}); err != nil {
		lg.Warn("Remember checkout response", zap.Error(err))
	}
}

// replay writes the response stored under key and reports whether the
// request was answered. A stored response of a different request is
// rejected instead of replayed.
func (h *Handler) replay(w http.ResponseWriter, r *http.Request, key, fp string) bool {
	stored, ok, err := h.Idempotency.Recall(r.Context(), idempotencyScope, key)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "recall checkout"))
		return true
	}
	if !ok {
		return false
	}
	if stored.Fingerprint != fp {
		writeError(w, r, errKeyReused)
		return true
	}
	w.Header().Set("Idempotent-Replayed", "true")
	writeJSON(w, stored.Status, stored.Body)
	return true
}

// requestFingerprint binds an idempotency key to the caller and the exact
// request body.
func requestFingerprint(customerID string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(customerID))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// placeOrder runs the checkout and writes the response. The returned error
// is non-nil when no order was placed.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) (*checkoutResponse, error) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return nil, err
	}
	receipt, err := h.Orders.Checkout(r.Context(), req.domain(customerFrom(r.Context())))
	if err != nil {
		writeError(w, r, err)
		return nil, err
	}
	resp := &checkoutResponse{
		Success: true,
		Message: "Order placed successfully",
		receiptView: receiptView{
			OrderID:    receipt.OrderID,
			totalsView: newTotalsView(receipt.Totals),
		},
	}
	writeJSON(w, http.StatusCreated, resp)
	return resp, nil
}
