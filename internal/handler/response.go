package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/sarit-store/internal/domain/auth"
	"github.com/xenking/sarit-store/internal/domain/coupon"
	"github.com/xenking/sarit-store/internal/domain/geo"
	"github.com/xenking/sarit-store/internal/domain/newsletter"
	"github.com/xenking/sarit-store/internal/domain/order"
	"github.com/xenking/sarit-store/internal/domain/product"
	"github.com/xenking/sarit-store/internal/domain/shipping"
	"github.com/xenking/sarit-store/internal/domain/testimonial"
	"github.com/xenking/sarit-store/internal/domain/validate"
	"github.com/xenking/sarit-store/pkg/pagination"
)

// envelope is the body of every API response.
type envelope struct {
	Success    bool                  `json:"success"`
	Message    string                `json:"message,omitempty"`
	Error      string                `json:"error,omitempty"`
	Errors     []validate.FieldError `json:"errors,omitempty"`
	Data       any                   `json:"data,omitempty"`
	Item       any                   `json:"item,omitempty"`
	Items      any                   `json:"items,omitempty"`
	Pagination *pagination.Meta      `json:"pagination,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, status int, e envelope) {
	e.Success = true
	writeJSON(w, status, e)
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Error: msg})
}

var (
	errBadBody     = errors.New("invalid request body")
	errBodyTooBig  = errors.New("request body too large")
	errInProgress  = errors.New("a request with this idempotency key is in progress")
	errBadIdempKey = errors.New("invalid idempotency key")
	errKeyReused   = errors.New("idempotency key was already used for a different request")
)

// statusOf maps domain errors to HTTP statuses. Zero means unexpected.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadBody),
		errors.Is(err, errBadIdempKey),
		errors.Is(err, product.ErrInvalidFilter),
		errors.Is(err, geo.ErrInvalidID),
		errors.Is(err, geo.ErrStateNotFound),
		errors.Is(err, geo.ErrCityNotFound),
		errors.Is(err, geo.ErrCityStateMismatch),
		errors.Is(err, order.ErrItemsNotFound),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, shipping.ErrUnknownMethod),
		errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrUsageLimitReached):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, newsletter.ErrNotFound),
		errors.Is(err, testimonial.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, coupon.ErrCodeExists),
		errors.Is(err, errInProgress):
		return http.StatusConflict
	case errors.Is(err, errBodyTooBig):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errKeyReused):
		return http.StatusUnprocessableEntity
	}
	return 0
}

// writeError translates err into a failure response. Unexpected errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validate.Error
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, envelope{
			Message: "validation failed",
			Errors:  verr.Fields,
		})
		return
	}
	if status := statusOf(err); status != 0 {
		writeFail(w, status, err.Error())
		return
	}

	zctx.From(r.Context()).Error("Request failed",
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
	writeFail(w, http.StatusInternalServerError, "internal server error")
}

// readBody returns the whole request body, mapping an oversized body to
// errBodyTooBig.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, errBodyTooBig
		}
		return nil, errors.Wrap(errBadBody, err.Error())
	}
	return body, nil
}

// decodeJSON reads the request body into dst. An empty body leaves dst
// untouched.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return errBodyTooBig
		case errors.Is(err, io.EOF):
			return nil
		}
		return errors.Wrap(errBadBody, err.Error())
	}
	return nil
}
