package handler

import (
	"net/http"
	"time"

	"github.com/xenking/sarit-store/internal/domain/order"
	"github.com/xenking/sarit-store/internal/domain/validate"
	"github.com/xenking/sarit-store/pkg/pagination"
)

const dateLayout = "2006-01-02"

type listOrdersRequest struct {
	listRequest
	Status   order.Status   `json:"status"`
	DateFrom string         `json:"dateFrom"`
	DateTo   string         `json:"dateTo"`
	SortBy   order.SortMode `json:"sortBy"`
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. A bare
// date used as an upper bound covers the whole day.
func parseDate(v *validate.Error, field, s string, endOfDay bool) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		v.Add(field, field+" must be YYYY-MM-DD or an RFC 3339 timestamp")
		return nil
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t
}

func (req listOrdersRequest) query() (order.ListQuery, error) {
	q := order.ListQuery{
		Status: req.Status,
		Page:   pagination.New(req.Page, req.Limit),
	}
	switch req.SortBy {
	case order.SortNewest, order.SortExpressFirst:
		q.Sort = req.SortBy
	}

	var v validate.Error
	q.DateFrom = parseDate(&v, "dateFrom", req.DateFrom, false)
	q.DateTo = parseDate(&v, "dateTo", req.DateTo, true)
	return q, v.Err()
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var req listOrdersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := req.query()
	if err != nil {
		writeError(w, r, err)
		return
	}
	orders, meta, err := h.Orders.List(r.Context(), req.Search, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Items: newOrderViews(orders), Pagination: &meta})
}

type orderIDRequest struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	var req orderIDRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var v validate.Error
	v.Require("orderId", req.OrderID)
	if err := v.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Orders.Get(r.Context(), req.OrderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Data: newOrderView(o)})
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req orderIDRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var v validate.Error
	v.Require("orderId", req.OrderID)
	v.Require("status", req.Status)
	if err := v.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Orders.UpdateStatus(r.Context(), req.OrderID, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Message: "order status updated", Data: newOrderView(o)})
}
