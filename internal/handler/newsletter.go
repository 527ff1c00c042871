package handler

import "net/http"

type emailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.Newsletter.Subscribe(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !created {
		writeOK(w, http.StatusOK, envelope{Message: "already subscribed"})
		return
	}
	writeOK(w, http.StatusCreated, envelope{Message: "subscribed"})
}

func (h *Handler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Newsletter.Unsubscribe(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Message: "unsubscribed"})
}

func (h *Handler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Newsletter.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Items: subs})
}
