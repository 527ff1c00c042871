package handler

import (
	"net/http"

	"github.com/xenking/sarit-store/internal/domain/contact"
	"github.com/xenking/sarit-store/internal/domain/testimonial"
	"github.com/xenking/sarit-store/pkg/pagination"
)

func (h *Handler) listTestimonials(w http.ResponseWriter, r *http.Request) {
	items, err := h.Testimonials.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Items: items})
}

type testimonialRequest struct {
	ID     string `json:"id"`
	Quote  string `json:"quote"`
	Author string `json:"author"`
	Rating *int   `json:"rating"`
}

func (req testimonialRequest) input() testimonial.Input {
	return testimonial.Input{Quote: req.Quote, Author: req.Author, Rating: req.Rating}
}

func (h *Handler) createTestimonial(w http.ResponseWriter, r *http.Request) {
	var req testimonialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.Testimonials.Create(r.Context(), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{Item: t})
}

func (h *Handler) updateTestimonial(w http.ResponseWriter, r *http.Request) {
	var req testimonialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.Testimonials.Update(r.Context(), req.ID, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Message: "testimonial updated", Item: t})
}

func (h *Handler) deleteTestimonial(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.Testimonials.Delete(r.Context(), req.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Message: "testimonial deleted", Item: t})
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Comment string `json:"comment"`
}

func (h *Handler) submitContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.Contacts.Submit(r.Context(), contact.Input{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Comment: req.Comment,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{Message: "contact message submitted", Data: m})
}

func (h *Handler) listContacts(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	items, meta, err := h.Contacts.List(r.Context(), contact.ListQuery{
		Search: req.Search,
		Page:   pagination.New(req.Page, req.Limit),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Data: items, Pagination: &meta})
}
