package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/sarit-store/internal/domain/product"
	"github.com/xenking/sarit-store/internal/domain/shipping"
)

func parseListFilter(r *http.Request) (product.ListFilter, error) {
	q := r.URL.Query()
	f := product.ListFilter{
		Availability: product.Availability(q.Get("availability")),
		PriceSort:    product.PriceSort(q.Get("priceSort")),
	}
	if v := q.Get("type"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, errors.Wrap(product.ErrInvalidFilter, "type must be 1 or 2")
		}
		f.Type = product.Type(n)
	}
	return f, f.Validate()
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	f, err := parseListFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	products, err := h.Products.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items := make([]productView, len(products))
	for i, p := range products {
		items[i] = newProductView(p)
	}
	writeOK(w, http.StatusOK, envelope{Items: items})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Item: newProductView(*p)})
}

type productRequest struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Name               string          `json:"bagName"`
	Description        string          `json:"description"`
	ProductDescription string          `json:"productDescription"`
	Href               string          `json:"href"`
	Type               product.Type    `json:"type"`
	Price              decimal.Decimal `json:"price"`
	CompareAt          decimal.Decimal `json:"compareAt"`
	OnSale             bool            `json:"onSale"`
	Rating             decimal.Decimal `json:"rating"`
	Reviews            int             `json:"reviews"`
	DeliveryCharge     decimal.Decimal `json:"deliveryCharge"`
	Quantity           *int            `json:"quantity"`
	Material           string          `json:"material"`
	Colors             []string        `json:"colors"`
	Capacity           string          `json:"capacity"`
	Brand              string          `json:"brand"`
	Features           []string        `json:"features"`
}

func (req productRequest) input() product.Input {
	return product.Input{
		Title:              req.Title,
		Name:               req.Name,
		Description:        req.Description,
		ProductDescription: req.ProductDescription,
		Href:               req.Href,
		Type:               req.Type,
		Price:              req.Price,
		CompareAt:          req.CompareAt,
		OnSale:             req.OnSale,
		Rating:             req.Rating,
		Reviews:            req.Reviews,
		DeliveryCharge:     req.DeliveryCharge,
		Quantity:           req.Quantity,
		Material:           req.Material,
		Colors:             req.Colors,
		Capacity:           req.Capacity,
		Brand:              req.Brand,
		Features:           req.Features,
	}
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Catalog.Create(r.Context(), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{Message: "product created", Item: newProductView(*p)})
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Catalog.Update(r.Context(), req.ID, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Message: "product updated", Item: newProductView(*p)})
}

type idRequest struct {
	ID string `json:"id"`
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Catalog.Delete(r.Context(), req.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Message: "product deleted"})
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func parsePrice(q url.Values, key string) (*decimal.Decimal, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return nil, errors.Wrapf(product.ErrInvalidFilter, "%s must be a non-negative number", key)
	}
	return &d, nil
}

func parseBrowseQuery(r *http.Request) (product.BrowseQuery, error) {
	q := r.URL.Query()
	bq := product.BrowseQuery{
		Exclude:    splitList(q.Get("exclude")),
		SeedIDs:    splitList(q.Get("seedIds")),
		OutOfStock: q.Get("inStock") == "false",
	}
	if v := q.Get("limit"); v != "" {
		// Unparsable limits fall back to the default.
		bq.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("type"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return bq, errors.Wrap(product.ErrInvalidFilter, "type must be 1 or 2")
		}
		bq.Type = product.Type(n)
	}
	var err error
	if bq.MinPrice, err = parsePrice(q, "priceMin"); err != nil {
		return bq, err
	}
	if bq.MaxPrice, err = parsePrice(q, "priceMax"); err != nil {
		return bq, err
	}
	return bq, nil
}

func (h *Handler) browseRecommendations(w http.ResponseWriter, r *http.Request) {
	q, err := parseBrowseQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	products, err := h.Catalog.Browse(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items := make([]productView, len(products))
	for i, p := range products {
		items[i] = newProductView(p)
	}
	writeOK(w, http.StatusOK, envelope{Items: items})
}

func (h *Handler) listStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.Places.ListStates(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Items: states})
}

func (h *Handler) listCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.Places.ListCities(r.Context(), chi.URLParam(r, "stateId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Items: cities})
}

func (h *Handler) availableShipping(w http.ResponseWriter, r *http.Request) {
	methods, err := h.Shipping.Available(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Data: newMethodViews(methods)})
}

func (h *Handler) shippingConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Shipping.EnsureSingleton(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Data: newShippingConfigView(cfg)})
}

type methodInput struct {
	ID    shipping.MethodID `json:"id"`
	Label *string           `json:"label"`
	Cost  *decimal.Decimal  `json:"cost"`
}

// updateShippingRequest is either a full replacement in Methods or a patch
// keyed by method id.
type updateShippingRequest struct {
	Methods  []methodInput `json:"methods"`
	Standard *methodInput  `json:"standard"`
	Express  *methodInput  `json:"express"`
}

func (h *Handler) updateShipping(w http.ResponseWriter, r *http.Request) {
	var req updateShippingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var (
		cfg *shipping.Config
		err error
	)
	if req.Methods != nil {
		methods := make([]shipping.Method, len(req.Methods))
		for i, m := range req.Methods {
			methods[i] = shipping.Method{ID: m.ID}
			if m.Label != nil {
				methods[i].Label = *m.Label
			}
			if m.Cost != nil {
				methods[i].Cost = *m.Cost
			}
		}
		cfg, err = h.Shipping.Replace(r.Context(), methods)
	} else {
		patches := make(map[shipping.MethodID]shipping.MethodPatch, 2)
		for id, m := range map[shipping.MethodID]*methodInput{
			shipping.MethodStandard: req.Standard,
			shipping.MethodExpress:  req.Express,
		} {
			if m == nil {
				continue
			}
			patches[id] = shipping.MethodPatch{Label: m.Label, Cost: m.Cost}
		}
		cfg, err = h.Shipping.Patch(r.Context(), patches)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Message: "shipping config updated", Data: newShippingConfigView(cfg)})
}

func (h *Handler) resetShipping(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Shipping.Reset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{Message: "shipping config reset", Data: newShippingConfigView(cfg)})
}
