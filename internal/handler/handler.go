// Package handler exposes the store over a JSON HTTP API.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/sarit-store/internal/domain/auth"
	"github.com/xenking/sarit-store/internal/domain/contact"
	"github.com/xenking/sarit-store/internal/domain/coupon"
	"github.com/xenking/sarit-store/internal/domain/geo"
	"github.com/xenking/sarit-store/internal/domain/newsletter"
	"github.com/xenking/sarit-store/internal/domain/order"
	"github.com/xenking/sarit-store/internal/domain/product"
	"github.com/xenking/sarit-store/internal/domain/shipping"
	"github.com/xenking/sarit-store/internal/domain/testimonial"
	"github.com/xenking/sarit-store/internal/storage/cache"
	"github.com/xenking/sarit-store/pkg/httpmiddleware"
	"github.com/xenking/sarit-store/pkg/pagination"
)

// Products reads the catalog.
type Products interface {
	List(ctx context.Context, filter product.ListFilter) ([]product.Product, error)
	GetByID(ctx context.Context, id string) (*product.Product, error)
}

// Catalog edits the catalog and recommends products from it.
type Catalog interface {
	Create(ctx context.Context, in product.Input) (*product.Product, error)
	Update(ctx context.Context, id string, in product.Input) (*product.Product, error)
	Delete(ctx context.Context, id string) error
	Browse(ctx context.Context, q product.BrowseQuery) ([]product.Product, error)
}

// Places reads state and city reference data.
type Places interface {
	ListStates(ctx context.Context) ([]geo.State, error)
	ListCities(ctx context.Context, stateID string) ([]geo.City, error)
}

// Shipping reads and edits the shipping config.
type Shipping interface {
	EnsureSingleton(ctx context.Context) (*shipping.Config, error)
	Available(ctx context.Context) ([]shipping.Method, error)
	Replace(ctx context.Context, methods []shipping.Method) (*shipping.Config, error)
	Patch(ctx context.Context, patches map[shipping.MethodID]shipping.MethodPatch) (*shipping.Config, error)
	Reset(ctx context.Context) (*shipping.Config, error)
}

// Coupons manages the coupon ledger.
type Coupons interface {
	Create(ctx context.Context, in coupon.Input) (*coupon.Coupon, error)
	List(ctx context.Context, q coupon.ListQuery) ([]coupon.Coupon, int, error)
	Get(ctx context.Context, code string) (*coupon.Coupon, error)
	Update(ctx context.Context, code string, p coupon.Patch) (*coupon.Coupon, error)
	Delete(ctx context.Context, code string) error
	Apply(ctx context.Context, code string, orderTotal decimal.Decimal) (*coupon.ApplyResult, error)
}

// Orders runs checkout and order administration.
type Orders interface {
	Checkout(ctx context.Context, req order.CheckoutRequest) (*order.Receipt, error)
	Get(ctx context.Context, id string) (*order.Order, error)
	List(ctx context.Context, search string, q order.ListQuery) ([]order.Order, pagination.Meta, error)
	UpdateStatus(ctx context.Context, id, status string) (*order.Order, error)
}

// Newsletter manages subscriptions.
type Newsletter interface {
	Subscribe(ctx context.Context, email string) (bool, error)
	Unsubscribe(ctx context.Context, email string) error
	List(ctx context.Context) ([]newsletter.Subscription, error)
}

// Testimonials manages storefront quotes.
type Testimonials interface {
	List(ctx context.Context) ([]testimonial.Testimonial, error)
	Create(ctx context.Context, in testimonial.Input) (*testimonial.Testimonial, error)
	Update(ctx context.Context, id string, in testimonial.Input) (*testimonial.Testimonial, error)
	Delete(ctx context.Context, id string) (*testimonial.Testimonial, error)
}

// Contacts accepts and lists contact form messages.
type Contacts interface {
	Submit(ctx context.Context, in contact.Input) (*contact.Message, error)
	List(ctx context.Context, q contact.ListQuery) ([]contact.Message, pagination.Meta, error)
}

// KeyAuthenticator validates admin API keys.
type KeyAuthenticator interface {
	Authenticate(ctx context.Context, key string) (*auth.APIKeyInfo, error)
}

// TokenVerifier validates customer bearer tokens.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// IdempotencyStore remembers checkout responses by client key.
type IdempotencyStore interface {
	Recall(ctx context.Context, scope, key string) (*cache.StoredResponse, bool, error)
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key string, resp cache.StoredResponse) error
	Release(ctx context.Context, scope, key string) error
}

// DefaultBodyLimit caps request bodies.
const DefaultBodyLimit = 5 << 20

// Deps are the collaborators of Handler. Tokens and Idempotency may be nil.
type Deps struct {
	Products     Products
	Catalog      Catalog
	Places       Places
	Shipping     Shipping
	Coupons      Coupons
	Orders       Orders
	Newsletter   Newsletter
	Testimonials Testimonials
	Contacts     Contacts
	Keys         KeyAuthenticator
	Tokens       TokenVerifier
	Idempotency  IdempotencyStore
}

// Handler serves the /api routes.
type Handler struct {
	Deps
	bodyLimit int64
}

// New creates a Handler. A non-positive bodyLimit uses DefaultBodyLimit.
func New(deps Deps, bodyLimit int64) *Handler {
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyLimit
	}
	return &Handler{Deps: deps, bodyLimit: bodyLimit}
}

// Router returns the API routes mounted under /api. Extra middlewares run
// inside the router so they can see the matched route.
func (h *Handler) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares...)
	r.Use(httpmiddleware.BodyLimit(h.bodyLimit))
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeFail(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeFail(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)
		r.Get("/recommendations/browse", h.browseRecommendations)
		r.Get("/states", h.listStates)
		r.Get("/states/{stateId}/cities", h.listCities)
		r.Get("/shipping/available", h.availableShipping)
		r.With(h.optionalCustomer).Post("/checkout", h.checkout)
		r.Post("/coupons/apply", h.applyCoupon)
		r.Post("/newsletter/subscribe", h.subscribe)
		r.Post("/newsletter/unsubscribe", h.unsubscribe)
		r.Get("/testimonials", h.listTestimonials)
		r.Post("/contact/submit", h.submitContact)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAPIKey)

			r.Post("/checkout/getlist", h.listOrders)
			r.Post("/checkout/update-status", h.updateOrderStatus)
			r.Post("/checkout/getbyId", h.getOrder)

			r.Get("/shipping/config", h.shippingConfig)
			r.Post("/shipping/update", h.updateShipping)
			r.Post("/shipping/reset", h.resetShipping)

			r.Post("/coupons/create", h.createCoupon)
			r.Post("/coupons/getlist", h.listCoupons)
			r.Post("/coupons/{code}/get", h.getCoupon)
			r.Post("/coupons/{code}/update", h.updateCoupon)
			r.Post("/coupons/{code}/delete", h.deleteCoupon)

			r.Get("/newsletter", h.listSubscriptions)

			r.Post("/products/create", h.createProduct)
			r.Post("/products/update", h.updateProduct)
			r.Post("/products/delete", h.deleteProduct)

			r.Post("/testimonials/create", h.createTestimonial)
			r.Post("/testimonials/update", h.updateTestimonial)
			r.Post("/testimonials/delete", h.deleteTestimonial)

			r.Post("/contact/list", h.listContacts)
		})
	})
	return r
}
