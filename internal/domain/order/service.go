package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/sarit-store/internal/domain/coupon"
	"github.com/xenking/sarit-store/internal/domain/geo"
	"github.com/xenking/sarit-store/internal/domain/notify"
	"github.com/xenking/sarit-store/internal/domain/product"
	"github.com/xenking/sarit-store/internal/domain/shipping"
	"github.com/xenking/sarit-store/internal/domain/validate"
	"github.com/xenking/sarit-store/pkg/pagination"
)

// LineRequest is a normalized cart line.
type LineRequest struct {
	ProductID string
	Quantity  int
}

// AddressInput is an address as submitted by the customer.
type AddressInput struct {
	FirstName  string
	LastName   string
	Address    string
	Apartment  string
	StateID    string
	CityID     string
	PostalCode string
	Phone      string
}

// CheckoutRequest holds the input for placing an order.
type CheckoutRequest struct {
	Items         []LineRequest
	Email         string
	Subscribe     bool
	Shipping      AddressInput
	PaymentMethod PaymentMethod
	BillingSame   bool
	// Billing is only read when BillingSame is false.
	Billing    *AddressInput
	CouponCode string
	ShippingID shipping.MethodID
	// CustomerID is set when the caller presented a valid customer token.
	CustomerID string
}

// Receipt is the outcome of a successful checkout.
type Receipt struct {
	OrderID string
	Totals  Totals
	Coupon  *AppliedCoupon
}

// Catalog resolves cart products.
type Catalog interface {
	GetByIDs(ctx context.Context, ids []string) ([]product.Product, error)
}

// Places resolves and checks state and city references.
type Places interface {
	Resolve(ctx context.Context, stateID, cityID string) (*geo.State, *geo.City, error)
}

// ShippingMethods resolves a delivery method from the shipping config.
type ShippingMethods interface {
	Resolve(ctx context.Context, id shipping.MethodID) (shipping.Method, error)
}

// Coupons evaluates a coupon without consuming it.
type Coupons interface {
	Quote(ctx context.Context, code string, total decimal.Decimal) (coupon.Discount, error)
}

// Subscriber opts an email into the newsletter.
type Subscriber interface {
	Subscribe(ctx context.Context, email string) (bool, error)
}

// Users looks up a customer's stored email.
type Users interface {
	EmailByID(ctx context.Context, id string) (string, error)
}

// Notifier schedules a notification for asynchronous delivery.
type Notifier interface {
	Enqueue(ctx context.Context, msg notify.Message) bool
}

// Deps are the collaborators of Service. Users and Subscriber may be nil.
type Deps struct {
	Catalog    Catalog
	Places     Places
	Shipping   ShippingMethods
	Coupons    Coupons
	Subscriber Subscriber
	Users      Users
	Notifier   Notifier
	Orders     Repository
	IDs        IDGenerator
}

// Service encapsulates the checkout pipeline and order administration.
type Service struct {
	Deps
	now     func() time.Time
	created metric.Int64Counter
}

// NewService creates an order Service.
func NewService(deps Deps, meter metric.Meter) (*Service, error) {
	if deps.IDs == nil {
		deps.IDs = RandomID{}
	}
	created, err := meter.Int64Counter("orders.created",
		metric.WithDescription("Orders placed through checkout"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create orders counter")
	}
	return &Service{Deps: deps, now: time.Now, created: created}, nil
}

// Checkout validates req, prices the cart from the catalog, persists the
// order and schedules the confirmation email.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Receipt, error) {
	if err := checkRequest(&req); err != nil {
		return nil, err
	}

	state, city, err := s.Places.Resolve(ctx, req.Shipping.StateID, req.Shipping.CityID)
	if err != nil {
		return nil, err
	}
	shipTo := snapshotAddress(req.Shipping, state, city)

	var billTo *Address
	if !req.BillingSame {
		bState, bCity, err := s.Places.Resolve(ctx, req.Billing.StateID, req.Billing.CityID)
		if err != nil {
			return nil, errors.Wrap(err, "billing address")
		}
		a := snapshotAddress(*req.Billing, bState, bCity)
		billTo = &a
	}

	items, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	method, err := s.Shipping.Resolve(ctx, req.ShippingID)
	if err != nil {
		return nil, err
	}
	totals := Gross(Subtotal(items), method.Cost)

	var applied *AppliedCoupon
	if code := coupon.NormalizeCode(req.CouponCode); code != "" {
		d, err := s.Coupons.Quote(ctx, code, totals.GrossTotal)
		if err != nil {
			return nil, err
		}
		totals = totals.WithDiscount(d.Amount)
		applied = &AppliedCoupon{
			Code:           d.Code,
			DiscountType:   d.DiscountType,
			DiscountValue:  d.DiscountValue,
			DiscountAmount: totals.Discount,
		}
	}

	now := s.now()
	o := &Order{
		Items:           items,
		Contact:         Contact{Email: req.Email, Subscribe: req.Subscribe},
		ShippingAddress: shipTo,
		BillingAddress:  billTo,
		PaymentMethod:   req.PaymentMethod,
		ShippingMethod:  method,
		Coupon:          applied,
		Totals:          totals,
		Status:          StatusPending,
		CustomerID:      req.CustomerID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.persist(ctx, o, now); err != nil {
		return nil, err
	}
	s.created.Add(ctx, 1, metric.WithAttributes(
		attribute.String("payment_method", string(o.PaymentMethod)),
		attribute.String("shipping_method", string(method.ID)),
		attribute.Bool("coupon", applied != nil),
	))

	lg := zctx.From(ctx).With(zap.String("order_id", o.ID))
	lg.Info("Order placed", zap.String("total", totals.Total.StringFixed(2)))

	if req.Subscribe && s.Subscriber != nil {
		if _, err := s.Subscriber.Subscribe(ctx, req.Email); err != nil {
			lg.Warn("Newsletter opt-in failed", zap.Error(err))
		}
	}

	if !s.Notifier.Enqueue(ctx, confirmationMessage(o, s.recipient(ctx, lg, req))) {
		lg.Warn("Order confirmation not queued")
	}

	return &Receipt{OrderID: o.ID, Totals: totals, Coupon: applied}, nil
}

// persist assigns a fresh id to o and stores it, retrying on collisions.
func (s *Service) persist(ctx context.Context, o *Order, now time.Time) error {
	for attempt := 0; attempt < idAttempts; attempt++ {
		id, err := s.IDs.NewID()
		if err != nil {
			return errors.Wrap(err, "generate order id")
		}
		taken, err := s.Orders.Exists(ctx, id)
		if err != nil {
			return errors.Wrap(err, "check order id")
		}
		if taken {
			continue
		}

		o.ID = id
		switch err := s.Orders.Create(ctx, o, now); {
		case err == nil:
			return nil
		case errors.Is(err, ErrDuplicateID):
			continue
		case errors.Is(err, coupon.ErrUsageLimitReached):
			return coupon.ErrUsageLimitReached
		default:
			return errors.Wrap(err, "create order")
		}
	}
	o.ID = ""
	return ErrIDExhausted
}

// recipient prefers the signed-in customer's stored email over the form.
func (s *Service) recipient(ctx context.Context, lg *zap.Logger, req CheckoutRequest) string {
	if req.CustomerID == "" || s.Users == nil {
		return req.Email
	}
	email, err := s.Users.EmailByID(ctx, req.CustomerID)
	if err != nil {
		lg.Warn("Lookup customer email", zap.Error(err))
		return req.Email
	}
	if email == "" {
		return req.Email
	}
	return email
}

// resolveItems snapshots name and price for each cart line. Repeated
// product ids are merged into one line.
func (s *Service) resolveItems(ctx context.Context, lines []LineRequest) ([]Item, error) {
	ids := make([]string, 0, len(lines))
	quantities := make(map[string]int, len(lines))
	for _, l := range lines {
		if _, ok := quantities[l.ProductID]; !ok {
			ids = append(ids, l.ProductID)
		}
		quantities[l.ProductID] += l.Quantity
	}

	fetched, err := s.Catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}
	if len(byID) != len(ids) {
		return nil, ErrItemsNotFound
	}

	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, ErrItemsNotFound
		}
		items = append(items, Item{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  quantities[id],
		})
	}
	return items, nil
}

// Get returns the order with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.Orders.Get(ctx, NormalizeID(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// List returns a page of orders matching q. A search string in the order
// id format matches that id exactly; anything else matches the email.
func (s *Service) List(ctx context.Context, search string, q ListQuery) ([]Order, pagination.Meta, error) {
	search = strings.TrimSpace(search)
	if id := NormalizeID(search); IsID(id) {
		q.OrderID = id
	} else {
		q.Email = search
	}
	if q.Status != "" {
		if _, err := ParseStatus(string(q.Status)); err != nil {
			return nil, pagination.Meta{}, err
		}
	}

	orders, total, err := s.Orders.List(ctx, q)
	if err != nil {
		return nil, pagination.Meta{}, errors.Wrap(err, "list orders")
	}
	return orders, q.Page.MetaFor(total), nil
}

// UpdateStatus sets the status of an order and notifies the customer on
// every successful update, including one that repeats the current status.
// Any status may follow any other.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (*Order, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	o, err := s.Orders.UpdateStatus(ctx, NormalizeID(id), st, s.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "update order status")
	}

	if !s.Notifier.Enqueue(ctx, statusMessage(o)) {
		zctx.From(ctx).Warn("Status notification not queued", zap.String("order_id", o.ID))
	}
	return o, nil
}

func checkRequest(req *CheckoutRequest) error {
	var v validate.Error
	if len(req.Items) == 0 {
		v.Add("items", "at least one item is required")
	}
	for _, l := range req.Items {
		if strings.TrimSpace(l.ProductID) == "" {
			v.Add("items", "item id is required")
			break
		}
		if l.Quantity < 1 {
			v.Add("items", "quantity must be at least 1")
			break
		}
	}

	req.Email = strings.TrimSpace(req.Email)
	v.Require("email", req.Email)
	v.Email("email", req.Email)
	v.Require("lastName", req.Shipping.LastName)
	v.Require("address", req.Shipping.Address)
	v.Require("pin", req.Shipping.PostalCode)
	v.Require("phone", req.Shipping.Phone)
	v.Require("stateId", req.Shipping.StateID)
	v.Require("cityId", req.Shipping.CityID)
	switch {
	case req.PaymentMethod == "":
		v.Add("paymentMethod", "paymentMethod is required")
	case !req.PaymentMethod.Valid():
		v.Add("paymentMethod", "paymentMethod must be gateway or cod")
	}
	v.Require("shippingId", string(req.ShippingID))

	if !req.BillingSame {
		b := req.Billing
		if b == nil {
			b = &AddressInput{}
			req.Billing = b
		}
		v.Require("billingAddress.address", b.Address)
		v.Require("billingAddress.pin", b.PostalCode)
		v.Require("billingAddress.phone", b.Phone)
		v.Require("billingAddress.stateId", b.StateID)
		v.Require("billingAddress.cityId", b.CityID)
	}
	return v.Err()
}

func snapshotAddress(in AddressInput, state *geo.State, city *geo.City) Address {
	return Address{
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Address:    strings.TrimSpace(in.Address),
		Apartment:  strings.TrimSpace(in.Apartment),
		City:       Place{ID: city.ID, Name: city.Name},
		State:      Place{ID: state.ID, Name: state.Name},
		PostalCode: strings.TrimSpace(in.PostalCode),
		Phone:      strings.TrimSpace(in.Phone),
	}
}
