package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/sarit-store/internal/domain/coupon"
	"github.com/xenking/sarit-store/internal/domain/shipping"
	"github.com/xenking/sarit-store/pkg/pagination"
)

var (
	// ErrNotFound is returned when no order matches an identifier.
	ErrNotFound = errors.New("order not found")
	// ErrItemsNotFound is returned when a cart references unknown products.
	ErrItemsNotFound = errors.New("some cart items were not found")
	// ErrInvalidStatus is returned for a status outside the defined set.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrDuplicateID is returned by a Repository when an order id is taken.
	ErrDuplicateID = errors.New("order id already exists")
	// ErrIDExhausted is returned when no free order id was found in time.
	ErrIDExhausted = errors.New("could not allocate a unique order id")
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every defined status.
var Statuses = []Status{
	StatusPending, StatusPaid, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled,
}

// ParseStatus validates s.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", errors.Wrapf(ErrInvalidStatus, "%q", s)
}

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentGateway PaymentMethod = "gateway"
	PaymentCOD     PaymentMethod = "cod"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentGateway || m == PaymentCOD
}

// Item is a priced line snapshot.
type Item struct {
	ProductID string          `json:"_id"`
	Name      string          `json:"bagName"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Place is a resolved reference with its display name.
type Place struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Address is a stored address snapshot.
type Address struct {
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName"`
	Address    string `json:"address"`
	Apartment  string `json:"apartment,omitempty"`
	City       Place  `json:"city"`
	State      Place  `json:"state"`
	PostalCode string `json:"pin"`
	Phone      string `json:"phone"`
}

// Contact is the customer contact block.
type Contact struct {
	Email     string `json:"email"`
	Subscribe bool   `json:"subscribe"`
}

// AppliedCoupon is the coupon snapshot stored on an order.
type AppliedCoupon struct {
	Code           string              `json:"code"`
	DiscountType   coupon.DiscountType `json:"discountType"`
	DiscountValue  decimal.Decimal     `json:"discountValue"`
	DiscountAmount decimal.Decimal     `json:"discountAmount"`
}

// Order is a persisted checkout.
type Order struct {
	ID              string
	Items           []Item
	Contact         Contact
	ShippingAddress Address
	BillingAddress  *Address
	PaymentMethod   PaymentMethod
	ShippingMethod  shipping.Method
	Coupon          *AppliedCoupon
	Totals          Totals
	Status          Status
	CustomerID      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SortMode orders a listing.
type SortMode string

const (
	SortNewest       SortMode = ""
	SortExpressFirst SortMode = "express"
)

// ListQuery filters and pages the admin order listing.
type ListQuery struct {
	// Email matches the contact email as a case-insensitive substring.
	Email string
	// OrderID matches exactly.
	OrderID  string
	Status   Status
	DateFrom *time.Time
	DateTo   *time.Time
	Sort     SortMode
	Page     pagination.Params
}

// Repository defines persistence operations for orders.
type Repository interface {
	Exists(ctx context.Context, id string) (bool, error)
	// Create inserts o. When o.Coupon is set it also redeems that coupon in
	// the same transaction, failing with coupon.ErrUsageLimitReached if the
	// coupon can no longer be used at now.
	Create(ctx context.Context, o *Order, now time.Time) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, q ListQuery) ([]Order, int, error)
	UpdateStatus(ctx context.Context, id string, status Status, now time.Time) (*Order, error)
}
