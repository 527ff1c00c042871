package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInvalidFilter is returned when a listing filter has an unsupported value.
	ErrInvalidFilter = errors.New("invalid product filter")
)

// Type distinguishes the two catalog lines.
type Type int

const (
	TypeAny        Type = 0
	TypeCollection Type = 1
	TypeBag        Type = 2
)

// Product represents a bag available for purchase.
type Product struct {
	ID                 string
	Title              string
	Name               string
	Description        string
	ProductDescription string
	Href               string
	Type               Type
	Price              decimal.Decimal
	CompareAt          decimal.Decimal
	OnSale             bool
	Rating             decimal.Decimal
	Reviews            int
	DeliveryCharge     decimal.Decimal
	// Quantity is the inventory count.
	Quantity  int
	Material  string
	Colors    []string
	Capacity  string
	Brand     string
	Features  []string
	CreatedAt time.Time
}

// Availability filters by inventory count.
type Availability string

const (
	AvailabilityAll        Availability = "all"
	AvailabilityInStock    Availability = "in-stock"
	AvailabilityOutOfStock Availability = "out-of-stock"
)

// PriceSort orders the listing by price. The zero value keeps creation order.
type PriceSort string

const (
	PriceSortNone    PriceSort = ""
	PriceSortLowHigh PriceSort = "low-high"
	PriceSortHighLow PriceSort = "high-low"
)

// ListFilter narrows and orders a catalog listing.
type ListFilter struct {
	Type         Type
	Availability Availability
	PriceSort    PriceSort
}

// Validate reports the first unsupported filter value.
func (f ListFilter) Validate() error {
	switch f.Type {
	case TypeAny, TypeCollection, TypeBag:
	default:
		return errors.Wrap(ErrInvalidFilter, "type must be 1 or 2")
	}
	switch f.Availability {
	case "", AvailabilityAll, AvailabilityInStock, AvailabilityOutOfStock:
	default:
		return errors.Wrap(ErrInvalidFilter, "availability must be all|in-stock|out-of-stock")
	}
	switch f.PriceSort {
	case PriceSortNone, PriceSortLowHigh, PriceSortHighLow:
	default:
		return errors.Wrap(ErrInvalidFilter, "priceSort must be low-high|high-low")
	}
	return nil
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
