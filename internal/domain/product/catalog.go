package product

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/sarit-store/internal/domain/validate"
)

var maxRating = decimal.NewFromInt(5)

// Store is a Repository that can also edit the catalog.
type Store interface {
	Repository
	Insert(ctx context.Context, p *Product) error
	// Update replaces every field of the stored product except CreatedAt.
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}

// Input holds the editable fields of a product. Update replaces all of them.
type Input struct {
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
	// Quantity defaults to 1 when nil.
	Quantity *int
	Material string
	Colors   []string
	Capacity string
	Brand    string
	Features []string
}

// Catalog serves the storefront listing and its administration.
type Catalog struct {
	store Store
	now   func() time.Time
	newID func() string
}

// NewCatalog creates a Catalog backed by store.
func NewCatalog(store Store) *Catalog {
	return &Catalog{store: store, now: time.Now, newID: uuid.NewString}
}

// List returns products matching f.
func (c *Catalog) List(ctx context.Context, f ListFilter) ([]Product, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	items, err := c.store.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return items, nil
}

// GetByID returns the product with the given id.
func (c *Catalog) GetByID(ctx context.Context, id string) (*Product, error) {
	p, err := c.store.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get product")
	}
	return p, nil
}

// Create validates in and adds it to the catalog under a new id.
func (c *Catalog) Create(ctx context.Context, in Input) (*Product, error) {
	p := in.product()
	if err := p.validate(); err != nil {
		return nil, err
	}
	p.ID = c.newID()
	p.CreatedAt = c.now()
	if err := c.store.Insert(ctx, p); err != nil {
		return nil, errors.Wrap(err, "insert product")
	}
	return p, nil
}

// Update replaces the fields of product id with in.
func (c *Catalog) Update(ctx context.Context, id string, in Input) (*Product, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	prev, err := c.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := in.product()
	if err := p.validate(); err != nil {
		return nil, err
	}
	p.ID = prev.ID
	p.CreatedAt = prev.CreatedAt
	if err := c.store.Update(ctx, p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "update product")
	}
	return p, nil
}

// Delete removes product id from the catalog.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}
	if err := c.store.Delete(ctx, strings.TrimSpace(id)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrap(err, "delete product")
	}
	return nil
}

func requireID(id string) error {
	var v validate.Error
	v.Require("id", id)
	return v.Err()
}

func (in Input) product() *Product {
	p := &Product{
		Title:              strings.TrimSpace(in.Title),
		Name:               strings.TrimSpace(in.Name),
		Description:        strings.TrimSpace(in.Description),
		ProductDescription: strings.TrimSpace(in.ProductDescription),
		Href:               strings.TrimSpace(in.Href),
		Type:               in.Type,
		Price:              in.Price,
		CompareAt:          in.CompareAt,
		OnSale:             in.OnSale,
		Rating:             in.Rating,
		Reviews:            in.Reviews,
		DeliveryCharge:     in.DeliveryCharge,
		Quantity:           1,
		Material:           strings.TrimSpace(in.Material),
		Colors:             cleanList(in.Colors),
		Capacity:           strings.TrimSpace(in.Capacity),
		Brand:              strings.TrimSpace(in.Brand),
		Features:           cleanList(in.Features),
	}
	if in.Quantity != nil {
		p.Quantity = *in.Quantity
	}
	return p
}

func (p *Product) validate() error {
	var v validate.Error
	v.Require("title", p.Title)
	v.Require("bagName", p.Name)
	v.Require("description", p.Description)
	v.Require("href", p.Href)
	if p.Type != TypeCollection && p.Type != TypeBag {
		v.Add("type", "type must be 1 or 2")
	}
	for _, f := range []struct {
		name string
		v    decimal.Decimal
	}{
		{"price", p.Price},
		{"compareAt", p.CompareAt},
		{"deliveryCharge", p.DeliveryCharge},
	} {
		if f.v.IsNegative() {
			v.Add(f.name, f.name+" must be a non-negative number")
		}
	}
	if p.Rating.IsNegative() || p.Rating.GreaterThan(maxRating) {
		v.Add("rating", "rating must be between 0 and 5")
	}
	if p.Reviews < 0 {
		v.Add("reviews", "reviews must be a non-negative integer")
	}
	if p.Quantity < 0 {
		v.Add("quantity", "quantity must be a non-negative integer")
	}
	return v.Err()
}

// cleanList trims entries and drops empty ones.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
