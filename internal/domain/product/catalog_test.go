package product

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/sarit-store/internal/domain/validate"
)

type memStore struct {
	items   map[string]Product
	listErr error
}

func newMemStore(products ...Product) *memStore {
	m := &memStore{items: make(map[string]Product)}
	for _, p := range products {
		m.items[p.ID] = p
	}
	return m
}

func (m *memStore) List(_ context.Context, f ListFilter) ([]Product, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Product
	for _, p := range m.items {
		if f.Type != TypeAny && p.Type != f.Type {
			continue
		}
		if f.Availability == AvailabilityInStock && p.Quantity == 0 {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Product) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*Product, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *memStore) GetByIDs(_ context.Context, ids []string) ([]Product, error) {
	var out []Product
	for _, id := range ids {
		if p, ok := m.items[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) Insert(_ context.Context, p *Product) error {
	m.items[p.ID] = *p
	return nil
}

func (m *memStore) Update(_ context.Context, p *Product) error {
	if _, ok := m.items[p.ID]; !ok {
		return ErrNotFound
	}
	m.items[p.ID] = *p
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func validInput() Input {
	return Input{
		Title:          "Everyday",
		Name:           "Canvas Tote",
		Description:    "Roomy tote",
		Href:           "/bags/canvas-tote",
		Type:           TypeBag,
		Price:          d("1499"),
		CompareAt:      d("1999"),
		Rating:         d("4.5"),
		Reviews:        12,
		DeliveryCharge: d("50"),
		Colors:         []string{" navy ", "", "red"},
		Features:       []string{"Zip pocket"},
	}
}

func validationFields(t *testing.T, err error) []string {
	t.Helper()
	var verr *validate.Error
	require.True(t, errors.As(err, &verr), "want validation error, got %v", err)
	var out []string
	for _, f := range verr.Fields {
		out = append(out, f.Field)
	}
	return out
}

func TestCatalog_Create(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	zero := 0

	tests := []struct {
		name       string
		mutate     func(in *Input)
		wantFields []string
		check      func(t *testing.T, p *Product)
	}{
		{
			name:   "defaults",
			mutate: func(*Input) {},
			check: func(t *testing.T, p *Product) {
				assert.Equal(t, "new-id", p.ID)
				assert.Equal(t, now, p.CreatedAt)
				assert.Equal(t, 1, p.Quantity)
				assert.Equal(t, []string{"navy", "red"}, p.Colors)
			},
		},
		{
			name:   "explicit zero quantity",
			mutate: func(in *Input) { in.Quantity = &zero },
			check: func(t *testing.T, p *Product) {
				assert.Equal(t, 0, p.Quantity)
			},
		},
		{
			name:       "missing text",
			mutate:     func(in *Input) { in.Title, in.Name, in.Description, in.Href = "", " ", "", "" },
			wantFields: []string{"title", "bagName", "description", "href"},
		},
		{
			name:       "bad type",
			mutate:     func(in *Input) { in.Type = 3 },
			wantFields: []string{"type"},
		},
		{
			name: "negative numbers",
			mutate: func(in *Input) {
				in.Price, in.CompareAt, in.DeliveryCharge = d("-1"), d("-1"), d("-1")
				in.Reviews = -1
			},
			wantFields: []string{"price", "compareAt", "deliveryCharge", "reviews"},
		},
		{
			name:       "rating above five",
			mutate:     func(in *Input) { in.Rating = d("5.1") },
			wantFields: []string{"rating"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			c := NewCatalog(store)
			c.now = func() time.Time { return now }
			c.newID = func() string { return "new-id" }

			in := validInput()
			tt.mutate(&in)
			p, err := c.Create(context.Background(), in)
			if tt.wantFields != nil {
				assert.Equal(t, tt.wantFields, validationFields(t, err))
				assert.Empty(t, store.items)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, store.items, p.ID)
			tt.check(t, p)
		})
	}
}

func TestCatalog_UpdateDelete(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newMemStore(Product{ID: "p1", Name: "Old", Type: TypeBag, CreatedAt: created})
	c := NewCatalog(store)
	ctx := context.Background()

	in := validInput()
	in.Type = TypeCollection
	p, err := c.Update(ctx, " p1 ", in)
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, created, p.CreatedAt)
	assert.Equal(t, "Canvas Tote", store.items["p1"].Name)
	assert.Equal(t, TypeCollection, store.items["p1"].Type)

	in.Href = ""
	_, err = c.Update(ctx, "p1", in)
	assert.Equal(t, []string{"href"}, validationFields(t, err))

	_, err = c.Update(ctx, "missing", validInput())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Update(ctx, "", validInput())
	assert.Equal(t, []string{"id"}, validationFields(t, err))

	require.NoError(t, c.Delete(ctx, "p1"))
	assert.Empty(t, store.items)
	assert.ErrorIs(t, c.Delete(ctx, "p1"), ErrNotFound)
	assert.Equal(t, []string{"id"}, validationFields(t, c.Delete(ctx, "  ")))
}

func TestCatalog_List(t *testing.T) {
	c := NewCatalog(newMemStore(Product{ID: "p1", Type: TypeBag}))

	_, err := c.List(context.Background(), ListFilter{Type: 7})
	require.ErrorIs(t, err, ErrInvalidFilter)

	items, err := c.List(context.Background(), ListFilter{Type: TypeBag})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = c.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
