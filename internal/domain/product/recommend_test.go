package product

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(products []Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func browseFixture() *Catalog {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return NewCatalog(newMemStore(
		Product{ID: "seed", Type: TypeBag, Brand: "Sarit", Material: "Canvas", Colors: []string{"Navy"},
			Features: []string{"Zip"}, Price: d("1000"), Rating: d("4"), Quantity: 3, CreatedAt: base},
		Product{ID: "twin", Type: TypeBag, Brand: "sarit", Material: "canvas", Colors: []string{"navy", "red"},
			Features: []string{"zip", "Padded"}, Price: d("1100"), Rating: d("3"), Quantity: 1, CreatedAt: base.Add(time.Hour)},
		Product{ID: "cousin", Type: TypeBag, Brand: "Other", Price: d("1250"), Rating: d("5"), Quantity: 1,
			CreatedAt: base.Add(2 * time.Hour)},
		Product{ID: "stranger", Type: TypeCollection, Brand: "Other", Price: d("9000"), Rating: d("5"), Quantity: 8,
			CreatedAt: base.Add(3 * time.Hour)},
		Product{ID: "soldout", Type: TypeBag, Brand: "Sarit", Price: d("1000"), Rating: d("5"), Quantity: 0,
			CreatedAt: base.Add(4 * time.Hour)},
	))
}

func TestCatalog_Browse(t *testing.T) {
	price := func(s string) *decimal.Decimal { v := d(s); return &v }

	tests := []struct {
		name string
		q    BrowseQuery
		want []string
	}{
		{
			// rating desc, then newest
			name: "no seeds",
			q:    BrowseQuery{},
			want: []string{"stranger", "cousin", "seed", "twin"},
		},
		{
			name: "out of stock included",
			q:    BrowseQuery{OutOfStock: true, Limit: 2},
			want: []string{"soldout", "stranger"},
		},
		{
			// twin 4+3+2+1+1+2+1=14, cousin 4+1+2=7, stranger 2
			name: "seeded",
			q:    BrowseQuery{SeedIDs: []string{"seed"}, Exclude: []string{"seed"}},
			want: []string{"twin", "cousin", "stranger"},
		},
		{
			name: "type and price range",
			q:    BrowseQuery{Type: TypeBag, MinPrice: price("1050"), MaxPrice: price("1300")},
			want: []string{"cousin", "twin"},
		},
		{
			name: "limit",
			q:    BrowseQuery{Limit: 1},
			want: []string{"stranger"},
		},
		{
			name: "unknown seed falls back to quality",
			q:    BrowseQuery{SeedIDs: []string{"ghost", " "}, Limit: 2},
			want: []string{"stranger", "cousin"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := browseFixture().Browse(context.Background(), tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestCatalog_BrowseErrors(t *testing.T) {
	c := browseFixture()
	ctx := context.Background()
	lo, hi := d("10"), d("5")

	_, err := c.Browse(ctx, BrowseQuery{Type: 3})
	assert.ErrorIs(t, err, ErrInvalidFilter)
	_, err = c.Browse(ctx, BrowseQuery{MinPrice: &lo, MaxPrice: &hi})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	store := newMemStore()
	store.listErr = errors.New("db down")
	_, err = NewCatalog(store).Browse(ctx, BrowseQuery{})
	assert.ErrorContains(t, err, "db down")
}

func TestBrowseLimitClamp(t *testing.T) {
	var many []Product
	for i := range 30 {
		many = append(many, Product{ID: string(rune('a' + i)), Type: TypeBag, Quantity: 1})
	}
	c := NewCatalog(newMemStore(many...))

	got, err := c.Browse(context.Background(), BrowseQuery{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, got, MaxBrowseLimit)

	got, err = c.Browse(context.Background(), BrowseQuery{})
	require.NoError(t, err)
	assert.Len(t, got, DefaultBrowseLimit)
}
