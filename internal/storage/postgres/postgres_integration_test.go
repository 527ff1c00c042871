//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/sarit-store/internal/domain/contact"
	"github.com/xenking/sarit-store/internal/domain/coupon"
	"github.com/xenking/sarit-store/internal/domain/geo"
	"github.com/xenking/sarit-store/internal/domain/newsletter"
	"github.com/xenking/sarit-store/internal/domain/order"
	"github.com/xenking/sarit-store/internal/domain/product"
	"github.com/xenking/sarit-store/internal/domain/shipping"
	"github.com/xenking/sarit-store/internal/domain/testimonial"
	"github.com/xenking/sarit-store/pkg/pagination"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "sarit",
				"POSTGRES_PASSWORD": "sarit",
				"POSTGRES_DB":       "sarit",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		return 1
	}
	defer func() { _ = pg.Terminate(context.Background()) }()

	host, err := pg.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "host: %v\n", err)
		return 1
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "mapped port: %v\n", err)
		return 1
	}

	dsn := fmt.Sprintf("postgres://sarit:sarit@%s:%s/sarit?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pool: %v\n", err)
		return 1
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "migrations: %v\n", err)
		return 1
	}
	return m.Run()
}

func seedProduct(t *testing.T, id string, price string) {
	t.Helper()
	err := NewProductRepository(testPool).Upsert(context.Background(), &product.Product{
		ID:        id,
		Name:      "Bag " + id,
		Type:      product.TypeBag,
		Price:     decimal.RequireFromString(price),
		Quantity:  5,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
}

func TestProductRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testPool)
	seedProduct(t, "p-cheap", "100")
	seedProduct(t, "p-dear", "900")

	got, err := repo.GetByIDs(ctx, []string{"p-cheap", "p-dear", "missing"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, product.ErrNotFound)

	list, err := repo.List(ctx, product.ListFilter{Type: product.TypeBag, PriceSort: product.PriceSortHighLow})
	require.NoError(t, err)
	require.NotEmpty(t, list)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].Price.GreaterThan(list[i-1].Price))
	}
}

func TestProductRepositoryWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testPool)
	created := time.Now().UTC().Truncate(time.Microsecond)

	p := &product.Product{
		ID:        "p-admin",
		Name:      "Sling",
		Type:      product.TypeCollection,
		Price:     decimal.RequireFromString("250"),
		Rating:    decimal.RequireFromString("4.5"),
		Quantity:  2,
		Colors:    []string{"olive"},
		CreatedAt: created,
	}
	require.NoError(t, repo.Insert(ctx, p))
	assert.Error(t, repo.Insert(ctx, p), "duplicate id")

	p.Name = "Sling v2"
	p.Features = []string{"Adjustable strap"}
	p.CreatedAt = created.Add(time.Hour)
	require.NoError(t, repo.Update(ctx, p))

	got, err := repo.GetByID(ctx, "p-admin")
	require.NoError(t, err)
	assert.Equal(t, "Sling v2", got.Name)
	assert.Equal(t, []string{"Adjustable strap"}, got.Features)
	assert.True(t, created.Equal(got.CreatedAt), "created_at is kept")

	require.NoError(t, repo.Delete(ctx, "p-admin"))
	assert.ErrorIs(t, repo.Delete(ctx, "p-admin"), product.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, p), product.ErrNotFound)
}

func TestTestimonialRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTestimonialRepository(testPool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	older := &testimonial.Testimonial{Quote: "Sturdy", Author: "Asha", Rating: 4, CreatedAt: now.Add(-time.Hour), UpdatedAt: now}
	newer := &testimonial.Testimonial{Quote: "Lovely", Author: "Ravi", Rating: 5, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Insert(ctx, older))
	require.NoError(t, repo.Insert(ctx, newer))
	require.NotEmpty(t, older.ID)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(list), 2)
	assert.Equal(t, newer.ID, list[0].ID)

	older.Quote, older.Rating = "Very sturdy", 5
	require.NoError(t, repo.Update(ctx, older))
	got, err := repo.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "Very sturdy", got.Quote)
	assert.Equal(t, 5, got.Rating)

	deleted, err := repo.Delete(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "Very sturdy", deleted.Quote)
	_, err = repo.Delete(ctx, older.ID)
	assert.ErrorIs(t, err, testimonial.ErrNotFound)
	_, err = repo.Get(ctx, older.ID)
	assert.ErrorIs(t, err, testimonial.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, older), testimonial.ErrNotFound)
}

func TestContactRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewContactRepository(testPool)
	now := time.Now().UTC()

	for i, m := range []contact.Message{
		{Name: "Asha", Email: "asha@example.com", Comment: "Where is my 100% cotton tote?"},
		{Name: "Ravi", Email: "ravi@example.com", Phone: "+919876543210", Comment: "Bulk order enquiry"},
		{Name: "Meera", Email: "meera_k@example.com", Comment: "Do you ship abroad?"},
	} {
		m.CreatedAt = now.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Insert(ctx, &m))
		require.NotEmpty(t, m.ID)
	}

	items, total, err := repo.List(ctx, contact.ListQuery{Page: pagination.New(1, 2)})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "Meera", items[0].Name)

	_, total, err = repo.List(ctx, contact.ListQuery{Page: pagination.New(5, 2)})
	require.NoError(t, err)
	assert.Equal(t, 3, total, "count past the last page")

	tests := []struct {
		search string
		want   []string
	}{
		{search: "BULK", want: []string{"Ravi"}},
		{search: "98765", want: []string{"Ravi"}},
		{search: "100%", want: []string{"Asha"}},
		{search: "_k@", want: []string{"Meera"}},
		{search: "%", want: []string{"Asha"}},
		{search: "nobody", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			items, total, err := repo.List(ctx, contact.ListQuery{Search: tt.search, Page: pagination.New(1, 10)})
			require.NoError(t, err)
			var names []string
			for _, m := range items {
				names = append(names, m.Name)
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, len(tt.want), total)
		})
	}
}

func TestGeoRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGeoRepository(testPool)

	stateID, err := repo.UpsertState(ctx, "Kerala")
	require.NoError(t, err)
	require.NoError(t, repo.UpsertCity(ctx, stateID, "Kochi"))
	require.NoError(t, repo.UpsertCity(ctx, stateID, "Kochi"))

	again, err := repo.UpsertState(ctx, "Kerala")
	require.NoError(t, err)
	assert.Equal(t, stateID, again)

	cities, err := repo.ListCities(ctx, stateID)
	require.NoError(t, err)
	require.Len(t, cities, 1)

	city, err := repo.GetCity(ctx, cities[0].ID)
	require.NoError(t, err)
	assert.Equal(t, stateID, city.StateID)

	_, err = repo.GetState(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, geo.ErrStateNotFound)
}

func TestShippingRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewShippingRepository(testPool)

	cfg := &shipping.Config{Methods: shipping.DefaultMethods(), UpdatedAt: time.Now().UTC()}
	require.NoError(t, repo.Save(ctx, cfg))

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	require.Len(t, got.Methods, 2)
	assert.Equal(t, shipping.MethodExpress, got.Methods[1].ID)
	assert.True(t, got.Methods[1].Cost.Equal(decimal.NewFromInt(150)))
}

func TestNewsletterRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewNewsletterRepository(testPool)

	_, err := repo.Insert(ctx, "reader@example.com", time.Now())
	require.NoError(t, err)
	_, err = repo.Insert(ctx, "reader@example.com", time.Now())
	assert.ErrorIs(t, err, newsletter.ErrAlreadySubscribed)

	require.NoError(t, repo.Delete(ctx, "reader@example.com"))
	assert.ErrorIs(t, repo.Delete(ctx, "reader@example.com"), newsletter.ErrNotFound)
}

func TestCouponRedeemRespectsLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewCouponRepository(testPool)
	now := time.Now()

	c := &coupon.Coupon{
		Code:          "RACE1",
		DiscountType:  coupon.DiscountFixed,
		DiscountValue: decimal.NewFromInt(10),
		UsageLimit:    3,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, repo.Create(ctx, c))
	assert.NotEmpty(t, c.ID)
	assert.ErrorIs(t, repo.Create(ctx, c), coupon.ErrCodeExists)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		redeemed int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Redeem(ctx, "RACE1", now); err == nil {
				mu.Lock()
				redeemed++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, coupon.ErrUsageLimitReached)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, redeemed)

	got, err := repo.FindByCode(ctx, "RACE1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.UsedCount)

	items, total, err := repo.List(ctx, coupon.ListQuery{Search: "race", Page: pagination.New(1, 10)})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, items, 1)
}

func testOrder(id, shippingID string, cpn *order.AppliedCoupon) *order.Order {
	method := shipping.DefaultMethods()[0]
	if shippingID == string(shipping.MethodExpress) {
		method = shipping.DefaultMethods()[1]
	}
	totals := order.Gross(decimal.NewFromInt(100), method.Cost)
	return &order.Order{
		ID:    id,
		Items: []order.Item{{ProductID: "p-cheap", Name: "Bag p-cheap", Price: decimal.NewFromInt(100), Quantity: 1}},
		Contact: order.Contact{
			Email: "buyer@example.com",
		},
		ShippingAddress: order.Address{
			LastName: "Doe", Address: "1 Main St", PostalCode: "682001", Phone: "9999999999",
			City: order.Place{ID: "c", Name: "Kochi"}, State: order.Place{ID: "s", Name: "Kerala"},
		},
		PaymentMethod:  order.PaymentCOD,
		ShippingMethod: method,
		Coupon:         cpn,
		Totals:         totals,
		Status:         order.StatusPending,
	}
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testPool)
	seedProduct(t, "p-cheap", "100")
	now := time.Now().UTC().Truncate(time.Microsecond)

	std := testOrder("SRTAAAAAAA1", "standard", nil)
	require.NoError(t, repo.Create(ctx, std, now))
	exp := testOrder("SRTAAAAAAA2", "express", nil)
	require.NoError(t, repo.Create(ctx, exp, now.Add(-time.Hour)))

	err := repo.Create(ctx, testOrder("SRTAAAAAAA1", "standard", nil), now)
	assert.ErrorIs(t, err, order.ErrDuplicateID)

	ok, err := repo.Exists(ctx, "SRTAAAAAAA1")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.Get(ctx, "SRTAAAAAAA1")
	require.NoError(t, err)
	assert.Equal(t, std.Items, got.Items)
	assert.Nil(t, got.BillingAddress)
	assert.Nil(t, got.Coupon)
	assert.True(t, std.Totals.Total.Equal(got.Totals.Total))

	_, err = repo.Get(ctx, "SRTMISSING0")
	assert.ErrorIs(t, err, order.ErrNotFound)

	list, total, err := repo.List(ctx, order.ListQuery{Sort: order.SortExpressFirst, Page: pagination.New(1, 10)})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, "SRTAAAAAAA2", list[0].ID)

	list, total, err = repo.List(ctx, order.ListQuery{Email: "BUYER@", Page: pagination.New(1, 1)})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, list, 1)

	// Wildcards in the search are literal.
	_, total, err = repo.List(ctx, order.ListQuery{Email: "%", Page: pagination.New(1, 10)})
	require.NoError(t, err)
	assert.Zero(t, total)
	_, total, err = repo.List(ctx, order.ListQuery{Email: "_", Page: pagination.New(1, 10)})
	require.NoError(t, err)
	assert.Zero(t, total)

	updated, err := repo.UpdateStatus(ctx, "SRTAAAAAAA1", order.StatusShipped, now)
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, updated.Status)

	_, err = repo.UpdateStatus(ctx, "SRTMISSING0", order.StatusShipped, now)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestOrderCreateRollsBackOnExhaustedCoupon(t *testing.T) {
	ctx := context.Background()
	coupons := NewCouponRepository(testPool)
	orders := NewOrderRepository(testPool)
	seedProduct(t, "p-cheap", "100")
	now := time.Now()

	require.NoError(t, coupons.Create(ctx, &coupon.Coupon{
		Code: "ONCE", DiscountType: coupon.DiscountFixed, DiscountValue: decimal.NewFromInt(5),
		UsageLimit: 1, Active: true, CreatedAt: now, UpdatedAt: now,
	}))
	applied := &order.AppliedCoupon{Code: "ONCE", DiscountType: coupon.DiscountFixed, DiscountValue: decimal.NewFromInt(5)}

	require.NoError(t, orders.Create(ctx, testOrder("SRTCPN00001", "standard", applied), now))
	err := orders.Create(ctx, testOrder("SRTCPN00002", "standard", applied), now)
	assert.ErrorIs(t, err, coupon.ErrUsageLimitReached)

	ok, err := orders.Exists(ctx, "SRTCPN00002")
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := orders.Get(ctx, "SRTCPN00001")
	require.NoError(t, err)
	require.NotNil(t, stored.Coupon)
	assert.Equal(t, "ONCE", stored.Coupon.Code)
}
