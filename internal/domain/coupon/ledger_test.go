package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/sarit-store/internal/domain/validate"
)

type memRepo struct {
	byCode    map[string]*Coupon
	redeemErr error
	redeemed  []string
}

func newMemRepo(coupons ...Coupon) *memRepo {
	m := &memRepo{byCode: make(map[string]*Coupon)}
	for i := range coupons {
		c := coupons[i]
		m.byCode[c.Code] = &c
	}
	return m
}

func (m *memRepo) Create(_ context.Context, c *Coupon) error {
	if _, ok := m.byCode[c.Code]; ok {
		return errors.Wrap(ErrCodeExists, "insert")
	}
	cp := *c
	m.byCode[c.Code] = &cp
	return nil
}

func (m *memRepo) List(_ context.Context, _ ListQuery) ([]Coupon, int, error) {
	out := make([]Coupon, 0, len(m.byCode))
	for _, c := range m.byCode {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *memRepo) FindByCode(_ context.Context, code string) (*Coupon, error) {
	c, ok := m.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) FindActiveByCode(ctx context.Context, code string) (*Coupon, error) {
	c, err := m.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *memRepo) Update(_ context.Context, c *Coupon) error {
	if _, ok := m.byCode[c.Code]; !ok {
		return ErrNotFound
	}
	cp := *c
	m.byCode[c.Code] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, code string) error {
	if _, ok := m.byCode[code]; !ok {
		return ErrNotFound
	}
	delete(m.byCode, code)
	return nil
}

func (m *memRepo) Redeem(_ context.Context, code string, _ time.Time) error {
	if m.redeemErr != nil {
		return m.redeemErr
	}
	m.redeemed = append(m.redeemed, code)
	m.byCode[code].UsedCount++
	return nil
}

func newTestLedger(t *testing.T, repo Repository, now time.Time) *Ledger {
	t.Helper()
	l, err := NewLedger(repo, noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	l.now = func() time.Time { return now }
	return l
}

func TestLedger_Create(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("normalizes code and defaults active", func(t *testing.T) {
		repo := newMemRepo()
		l := newTestLedger(t, repo, now)

		c, err := l.Create(context.Background(), Input{
			Code:          "  save10 ",
			DiscountType:  DiscountPercentage,
			DiscountValue: d("10"),
		})
		require.NoError(t, err)
		assert.Equal(t, "SAVE10", c.Code)
		assert.True(t, c.Active)
		assert.Equal(t, now, c.CreatedAt)
		assert.Contains(t, repo.byCode, "SAVE10")
	})

	t.Run("aggregates field errors", func(t *testing.T) {
		l := newTestLedger(t, newMemRepo(), now)

		_, err := l.Create(context.Background(), Input{
			Code:          "ab",
			DiscountType:  "bogus",
			DiscountValue: d("-1"),
			UsageLimit:    -2,
		})
		var verr *validate.Error
		require.True(t, errors.As(err, &verr))
		fields := make([]string, len(verr.Fields))
		for i, f := range verr.Fields {
			fields[i] = f.Field
		}
		assert.Equal(t, []string{"code", "discountType", "discountValue", "usageLimit"}, fields)
	})

	t.Run("duplicate code", func(t *testing.T) {
		repo := newMemRepo(Coupon{Code: "DUP", DiscountType: DiscountFixed, Active: true})
		l := newTestLedger(t, repo, now)

		_, err := l.Create(context.Background(), Input{Code: "dup", DiscountType: DiscountFixed, DiscountValue: d("5")})
		require.ErrorIs(t, err, ErrCodeExists)
	})
}

func TestLedger_Update(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	expiry := now.Add(time.Hour)
	repo := newMemRepo(Coupon{
		Code: "EDIT", DiscountType: DiscountFixed, DiscountValue: d("5"), Active: true, ExpiresAt: &expiry,
	})
	l := newTestLedger(t, repo, now)
	ctx := context.Background()

	value := d("20")
	typ := DiscountPercentage
	c, err := l.Update(ctx, "edit", Patch{DiscountType: &typ, DiscountValue: &value, ClearExpiry: true})
	require.NoError(t, err)
	assert.Equal(t, DiscountPercentage, c.DiscountType)
	assert.True(t, value.Equal(repo.byCode["EDIT"].DiscountValue))
	assert.Nil(t, repo.byCode["EDIT"].ExpiresAt)

	limit := -1
	_, err = l.Update(ctx, "EDIT", Patch{UsageLimit: &limit})
	var verr *validate.Error
	require.True(t, errors.As(err, &verr))

	_, err = l.Update(ctx, "MISSING", Patch{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLedger_Delete(t *testing.T) {
	repo := newMemRepo(Coupon{Code: "GONE", DiscountType: DiscountFixed, Active: true})
	l := newTestLedger(t, repo, time.Now())

	require.NoError(t, l.Delete(context.Background(), "gone"))
	require.ErrorIs(t, l.Delete(context.Background(), "gone"), ErrNotFound)
}

func TestLedger_Apply(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		coupons   []Coupon
		redeemErr error
		code      string
		total     decimal.Decimal
		wantCut   decimal.Decimal
		wantTotal decimal.Decimal
		wantErr   error
	}{
		{
			name:      "percentage",
			coupons:   []Coupon{{Code: "SAVE10", DiscountType: DiscountPercentage, DiscountValue: d("10"), Active: true}},
			code:      "save10",
			total:     d("1000.00"),
			wantCut:   d("100.00"),
			wantTotal: d("900.00"),
		},
		{
			name:      "fixed capped at total",
			coupons:   []Coupon{{Code: "BIG", DiscountType: DiscountFixed, DiscountValue: d("2000"), Active: true}},
			code:      "BIG",
			total:     d("1500.00"),
			wantCut:   d("1500.00"),
			wantTotal: d("0"),
		},
		{
			name:    "unknown code",
			code:    "NOPE",
			total:   d("10"),
			wantErr: ErrInvalidCoupon,
		},
		{
			name:    "inactive code",
			coupons: []Coupon{{Code: "OFF", DiscountType: DiscountFixed, DiscountValue: d("1")}},
			code:    "OFF",
			total:   d("10"),
			wantErr: ErrInvalidCoupon,
		},
		{
			name: "limit exhausted",
			coupons: []Coupon{{
				Code: "ONCE", DiscountType: DiscountFixed, DiscountValue: d("1"), Active: true, UsageLimit: 1, UsedCount: 1,
			}},
			code:    "ONCE",
			total:   d("10"),
			wantErr: ErrUsageLimitReached,
		},
		{
			name:      "lost redemption race",
			coupons:   []Coupon{{Code: "RACE", DiscountType: DiscountFixed, DiscountValue: d("1"), Active: true, UsageLimit: 1}},
			redeemErr: errors.Wrap(ErrUsageLimitReached, "conditional update"),
			code:      "RACE",
			total:     d("10"),
			wantErr:   ErrUsageLimitReached,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo(tt.coupons...)
			repo.redeemErr = tt.redeemErr
			l := newTestLedger(t, repo, now)

			res, err := l.Apply(context.Background(), tt.code, tt.total)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.wantCut.Equal(res.Discount.Amount), "discount %s", res.Discount.Amount)
			assert.True(t, tt.wantTotal.Equal(res.NewTotal), "total %s", res.NewTotal)
			assert.Equal(t, []string{res.Discount.Code}, repo.redeemed)
			assert.Equal(t, 1, repo.byCode[res.Discount.Code].UsedCount)
		})
	}
}

func TestLedger_ApplyNegativeTotal(t *testing.T) {
	l := newTestLedger(t, newMemRepo(), time.Now())
	_, err := l.Apply(context.Background(), "ANY", d("-5"))
	var verr *validate.Error
	require.True(t, errors.As(err, &verr))
}

func TestLedger_QuoteDoesNotRedeem(t *testing.T) {
	repo := newMemRepo(Coupon{Code: "Q", DiscountType: DiscountFixed, DiscountValue: d("3"), Active: true})
	l := newTestLedger(t, repo, time.Now())

	got, err := l.Quote(context.Background(), "q", d("10"))
	require.NoError(t, err)
	assert.True(t, d("3").Equal(got.Amount))
	assert.Empty(t, repo.redeemed)
}
