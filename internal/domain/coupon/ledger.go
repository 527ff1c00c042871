package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/sarit-store/internal/domain/validate"
)

const minCodeLength = 3

// Input holds the fields of a new coupon.
type Input struct {
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	ExpiresAt     *time.Time
	UsageLimit    int
	// Active defaults to true when nil.
	Active *bool
}

// Patch holds optional coupon changes. Nil fields are left untouched.
type Patch struct {
	DiscountType  *DiscountType
	DiscountValue *decimal.Decimal
	ExpiresAt     *time.Time
	ClearExpiry   bool
	UsageLimit    *int
	Active        *bool
}

// ApplyResult is returned by Ledger.Apply.
type ApplyResult struct {
	Discount Discount
	NewTotal decimal.Decimal
}

// Ledger manages coupons and their usage accounting.
type Ledger struct {
	repo        Repository
	now         func() time.Time
	redemptions metric.Int64Counter
}

// NewLedger creates a Ledger backed by repo.
func NewLedger(repo Repository, meter metric.Meter) (*Ledger, error) {
	redemptions, err := meter.Int64Counter("coupon.redemptions",
		metric.WithDescription("Coupons redeemed through the apply endpoint"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create redemptions counter")
	}
	return &Ledger{repo: repo, now: time.Now, redemptions: redemptions}, nil
}

// Create validates in and stores a new coupon.
func (l *Ledger) Create(ctx context.Context, in Input) (*Coupon, error) {
	c := &Coupon{
		Code:          NormalizeCode(in.Code),
		DiscountType:  in.DiscountType,
		DiscountValue: in.DiscountValue,
		ExpiresAt:     in.ExpiresAt,
		UsageLimit:    in.UsageLimit,
		Active:        in.Active == nil || *in.Active,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	now := l.now()
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := l.repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrCodeExists) {
			return nil, ErrCodeExists
		}
		return nil, errors.Wrap(err, "create coupon")
	}
	return c, nil
}

// List returns a page of coupons and the total number matching q.
func (l *Ledger) List(ctx context.Context, q ListQuery) ([]Coupon, int, error) {
	q.Search = NormalizeCode(q.Search)
	items, total, err := l.repo.List(ctx, q)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list coupons")
	}
	return items, total, nil
}

// Get returns the coupon with the given code regardless of its state.
func (l *Ledger) Get(ctx context.Context, code string) (*Coupon, error) {
	c, err := l.repo.FindByCode(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get coupon")
	}
	return c, nil
}

// Update merges p into the stored coupon and validates the result.
func (l *Ledger) Update(ctx context.Context, code string, p Patch) (*Coupon, error) {
	c, err := l.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	if p.DiscountType != nil {
		c.DiscountType = *p.DiscountType
	}
	if p.DiscountValue != nil {
		c.DiscountValue = *p.DiscountValue
	}
	if p.ClearExpiry {
		c.ExpiresAt = nil
	} else if p.ExpiresAt != nil {
		c.ExpiresAt = p.ExpiresAt
	}
	if p.UsageLimit != nil {
		c.UsageLimit = *p.UsageLimit
	}
	if p.Active != nil {
		c.Active = *p.Active
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	c.UpdatedAt = l.now()
	if err := l.repo.Update(ctx, c); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "update coupon")
	}
	return c, nil
}

// Delete removes the coupon with the given code.
func (l *Ledger) Delete(ctx context.Context, code string) error {
	if err := l.repo.Delete(ctx, NormalizeCode(code)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrap(err, "delete coupon")
	}
	return nil
}

// Quote evaluates code against total without consuming a use. Checkout
// redeems the coupon itself inside the order transaction.
func (l *Ledger) Quote(ctx context.Context, code string, total decimal.Decimal) (Discount, error) {
	c, err := l.repo.FindActiveByCode(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Discount{}, ErrInvalidCoupon
		}
		return Discount{}, errors.Wrap(err, "lookup coupon")
	}
	return Evaluate(c, total, l.now())
}

// Apply evaluates code against orderTotal and consumes one use of it.
func (l *Ledger) Apply(ctx context.Context, code string, orderTotal decimal.Decimal) (*ApplyResult, error) {
	if orderTotal.IsNegative() {
		var v validate.Error
		v.Add("orderTotal", "orderTotal must be a non-negative number")
		return nil, v.Err()
	}

	d, err := l.Quote(ctx, code, orderTotal)
	if err != nil {
		return nil, err
	}
	if err := l.repo.Redeem(ctx, d.Code, l.now()); err != nil {
		if errors.Is(err, ErrUsageLimitReached) {
			return nil, ErrUsageLimitReached
		}
		return nil, errors.Wrap(err, "redeem coupon")
	}
	l.redemptions.Add(ctx, 1, metric.WithAttributes(attribute.String("coupon.type", string(d.DiscountType))))

	return &ApplyResult{
		Discount: d,
		NewTotal: orderTotal.Sub(d.Amount).Round(2),
	}, nil
}

// Validate reports every invalid field of c.
func (c *Coupon) Validate() error {
	var v validate.Error
	if len(c.Code) < minCodeLength {
		v.Add("code", "code must be at least 3 characters")
	}
	if !c.DiscountType.Valid() {
		v.Add("discountType", "discountType must be percentage or fixed")
	}
	if c.DiscountValue.IsNegative() {
		v.Add("discountValue", "discountValue must be a non-negative number")
	}
	if c.UsageLimit < 0 {
		v.Add("usageLimit", "usageLimit must be a non-negative integer")
	}
	return v.Err()
}
