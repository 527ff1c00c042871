package coupon

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CheckRedeemable reports why c cannot be applied at now, if anything.
func (c *Coupon) CheckRedeemable(now time.Time) error {
	if !c.Active {
		return ErrInvalidCoupon
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
		return ErrCouponExpired
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return ErrUsageLimitReached
	}
	return nil
}

// Evaluate validates c at now and computes its discount against total.
// Checkout and the standalone apply endpoint both go through here.
func Evaluate(c *Coupon, total decimal.Decimal, now time.Time) (Discount, error) {
	if err := c.CheckRedeemable(now); err != nil {
		return Discount{}, err
	}

	amount, err := Amount(c.DiscountType, c.DiscountValue, total)
	if err != nil {
		return Discount{}, err
	}

	return Discount{
		Code:          c.Code,
		DiscountType:  c.DiscountType,
		DiscountValue: c.DiscountValue,
		Amount:        amount,
	}, nil
}

// Amount computes the discount for the given rule against total, rounded
// to 2 decimal places. The result never exceeds total and is never negative.
func Amount(t DiscountType, value, total decimal.Decimal) (decimal.Decimal, error) {
	var amount decimal.Decimal
	switch t {
	case DiscountPercentage:
		amount = total.Mul(value).Div(hundred).Round(2)
	case DiscountFixed:
		amount = decimal.Min(total, value).Round(2)
	default:
		return decimal.Zero, errors.Errorf("unsupported discount type: %q", t)
	}

	if amount.GreaterThan(total) {
		amount = total.Round(2)
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount, nil
}
