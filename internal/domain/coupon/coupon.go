package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/sarit-store/pkg/pagination"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage off the total.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount off the total, capped at the total.
	DiscountFixed DiscountType = "fixed"
)

// Valid reports whether t is a supported discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

var (
	// ErrNotFound is returned when no coupon exists for a code.
	ErrNotFound = errors.New("coupon not found")
	// ErrInvalidCoupon is returned when a code does not match an active coupon.
	ErrInvalidCoupon = errors.New("invalid or inactive coupon")
	// ErrCouponExpired is returned when a coupon's expiry has passed.
	ErrCouponExpired = errors.New("coupon has expired")
	// ErrUsageLimitReached is returned when a coupon has exhausted its allowed uses.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrCodeExists is returned when creating a coupon whose code is taken.
	ErrCodeExists = errors.New("coupon code already exists")
)

// Coupon is a discount code with usage accounting.
type Coupon struct {
	ID            string
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	ExpiresAt     *time.Time
	// UsageLimit of zero means unlimited.
	UsageLimit int
	UsedCount  int
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Discount is the outcome of applying a coupon to a total.
type Discount struct {
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	Amount        decimal.Decimal
}

// NormalizeCode uppercases and trims a user-supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ListQuery selects a page of coupons, optionally filtered by a
// case-insensitive code substring.
type ListQuery struct {
	Search string
	Page   pagination.Params
}

// Repository provides persistence for coupons.
type Repository interface {
	Create(ctx context.Context, c *Coupon) error
	List(ctx context.Context, q ListQuery) ([]Coupon, int, error)
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	FindActiveByCode(ctx context.Context, code string) (*Coupon, error)
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, code string) error
	// Redeem increments the usage counter unless the coupon became
	// inactive, expired or exhausted since it was read.
	Redeem(ctx context.Context, code string, now time.Time) error
}
