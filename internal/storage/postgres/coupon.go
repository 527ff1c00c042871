package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/sarit-store/internal/domain/coupon"
)

const (
	couponColumns = `id::text, code, discount_type, discount_value, expires_at,
		usage_limit, used_count, active, created_at, updated_at`

	insertCouponSQL = `INSERT INTO coupons
		(code, discount_type, discount_value, expires_at, usage_limit, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id::text`

	upsertCouponSQL = `INSERT INTO coupons
		(code, discount_type, discount_value, expires_at, usage_limit, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (code) DO NOTHING`

	listCouponsSQL = `SELECT ` + couponColumns + `, count(*) OVER ()
		FROM coupons
		WHERE code ILIKE $1 ESCAPE '\'
		ORDER BY created_at DESC, code
		LIMIT $2 OFFSET $3`

	countCouponsSQL = `SELECT count(*) FROM coupons WHERE code ILIKE $1 ESCAPE '\'`

	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	getActiveCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1 AND active = TRUE`

	updateCouponSQL = `UPDATE coupons SET
		discount_type = $2, discount_value = $3, expires_at = $4, usage_limit = $5, active = $6, updated_at = $7
		WHERE code = $1`

	deleteCouponSQL = `DELETE FROM coupons WHERE code = $1`

	// redeemCouponSQL consumes one use only while the coupon is still
	// redeemable, so concurrent redemptions cannot overrun the limit.
	redeemCouponSQL = `UPDATE coupons SET used_count = used_count + 1, updated_at = $2
		WHERE code = $1 AND active = TRUE
			AND (usage_limit = 0 OR used_count < usage_limit)
			AND (expires_at IS NULL OR expires_at >= $2)`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// Create inserts c and sets its ID. Returns coupon.ErrCodeExists when the
// code is taken.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	err := r.pool.QueryRow(ctx, insertCouponSQL,
		c.Code, string(c.DiscountType), c.DiscountValue, c.ExpiresAt, c.UsageLimit, c.Active, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrCodeExists
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// InsertIfAbsent stores c unless its code already exists and reports
// whether a row was written.
func (r *CouponRepository) InsertIfAbsent(ctx context.Context, c *coupon.Coupon) (bool, error) {
	tag, err := r.pool.Exec(ctx, upsertCouponSQL,
		c.Code, string(c.DiscountType), c.DiscountValue, c.ExpiresAt, c.UsageLimit, c.Active, c.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("inserting coupon %q: %w", c.Code, err)
	}
	return tag.RowsAffected() == 1, nil
}

// List returns a page of coupons, newest first, and the total match count.
func (r *CouponRepository) List(ctx context.Context, q coupon.ListQuery) ([]coupon.Coupon, int, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL, containsPattern(q.Search), q.Page.Limit, q.Page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("listing coupons: %w", err)
	}

	var total int
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (coupon.Coupon, error) {
		c, dest := couponDest()
		err := row.Scan(append(dest, &total)...)
		return *c, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("listing coupons: %w", err)
	}
	if len(items) == 0 && q.Page.Offset() > 0 {
		// Past the last page the window count is unavailable.
		if err := r.pool.QueryRow(ctx, countCouponsSQL, containsPattern(q.Search)).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("counting coupons: %w", err)
		}
	}
	return items, total, nil
}

// FindByCode returns the coupon with code regardless of state.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return r.findOne(ctx, getCouponByCodeSQL, code)
}

// FindActiveByCode returns the active coupon with code.
func (r *CouponRepository) FindActiveByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return r.findOne(ctx, getActiveCouponByCodeSQL, code)
}

func (r *CouponRepository) findOne(ctx context.Context, sql, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, sql, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon %q: %w", code, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon %q: %w", code, err)
	}
	return &c, nil
}

// Update writes the mutable fields of c.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	tag, err := r.pool.Exec(ctx, updateCouponSQL,
		c.Code, string(c.DiscountType), c.DiscountValue, c.ExpiresAt, c.UsageLimit, c.Active, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating coupon %q: %w", c.Code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Delete removes the coupon with code.
func (r *CouponRepository) Delete(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, code)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Redeem consumes one use of code.
func (r *CouponRepository) Redeem(ctx context.Context, code string, now time.Time) error {
	return redeem(ctx, r.pool, code, now)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func redeem(ctx context.Context, q execer, code string, now time.Time) error {
	tag, err := q.Exec(ctx, redeemCouponSQL, code, now)
	if err != nil {
		return fmt.Errorf("redeeming coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(coupon.ErrUsageLimitReached, "coupon %q no longer redeemable", code)
	}
	return nil
}

func couponDest() (*coupon.Coupon, []any) {
	c := &coupon.Coupon{}
	return c, []any{
		&c.ID, &c.Code, (*string)(&c.DiscountType), &c.DiscountValue, &c.ExpiresAt,
		&c.UsageLimit, &c.UsedCount, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	}
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	c, dest := couponDest()
	err := row.Scan(dest...)
	return *c, err
}
