package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/sarit-store/internal/domain/order"
)

const (
	orderColumns = `id, items, contact_email, subscribe, shipping_address, billing_address,
		payment_method, shipping_method, coupon, subtotal, taxes, shipping_cost,
		gross_total, discount, total, status, customer_id, created_at, updated_at`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	insertOrderSQL = `INSERT INTO orders (
			id, items, contact_email, subscribe, shipping_address, billing_address,
			payment_method, shipping_method, shipping_id, coupon, subtotal, taxes, shipping_cost,
			gross_total, discount, total, status, customer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + orderColumns
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
// Line items, addresses and the shipping and coupon snapshots are stored
// as JSONB.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Exists reports whether an order with id is stored.
func (r *OrderRepository) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("checking order %q: %w", id, err)
	}
	return ok, nil
}

// Create inserts o and redeems its coupon in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, now time.Time) (rerr error) {
	args, err := insertOrderArgs(o, now)
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer func() {
		if rerr != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if o.Coupon != nil {
		if err := redeem(ctx, tx, o.Coupon.Code, now); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, insertOrderSQL, args...); err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(order.ErrDuplicateID, "%q", o.ID)
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}

	o.CreatedAt, o.UpdatedAt = now, now
	return nil
}

func insertOrderArgs(o *order.Order, now time.Time) ([]any, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("encoding order items: %w", err)
	}
	shippingAddr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("encoding shipping address: %w", err)
	}
	billingAddr, err := jsonOrNil(o.BillingAddress)
	if err != nil {
		return nil, fmt.Errorf("encoding billing address: %w", err)
	}
	method, err := json.Marshal(o.ShippingMethod)
	if err != nil {
		return nil, fmt.Errorf("encoding shipping method: %w", err)
	}
	cpn, err := jsonOrNil(o.Coupon)
	if err != nil {
		return nil, fmt.Errorf("encoding coupon: %w", err)
	}

	t := o.Totals
	return []any{
		o.ID, items, o.Contact.Email, o.Contact.Subscribe, shippingAddr, billingAddr,
		string(o.PaymentMethod), method, string(o.ShippingMethod.ID), cpn,
		t.Subtotal, t.Taxes, t.ShippingCost, t.GrossTotal, t.Discount, t.Total,
		string(o.Status), nullString(o.CustomerID), now,
	}, nil
}

// Get returns the order with id.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// List returns one page of orders matching q and the total match count.
func (r *OrderRepository) List(ctx context.Context, q order.ListQuery) ([]order.Order, int, error) {
	where, args := listOrdersFilter(q)

	var (
		items []order.Order
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sql := "SELECT count(*) FROM orders" + where
		if err := r.pool.QueryRow(gctx, sql, args...).Scan(&total); err != nil {
			return fmt.Errorf("counting orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		orderBy := " ORDER BY created_at DESC, id"
		if q.Sort == order.SortExpressFirst {
			orderBy = " ORDER BY (shipping_id = 'express') DESC, created_at DESC, id"
		}
		n := len(args)
		sql := "SELECT " + orderColumns + " FROM orders" + where + orderBy +
			fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2)
		pageArgs := append(append([]any{}, args...), q.Page.Limit, q.Page.Offset())

		rows, err := r.pool.Query(gctx, sql, pageArgs...)
		if err != nil {
			return fmt.Errorf("listing orders: %w", err)
		}
		items, err = pgx.CollectRows(rows, scanOrder)
		if err != nil {
			return fmt.Errorf("listing orders: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func listOrdersFilter(q order.ListQuery) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if q.OrderID != "" {
		add("id = $%d", q.OrderID)
	}
	if q.Email != "" {
		add(`contact_email ILIKE $%d ESCAPE '\'`, containsPattern(q.Email))
	}
	if q.Status != "" {
		add("status = $%d", string(q.Status))
	}
	if q.DateFrom != nil {
		add("created_at >= $%d", *q.DateFrom)
	}
	if q.DateTo != nil {
		add("created_at <= $%d", *q.DateTo)
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// UpdateStatus sets the status of order id and returns the stored order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status, now time.Time) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, updateOrderStatusSQL, id, string(status), now)
	if err != nil {
		return nil, fmt.Errorf("updating order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("updating order %q: %w", id, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                       order.Order
		items, shipAddr, method []byte
		billAddr, cpn           []byte
		payment, status         string
		customerID              *string
	)
	t := &o.Totals
	err := row.Scan(
		&o.ID, &items, &o.Contact.Email, &o.Contact.Subscribe, &shipAddr, &billAddr,
		&payment, &method, &cpn, &t.Subtotal, &t.Taxes, &t.ShippingCost,
		&t.GrossTotal, &t.Discount, &t.Total, &status, &customerID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.PaymentMethod = order.PaymentMethod(payment)
	o.Status = order.Status(status)
	if customerID != nil {
		o.CustomerID = *customerID
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, fmt.Errorf("decoding items of %q: %w", o.ID, err)
	}
	if err := json.Unmarshal(shipAddr, &o.ShippingAddress); err != nil {
		return o, fmt.Errorf("decoding shipping address of %q: %w", o.ID, err)
	}
	if err := json.Unmarshal(method, &o.ShippingMethod); err != nil {
		return o, fmt.Errorf("decoding shipping method of %q: %w", o.ID, err)
	}
	if len(billAddr) > 0 {
		if err := json.Unmarshal(billAddr, &o.BillingAddress); err != nil {
			return o, fmt.Errorf("decoding billing address of %q: %w", o.ID, err)
		}
	}
	if len(cpn) > 0 {
		if err := json.Unmarshal(cpn, &o.Coupon); err != nil {
			return o, fmt.Errorf("decoding coupon of %q: %w", o.ID, err)
		}
	}
	return o, nil
}

// jsonOrNil encodes v, or returns nil for a nil pointer so the column is NULL.
func jsonOrNil[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
