package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/sarit-store/internal/domain/product"
)

const (
	productColumns = `id, title, name, description, product_description, href, type,
		price, compare_at, on_sale, rating, reviews, delivery_charge, quantity,
		material, colors, capacity, brand, features, created_at`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	upsertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, name = EXCLUDED.name, description = EXCLUDED.description,
			product_description = EXCLUDED.product_description, href = EXCLUDED.href, type = EXCLUDED.type,
			price = EXCLUDED.price, compare_at = EXCLUDED.compare_at, on_sale = EXCLUDED.on_sale,
			rating = EXCLUDED.rating, reviews = EXCLUDED.reviews, delivery_charge = EXCLUDED.delivery_charge,
			quantity = EXCLUDED.quantity, material = EXCLUDED.material, colors = EXCLUDED.colors,
			capacity = EXCLUDED.capacity, brand = EXCLUDED.brand, features = EXCLUDED.features`

	insertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	updateProductSQL = `UPDATE products SET
			title = $2, name = $3, description = $4, product_description = $5, href = $6, type = $7,
			price = $8, compare_at = $9, on_sale = $10, rating = $11, reviews = $12, delivery_charge = $13,
			quantity = $14, material = $15, colors = $16, capacity = $17, brand = $18, features = $19
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

var _ product.Store = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns catalog products matching f.
func (r *ProductRepository) List(ctx context.Context, f product.ListFilter) ([]product.Product, error) {
	sql, args := listProductsQuery(f)
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func listProductsQuery(f product.ListFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.Type != product.TypeAny {
		args = append(args, int16(f.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	switch f.Availability {
	case product.AvailabilityInStock:
		where = append(where, "quantity > 0")
	case product.AvailabilityOutOfStock:
		where = append(where, "quantity = 0")
	}

	var b strings.Builder
	b.WriteString("SELECT " + productColumns + " FROM products")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	switch f.PriceSort {
	case product.PriceSortLowHigh:
		b.WriteString(" ORDER BY price ASC, created_at ASC")
	case product.PriceSortHighLow:
		b.WriteString(" ORDER BY price DESC, created_at ASC")
	default:
		b.WriteString(" ORDER BY created_at ASC, id ASC")
	}
	return b.String(), args
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Upsert inserts p or replaces the stored product with the same id.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	if _, err := r.pool.Exec(ctx, upsertProductSQL, productArgs(p)...); err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

// Insert adds p.
func (r *ProductRepository) Insert(ctx context.Context, p *product.Product) error {
	if _, err := r.pool.Exec(ctx, insertProductSQL, productArgs(p)...); err != nil {
		return fmt.Errorf("inserting product %q: %w", p.ID, err)
	}
	return nil
}

// Update replaces every column of product p.ID except created_at.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	args := productArgs(p)
	tag, err := r.pool.Exec(ctx, updateProductSQL, args[:len(args)-1]...)
	if err != nil {
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes product id.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// productArgs lists p in productColumns order.
func productArgs(p *product.Product) []any {
	return []any{
		p.ID, p.Title, p.Name, p.Description, p.ProductDescription, p.Href, int16(p.Type),
		p.Price, p.CompareAt, p.OnSale, p.Rating, p.Reviews, p.DeliveryCharge, p.Quantity,
		p.Material, nonNil(p.Colors), p.Capacity, p.Brand, nonNil(p.Features), p.CreatedAt,
	}
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p   product.Product
		typ int16
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Name, &p.Description, &p.ProductDescription, &p.Href, &typ,
		&p.Price, &p.CompareAt, &p.OnSale, &p.Rating, &p.Reviews, &p.DeliveryCharge, &p.Quantity,
		&p.Material, &p.Colors, &p.Capacity, &p.Brand, &p.Features, &p.CreatedAt,
	)
	p.Type = product.Type(typ)
	return p, err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
