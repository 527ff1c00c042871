package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/sarit-store/internal/domain/testimonial"
)

const (
	testimonialColumns = `id::text, quote, author, rating, created_at, updated_at`

	insertTestimonialSQL = `INSERT INTO testimonials (quote, author, rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text`

	listTestimonialsSQL = `SELECT ` + testimonialColumns + ` FROM testimonials ORDER BY created_at DESC, id`

	getTestimonialSQL = `SELECT ` + testimonialColumns + ` FROM testimonials WHERE id = $1`

	updateTestimonialSQL = `UPDATE testimonials SET quote = $2, author = $3, rating = $4, updated_at = $5
		WHERE id = $1`

	deleteTestimonialSQL = `DELETE FROM testimonials WHERE id = $1 RETURNING ` + testimonialColumns
)

var _ testimonial.Repository = (*TestimonialRepository)(nil)

// TestimonialRepository stores storefront testimonials. Ids must be UUIDs.
type TestimonialRepository struct {
	pool *pgxpool.Pool
}

// NewTestimonialRepository returns a TestimonialRepository that uses the given pool.
func NewTestimonialRepository(pool *pgxpool.Pool) *TestimonialRepository {
	return &TestimonialRepository{pool: pool}
}

// Insert stores t and sets its ID.
func (r *TestimonialRepository) Insert(ctx context.Context, t *testimonial.Testimonial) error {
	err := r.pool.QueryRow(ctx, insertTestimonialSQL, t.Quote, t.Author, t.Rating, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("inserting testimonial: %w", err)
	}
	return nil
}

// List returns all testimonials, newest first.
func (r *TestimonialRepository) List(ctx context.Context) ([]testimonial.Testimonial, error) {
	rows, err := r.pool.Query(ctx, listTestimonialsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing testimonials: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[testimonial.Testimonial])
}

// Get returns testimonial id.
func (r *TestimonialRepository) Get(ctx context.Context, id string) (*testimonial.Testimonial, error) {
	return r.one(ctx, getTestimonialSQL, id)
}

// Update stores the quote, author, rating and updated_at of t.
func (r *TestimonialRepository) Update(ctx context.Context, t *testimonial.Testimonial) error {
	tag, err := r.pool.Exec(ctx, updateTestimonialSQL, t.ID, t.Quote, t.Author, t.Rating, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating testimonial %q: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return testimonial.ErrNotFound
	}
	return nil
}

// Delete removes testimonial id and returns the removed row.
func (r *TestimonialRepository) Delete(ctx context.Context, id string) (*testimonial.Testimonial, error) {
	return r.one(ctx, deleteTestimonialSQL, id)
}

func (r *TestimonialRepository) one(ctx context.Context, sql, id string) (*testimonial.Testimonial, error) {
	rows, err := r.pool.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("testimonial %q: %w", id, err)
	}
	t, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[testimonial.Testimonial])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, testimonial.ErrNotFound
		}
		return nil, fmt.Errorf("testimonial %q: %w", id, err)
	}
	return &t, nil
}
