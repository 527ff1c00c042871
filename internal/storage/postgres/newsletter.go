package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/sarit-store/internal/domain/newsletter"
)

const (
	insertSubscriptionSQL = `INSERT INTO newsletter_subscriptions (email, created_at)
		VALUES ($1, $2)
		ON CONFLICT (email) DO NOTHING
		RETURNING id::text, email, created_at`

	deleteSubscriptionSQL = `DELETE FROM newsletter_subscriptions WHERE email = $1`

	listSubscriptionsSQL = `SELECT id::text, email, created_at
		FROM newsletter_subscriptions ORDER BY created_at DESC`
)

var _ newsletter.Repository = (*NewsletterRepository)(nil)

// NewsletterRepository stores newsletter subscriptions.
type NewsletterRepository struct {
	pool *pgxpool.Pool
}

// NewNewsletterRepository returns a NewsletterRepository that uses the given pool.
func NewNewsletterRepository(pool *pgxpool.Pool) *NewsletterRepository {
	return &NewsletterRepository{pool: pool}
}

// Insert adds email. Returns newsletter.ErrAlreadySubscribed when present.
func (r *NewsletterRepository) Insert(ctx context.Context, email string, at time.Time) (*newsletter.Subscription, error) {
	var s newsletter.Subscription
	if err := r.pool.QueryRow(ctx, insertSubscriptionSQL, email, at).Scan(&s.ID, &s.Email, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, newsletter.ErrAlreadySubscribed
		}
		return nil, fmt.Errorf("inserting subscription: %w", err)
	}
	return &s, nil
}

// Delete removes email.
func (r *NewsletterRepository) Delete(ctx context.Context, email string) error {
	tag, err := r.pool.Exec(ctx, deleteSubscriptionSQL, email)
	if err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return newsletter.ErrNotFound
	}
	return nil
}

// List returns all subscriptions, newest first.
func (r *NewsletterRepository) List(ctx context.Context) ([]newsletter.Subscription, error) {
	rows, err := r.pool.Query(ctx, listSubscriptionsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[newsletter.Subscription])
}
