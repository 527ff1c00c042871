package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/sarit-store/internal/domain/auth"
)

const (
	getUserEmailSQL = `SELECT email FROM users WHERE id = $1`

	upsertUserSQL = `INSERT INTO users (id, email, name) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name`
)

var _ auth.UserRepository = (*UserRepository)(nil)

// UserRepository reads customer accounts.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// EmailByID returns the stored email of a customer.
func (r *UserRepository) EmailByID(ctx context.Context, id string) (string, error) {
	var email string
	if err := r.pool.QueryRow(ctx, getUserEmailSQL, id).Scan(&email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", auth.ErrUserNotFound
		}
		return "", fmt.Errorf("getting user %q: %w", id, err)
	}
	return email, nil
}

// Upsert stores a customer account.
func (r *UserRepository) Upsert(ctx context.Context, id, email, name string) error {
	if _, err := r.pool.Exec(ctx, upsertUserSQL, id, email, name); err != nil {
		return fmt.Errorf("upserting user %q: %w", id, err)
	}
	return nil
}
