package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/sarit-store/internal/domain/shipping"
)

const (
	getShippingConfigSQL = `SELECT methods, updated_at FROM shipping_config WHERE id = 1`

	saveShippingConfigSQL = `INSERT INTO shipping_config (id, methods, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET methods = EXCLUDED.methods, updated_at = EXCLUDED.updated_at`
)

var _ shipping.Repository = (*ShippingRepository)(nil)

// ShippingRepository stores the singleton shipping config row.
type ShippingRepository struct {
	pool *pgxpool.Pool
}

// NewShippingRepository returns a ShippingRepository that uses the given pool.
func NewShippingRepository(pool *pgxpool.Pool) *ShippingRepository {
	return &ShippingRepository{pool: pool}
}

// Get returns the stored config or shipping.ErrNotFound.
func (r *ShippingRepository) Get(ctx context.Context) (*shipping.Config, error) {
	var (
		cfg     shipping.Config
		methods []byte
	)
	if err := r.pool.QueryRow(ctx, getShippingConfigSQL).Scan(&methods, &cfg.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipping.ErrNotFound
		}
		return nil, fmt.Errorf("getting shipping config: %w", err)
	}
	if err := json.Unmarshal(methods, &cfg.Methods); err != nil {
		return nil, fmt.Errorf("decoding shipping methods: %w", err)
	}
	return &cfg, nil
}

// Save replaces the stored config.
func (r *ShippingRepository) Save(ctx context.Context, cfg *shipping.Config) error {
	methods, err := json.Marshal(cfg.Methods)
	if err != nil {
		return fmt.Errorf("encoding shipping methods: %w", err)
	}
	if _, err := r.pool.Exec(ctx, saveShippingConfigSQL, methods, cfg.UpdatedAt); err != nil {
		return fmt.Errorf("saving shipping config: %w", err)
	}
	return nil
}
