package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/sarit-store/internal/domain/geo"
)

const (
	listStatesSQL = `SELECT id::text, name FROM states ORDER BY name`
	listCitiesSQL = `SELECT id::text, name, state_id::text FROM cities WHERE state_id = $1 ORDER BY name`
	getStateSQL   = `SELECT id::text, name FROM states WHERE id = $1`
	getCitySQL    = `SELECT id::text, name, state_id::text FROM cities WHERE id = $1`

	upsertStateSQL = `INSERT INTO states (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id::text`
	upsertCitySQL = `INSERT INTO cities (state_id, name) VALUES ($1, $2)
		ON CONFLICT (state_id, name) DO NOTHING`
)

var _ geo.Repository = (*GeoRepository)(nil)

// GeoRepository reads state and city reference data.
type GeoRepository struct {
	pool *pgxpool.Pool
}

// NewGeoRepository returns a GeoRepository that uses the given pool.
func NewGeoRepository(pool *pgxpool.Pool) *GeoRepository {
	return &GeoRepository{pool: pool}
}

// ListStates returns all states ordered by name.
func (r *GeoRepository) ListStates(ctx context.Context) ([]geo.State, error) {
	rows, err := r.pool.Query(ctx, listStatesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing states: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[geo.State])
}

// ListCities returns the cities of a state ordered by name.
func (r *GeoRepository) ListCities(ctx context.Context, stateID string) ([]geo.City, error) {
	rows, err := r.pool.Query(ctx, listCitiesSQL, stateID)
	if err != nil {
		return nil, fmt.Errorf("listing cities of %q: %w", stateID, err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[geo.City])
}

// GetState returns a state or geo.ErrStateNotFound.
func (r *GeoRepository) GetState(ctx context.Context, id string) (*geo.State, error) {
	var s geo.State
	if err := r.pool.QueryRow(ctx, getStateSQL, id).Scan(&s.ID, &s.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, geo.ErrStateNotFound
		}
		return nil, fmt.Errorf("getting state %q: %w", id, err)
	}
	return &s, nil
}

// GetCity returns a city or geo.ErrCityNotFound.
func (r *GeoRepository) GetCity(ctx context.Context, id string) (*geo.City, error) {
	var c geo.City
	if err := r.pool.QueryRow(ctx, getCitySQL, id).Scan(&c.ID, &c.Name, &c.StateID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, geo.ErrCityNotFound
		}
		return nil, fmt.Errorf("getting city %q: %w", id, err)
	}
	return &c, nil
}

// UpsertState stores a state by name and returns its id.
func (r *GeoRepository) UpsertState(ctx context.Context, name string) (string, error) {
	var id string
	if err := r.pool.QueryRow(ctx, upsertStateSQL, name).Scan(&id); err != nil {
		return "", fmt.Errorf("upserting state %q: %w", name, err)
	}
	return id, nil
}

// UpsertCity stores a city of stateID unless it already exists.
func (r *GeoRepository) UpsertCity(ctx context.Context, stateID, name string) error {
	if _, err := r.pool.Exec(ctx, upsertCitySQL, stateID, name); err != nil {
		return fmt.Errorf("upserting city %q: %w", name, err)
	}
	return nil
}
