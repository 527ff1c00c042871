// Package geo provides the state and city reference data used to validate
// addresses.
package geo

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrStateNotFound     = errors.New("state not found")
	ErrCityNotFound      = errors.New("city not found")
	ErrCityStateMismatch = errors.New("city does not belong to the selected state")
	ErrInvalidID         = errors.New("invalid state or city id")
)

// State is a top-level region.
type State struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// City belongs to exactly one State.
type City struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	StateID string `json:"stateId"`
}

// Repository provides read access to reference data.
type Repository interface {
	ListStates(ctx context.Context) ([]State, error)
	ListCities(ctx context.Context, stateID string) ([]City, error)
	GetState(ctx context.Context, id string) (*State, error)
	GetCity(ctx context.Context, id string) (*City, error)
}

// Directory answers reference data queries.
type Directory struct {
	repo Repository
}

// NewDirectory creates a Directory backed by repo.
func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

// ListStates returns all states ordered by name.
func (d *Directory) ListStates(ctx context.Context) ([]State, error) {
	states, err := d.repo.ListStates(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list states")
	}
	return states, nil
}

// ListCities returns the cities of stateID ordered by name.
func (d *Directory) ListCities(ctx context.Context, stateID string) ([]City, error) {
	if err := uuid.Validate(stateID); err != nil {
		return nil, ErrInvalidID
	}
	cities, err := d.repo.ListCities(ctx, stateID)
	if err != nil {
		return nil, errors.Wrap(err, "list cities")
	}
	return cities, nil
}

// Resolve looks up stateID and cityID concurrently and checks that the city
// belongs to the state.
func (d *Directory) Resolve(ctx context.Context, stateID, cityID string) (*State, *City, error) {
	if uuid.Validate(stateID) != nil || uuid.Validate(cityID) != nil {
		return nil, nil, ErrInvalidID
	}

	var (
		state *State
		city  *City
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := d.repo.GetState(gctx, stateID)
		if err != nil {
			return errors.Wrap(err, "get state")
		}
		state = s
		return nil
	})
	g.Go(func() error {
		c, err := d.repo.GetCity(gctx, cityID)
		if err != nil {
			return errors.Wrap(err, "get city")
		}
		city = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if city.StateID != state.ID {
		return nil, nil, ErrCityStateMismatch
	}
	return state, city, nil
}
