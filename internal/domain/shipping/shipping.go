// Package shipping manages the singleton delivery configuration.
package shipping

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// MethodID identifies a delivery method.
type MethodID string

const (
	MethodStandard MethodID = "standard"
	MethodExpress  MethodID = "express"
)

var (
	// ErrNotFound is returned by a Repository when the config was never saved.
	ErrNotFound = errors.New("shipping config not found")
	// ErrUnknownMethod is returned when a shipping id is not standard or express.
	ErrUnknownMethod = errors.New("invalid shipping method")
)

// Method is a single delivery option.
type Method struct {
	ID    MethodID        `json:"id"`
	Label string          `json:"label"`
	Cost  decimal.Decimal `json:"cost"`
}

// Config is the persisted singleton. Methods always holds exactly the
// standard and express entries, in that order.
type Config struct {
	Methods   []Method
	UpdatedAt time.Time
}

// DefaultMethods returns the factory configuration.
func DefaultMethods() []Method {
	return []Method{
		{ID: MethodStandard, Label: "Standard Delivery", Cost: decimal.Zero},
		{ID: MethodExpress, Label: "Express Delivery", Cost: decimal.NewFromInt(150)},
	}
}

// Repository persists the singleton config.
type Repository interface {
	// Get returns ErrNotFound when no config has been stored yet.
	Get(ctx context.Context) (*Config, error)
	Save(ctx context.Context, cfg *Config) error
}
