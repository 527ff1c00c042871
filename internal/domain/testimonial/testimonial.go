// Package testimonial manages customer quotes shown on the storefront.
package testimonial

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/sarit-store/internal/domain/validate"
)

// ErrNotFound is returned when no testimonial has the requested id.
var ErrNotFound = errors.New("testimonial not found")

const (
	MinRating     = 1
	MaxRating     = 5
	DefaultRating = MaxRating
)

// Testimonial is a single customer quote.
type Testimonial struct {
	ID        string    `json:"_id"`
	Quote     string    `json:"quote"`
	Author    string    `json:"author"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Input holds the editable fields. A nil Rating means DefaultRating on
// create and no change on update.
type Input struct {
	Quote  string
	Author string
	Rating *int
}

// Repository persists testimonials.
type Repository interface {
	Insert(ctx context.Context, t *Testimonial) error
	List(ctx context.Context) ([]Testimonial, error)
	Get(ctx context.Context, id string) (*Testimonial, error)
	Update(ctx context.Context, t *Testimonial) error
	Delete(ctx context.Context, id string) (*Testimonial, error)
}

// Service manages testimonials.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (t *Testimonial) validate() error {
	var v validate.Error
	v.Require("quote", t.Quote)
	v.Require("author", t.Author)
	if t.Rating < MinRating || t.Rating > MaxRating {
		v.Add("rating", "rating must be between 1 and 5")
	}
	return v.Err()
}

// Create validates in and stores a new testimonial.
func (s *Service) Create(ctx context.Context, in Input) (*Testimonial, error) {
	t := &Testimonial{
		Quote:  strings.TrimSpace(in.Quote),
		Author: strings.TrimSpace(in.Author),
		Rating: DefaultRating,
	}
	if in.Rating != nil {
		t.Rating = *in.Rating
	}
	if err := t.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	if err := s.repo.Insert(ctx, t); err != nil {
		return nil, errors.Wrap(err, "insert testimonial")
	}
	return t, nil
}

// List returns every testimonial, newest first.
func (s *Service) List(ctx context.Context) ([]Testimonial, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list testimonials")
	}
	return items, nil
}

// Update replaces quote and author of testimonial id and, when given, its
// rating.
func (s *Service) Update(ctx context.Context, id string, in Input) (*Testimonial, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get testimonial")
	}

	t.Quote = strings.TrimSpace(in.Quote)
	t.Author = strings.TrimSpace(in.Author)
	if in.Rating != nil {
		t.Rating = *in.Rating
	}
	if err := t.validate(); err != nil {
		return nil, err
	}

	t.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, t); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "update testimonial")
	}
	return t, nil
}

// Delete removes testimonial id and returns it.
func (s *Service) Delete(ctx context.Context, id string) (*Testimonial, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	t, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "delete testimonial")
	}
	return t, nil
}

// checkID rejects a blank id as invalid input and a malformed one as
// unknown.
func checkID(id string) error {
	if strings.TrimSpace(id) == "" {
		var v validate.Error
		v.Add("id", "id is required")
		return v.Err()
	}
	if uuid.Validate(id) != nil {
		return ErrNotFound
	}
	return nil
}
