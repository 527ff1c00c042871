// Package newsletter manages marketing e-mail subscriptions.
package newsletter

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/sarit-store/internal/domain/validate"
)

var (
	ErrNotFound = errors.New("subscription not found")
	// ErrAlreadySubscribed is returned by Repository.Insert for a known email.
	ErrAlreadySubscribed = errors.New("email already subscribed")
)

// Subscription is a single opted-in email.
type Subscription struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository persists subscriptions.
type Repository interface {
	Insert(ctx context.Context, email string, at time.Time) (*Subscription, error)
	Delete(ctx context.Context, email string) error
	List(ctx context.Context) ([]Subscription, error)
}

// Service manages subscriptions.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Subscribe adds email. created is false when it was already subscribed.
func (s *Service) Subscribe(ctx context.Context, email string) (created bool, err error) {
	email = NormalizeEmail(email)
	if !validate.IsEmail(email) {
		var v validate.Error
		v.Add("email", "a valid email is required")
		return false, v.Err()
	}

	if _, err := s.repo.Insert(ctx, email, s.now()); err != nil {
		if errors.Is(err, ErrAlreadySubscribed) {
			return false, nil
		}
		return false, errors.Wrap(err, "insert subscription")
	}
	return true, nil
}

// Unsubscribe removes email.
func (s *Service) Unsubscribe(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		var v validate.Error
		v.Add("email", "email is required")
		return v.Err()
	}
	if err := s.repo.Delete(ctx, email); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrap(err, "delete subscription")
	}
	return nil
}

// List returns every subscription, newest first.
func (s *Service) List(ctx context.Context) ([]Subscription, error) {
	subs, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list subscriptions")
	}
	return subs, nil
}
