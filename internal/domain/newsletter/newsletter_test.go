package newsletter

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/sarit-store/internal/domain/validate"
)

type memRepo struct {
	subs map[string]Subscription
}

func (m *memRepo) Insert(_ context.Context, email string, at time.Time) (*Subscription, error) {
	if _, ok := m.subs[email]; ok {
		return nil, ErrAlreadySubscribed
	}
	s := Subscription{ID: email, Email: email, CreatedAt: at}
	m.subs[email] = s
	return &s, nil
}

func (m *memRepo) Delete(_ context.Context, email string) error {
	if _, ok := m.subs[email]; !ok {
		return ErrNotFound
	}
	delete(m.subs, email)
	return nil
}

func (m *memRepo) List(context.Context) ([]Subscription, error) {
	out := make([]Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, s)
	}
	return out, nil
}

func TestService_Subscribe(t *testing.T) {
	repo := &memRepo{subs: map[string]Subscription{}}
	s := NewService(repo)
	ctx := context.Background()

	created, err := s.Subscribe(ctx, "  Jane@Example.COM ")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Contains(t, repo.subs, "jane@example.com")

	created, err = s.Subscribe(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = s.Subscribe(ctx, "not-an-email")
	var verr *validate.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email", verr.Fields[0].Field)
}

func TestService_Unsubscribe(t *testing.T) {
	repo := &memRepo{subs: map[string]Subscription{"a@b.co": {Email: "a@b.co"}}}
	s := NewService(repo)
	ctx := context.Background()

	require.NoError(t, s.Unsubscribe(ctx, "A@B.co"))
	require.ErrorIs(t, s.Unsubscribe(ctx, "a@b.co"), ErrNotFound)

	var verr *validate.Error
	require.True(t, errors.As(s.Unsubscribe(ctx, " "), &verr))
}
