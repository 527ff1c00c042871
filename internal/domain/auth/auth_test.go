package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keyRepo map[string]*APIKeyInfo

func (r keyRepo) FindByHash(_ context.Context, hash string) (*APIKeyInfo, error) {
	info, ok := r[hash]
	if !ok {
		return nil, ErrUnauthorized
	}
	return info, nil
}

func TestKeyAuthenticator(t *testing.T) {
	pepper := []byte("pepper")
	hash := HashKey(pepper, "admin-key")
	a := NewKeyAuthenticator(keyRepo{hash: {ID: "1", KeyHash: hash, Name: "admin"}}, pepper)
	ctx := context.Background()

	info, err := a.Authenticate(ctx, "admin-key")
	require.NoError(t, err)
	assert.Equal(t, "admin", info.Name)

	_, err = a.Authenticate(ctx, "other-key")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = a.Authenticate(ctx, "")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestKeyAuthenticator_StoredHashMismatch(t *testing.T) {
	pepper := []byte("pepper")
	hash := HashKey(pepper, "admin-key")
	a := NewKeyAuthenticator(keyRepo{hash: {ID: "1", KeyHash: HashKey(pepper, "different")}}, pepper)

	_, err := a.Authenticate(context.Background(), "admin-key")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestTokenVerifier(t *testing.T) {
	secret := []byte("s3cret")
	v := NewTokenVerifier(secret, "sarit")
	now := time.Now()

	valid := func(sub, iss string, exp time.Time) *CustomerClaims {
		return &CustomerClaims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    iss,
			ExpiresAt: jwt.NewNumericDate(exp),
		}}
	}

	tests := []struct {
		name    string
		token   string
		wantSub string
		wantErr bool
	}{
		{
			name:    "valid",
			token:   sign(t, jwt.SigningMethodHS256, secret, valid("user-1", "sarit", now.Add(time.Hour))),
			wantSub: "user-1",
		},
		{
			name:    "expired",
			token:   sign(t, jwt.SigningMethodHS256, secret, valid("user-1", "sarit", now.Add(-time.Hour))),
			wantErr: true,
		},
		{
			name:    "wrong secret",
			token:   sign(t, jwt.SigningMethodHS256, []byte("other"), valid("user-1", "sarit", now.Add(time.Hour))),
			wantErr: true,
		},
		{
			name:    "wrong issuer",
			token:   sign(t, jwt.SigningMethodHS256, secret, valid("user-1", "evil", now.Add(time.Hour))),
			wantErr: true,
		},
		{
			name:    "HS512 rejected",
			token:   sign(t, jwt.SigningMethodHS512, secret, valid("user-1", "sarit", now.Add(time.Hour))),
			wantErr: true,
		},
		{
			name:    "missing subject",
			token:   sign(t, jwt.SigningMethodHS256, secret, valid("", "sarit", now.Add(time.Hour))),
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   "not.a.token",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := v.Verify(tt.token)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnauthorized)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSub, sub)
		})
	}
}
