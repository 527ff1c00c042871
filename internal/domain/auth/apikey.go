package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned when credentials are missing or invalid.
var ErrUnauthorized = errors.New("unauthorized")

// APIKeyInfo holds the identity of a validated admin API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// HashKey returns the hex HMAC-SHA256 of key under pepper. Keys are stored
// only in this form.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// KeyAuthenticator validates admin API keys.
type KeyAuthenticator struct {
	keys   Repository
	pepper []byte
}

// NewKeyAuthenticator creates a KeyAuthenticator.
func NewKeyAuthenticator(keys Repository, pepper []byte) *KeyAuthenticator {
	return &KeyAuthenticator{keys: keys, pepper: pepper}
}

// Authenticate resolves key to its stored identity.
func (a *KeyAuthenticator) Authenticate(ctx context.Context, key string) (*APIKeyInfo, error) {
	if key == "" {
		return nil, ErrUnauthorized
	}
	hexHash := HashKey(a.pepper, key)

	info, err := a.keys.FindByHash(ctx, hexHash)
	if err != nil {
		return nil, ErrUnauthorized
	}

	// The repository matched on the hash; compare again in constant time in
	// case it returned a different row.
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return nil, ErrUnauthorized
	}
	computed, _ := hex.DecodeString(hexHash)
	if subtle.ConstantTimeCompare(computed, stored) != 1 {
		return nil, ErrUnauthorized
	}
	return info, nil
}
