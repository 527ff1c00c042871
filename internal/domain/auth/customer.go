package auth

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v4"
)

// ErrUserNotFound is returned when a customer id has no stored account.
var ErrUserNotFound = errors.New("user not found")

// UserRepository reads customer accounts.
type UserRepository interface {
	EmailByID(ctx context.Context, id string) (string, error)
}

// CustomerClaims are the claims carried by a customer access token.
type CustomerClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// TokenVerifier checks HS256 customer access tokens issued by the login
// service.
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier creates a TokenVerifier. An empty issuer skips the issuer
// check.
func NewTokenVerifier(secret []byte, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: secret, issuer: issuer}
}

// Verify parses token and returns the customer id from its subject.
func (v *TokenVerifier) Verify(token string) (string, error) {
	if len(v.secret) == 0 || token == "" {
		return "", ErrUnauthorized
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &CustomerClaims{}
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return "", errors.Wrap(ErrUnauthorized, err.Error())
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return "", errors.Wrap(ErrUnauthorized, "issuer mismatch")
	}
	if claims.Subject == "" {
		return "", errors.Wrap(ErrUnauthorized, "missing subject")
	}
	return claims.Subject, nil
}
