package order

import (
	"crypto/rand"
	"io"
	"regexp"
	"strings"

	"github.com/go-faster/errors"
)

const (
	// IDPrefix starts every order id.
	IDPrefix = "SRT"
	// idLength is the number of random characters after the prefix.
	idLength = 8
	// idAttempts bounds the number of candidates tried per order.
	idAttempts = 5

	idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var idRe = regexp.MustCompile(`^` + IDPrefix + `[0-9A-Z]{6,8}$`)

// NormalizeID trims and uppercases a client supplied order id.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// IsID reports whether s has the order id format.
func IsID(s string) bool {
	return idRe.MatchString(s)
}

// IDGenerator produces candidate order ids.
type IDGenerator interface {
	NewID() (string, error)
}

// RandomID generates ids from a random source, crypto/rand by default.
type RandomID struct {
	Rand io.Reader
}

// NewID returns IDPrefix followed by idLength uniformly random base-36
// characters.
func (g RandomID) NewID() (string, error) {
	src := g.Rand
	if src == nil {
		src = rand.Reader
	}

	out := make([]byte, 0, len(IDPrefix)+idLength)
	out = append(out, IDPrefix...)
	buf := make([]byte, idLength*2)
	for len(out) < cap(out) {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", errors.Wrap(err, "read random")
		}
		for _, b := range buf {
			// 252 is the largest multiple of 36 below 256.
			if b >= 252 {
				continue
			}
			out = append(out, idAlphabet[int(b)%len(idAlphabet)])
			if len(out) == cap(out) {
				break
			}
		}
	}
	return string(out), nil
}
