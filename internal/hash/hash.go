package hash

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var ErrPasswordTooLong = errors.New("hash: password longer than 72 bytes")

// dummyPassword only feeds the placeholder hash; it never matches a login.
const dummyPassword = "placeholder-password-for-timing"

// Bcrypt hashes passwords with bcrypt. The zero value uses bcrypt.DefaultCost.
type Bcrypt struct {
	Cost int

	once  sync.Once
	dummy string
}

// NewBcrypt computes the dummy hash up front so the first login for an
// unknown email does not pay for it.
func NewBcrypt(cost int) *Bcrypt {
	b := &Bcrypt{Cost: cost}
	b.DummyHash()
	return b
}

func (b *Bcrypt) cost() int {
	if b.Cost < bcrypt.MinCost || b.Cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return b.Cost
}

func (b *Bcrypt) Hash(ctx context.Context, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), b.cost())
	if err != nil {
		return "", err
	}
	return string(hashbytes), nil
}

// Verify reports whether password matches hash. A malformed hash is a
// mismatch, not an error.
func (b *Bcrypt) Verify(ctx context.Context, hash, password string) bool {
	if ctx.Err() != nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// DummyHash returns a hash of the configured cost, computed on first use.
// Verifying against it costs the same as verifying a real user's hash.
func (b *Bcrypt) DummyHash() string {
	b.once.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), b.cost())
		if err != nil {
			panic("hash: cannot compute dummy hash: " + err.Error())
		}
		b.dummy = string(h)
	})
	return b.dummy
}
