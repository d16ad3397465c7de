// Package password hashes and verifies user passwords with bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinCost is the lowest cost accepted outside tests.
const MinCost = 12

// ErrTooLong is returned for passwords bcrypt cannot hash (over 72 bytes).
var ErrTooLong = errors.New("password exceeds 72 bytes")

// Hasher is a bcrypt wrapper. Hashing is synchronous and CPU bound.
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher returns a hasher whose cost is at least MinCost.
func NewHasher(cost int) (*Hasher, error) {
	if cost < MinCost {
		cost = MinCost
	}
	return newHasher(cost)
}

// NewTestHasher uses bcrypt.MinCost so tests stay fast.
func NewTestHasher() *Hasher {
	h, err := newHasher(bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return h
}

func newHasher(cost int) (*Hasher, error) {
	if cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d above max %d", cost, bcrypt.MaxCost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("moovi-placeholder-credential"), cost)
	if err != nil {
		return nil, fmt.Errorf("precompute dummy hash: %w", err)
	}
	return &Hasher{cost: cost, dummy: dummy}, nil
}

// Cost reports the configured work factor.
func (h *Hasher) Cost() int { return h.cost }

// Hash returns a salted bcrypt hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrTooLong
	}
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(out), nil
}

// Verify reports whether plaintext matches hash. A malformed hash never matches.
func (h *Hasher) Verify(plaintext, hash string) bool {
	if hash == "" {
		return h.VerifyDummy(plaintext)
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// VerifyDummy spends one comparison against a hash nobody knows the plaintext
// of and always reports false. It keeps a stored-but-empty hash as slow as a
// real mismatch.
func (h *Hasher) VerifyDummy(plaintext string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
	return false
}
