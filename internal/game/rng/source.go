// Package rng provides the random source abstraction used by every
// probabilistic game mechanic (gacha rolls, damage variance, crit and
// ability procs). Components take a Source so tests can inject fixed
// sequences.
package rng

import (
	"crypto/rand"
	"math/big"
)

// Source produces uniformly distributed random values.
type Source interface {
	// Intn returns a random int in [0, n). Panics if n <= 0.
	Intn(n int) int
	// Float64 returns a random float64 in [0.0, 1.0).
	Float64() float64
}

// float64Bits is the number of distinct values Float64 draws from (2^53,
// matching the precision of math/rand's Float64).
const float64Bits = 1 << 53

// cryptoSource implements Source using crypto/rand.
//
// Invariant: all values produced are uniformly distributed in their range.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics with "rng: Intn called with n <= 0" if n <= 0.
// Panics with "rng: crypto/rand failure: <err>" if crypto/rand fails.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("rng: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("rng: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// Float64 returns a cryptographically secure random float64 in [0.0, 1.0).
func (c *cryptoSource) Float64() float64 {
	val, err := rand.Int(rand.Reader, big.NewInt(float64Bits))
	if err != nil {
		panic("rng: crypto/rand failure: " + err.Error())
	}
	return float64(val.Int64()) / float64Bits
}
