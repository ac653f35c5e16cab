// Package fixtures provides fixed, deterministic test inputs shared across
// this module's test suites, mirroring the teacher's tree/transparency/test
// package: a small set of known-good values instead of generating fresh
// randomness (and paying for a full 3072-bit prime search) in every test.
package fixtures

import (
	"math/big"

	"github.com/rsaacc/accumulator/accumulator"
	"github.com/rsaacc/accumulator/digest"
	"github.com/rsaacc/accumulator/primegen"
)

// FixedPrimes returns a fixed pair of well-known Mersenne primes, P = 2^61-1
// and Q = 2^31-1. They are not safe primes and far smaller than any
// production modulus, but they are real, independently-verifiable primes
// that let tests build a full holder Accumulator without paying for a
// production-scale prime search.
func FixedPrimes() *primegen.Primes {
	p := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 61), big.NewInt(1))
	q := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 31), big.NewInt(1))
	return &primegen.Primes{P: p, Q: q}
}

// TestConfig is an accumulator.Config sized for fast tests: a 32-bit element
// prime range is more than wide enough to avoid nonce collisions across a
// handful of test elements while keeping the Miller-Rabin search in Map
// cheap.
func TestConfig() accumulator.Config {
	return accumulator.Config{
		Digest:    digest.SHA256,
		PrimeBits: 32,
		MRRounds:  20,
	}
}

// NewHolder returns a fresh holder Accumulator built from FixedPrimes and
// TestConfig.
func NewHolder() *accumulator.Accumulator {
	return accumulator.NewHolder(TestConfig(), FixedPrimes())
}
