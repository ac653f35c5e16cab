// Package elementmap implements the deterministic mapping from an element's
// digest to a prime representative in a bounded range, plus the reverse
// operation that recovers that same prime from a witness's carried nonce
// without re-running the (variable-time) prime search.
package elementmap

import (
	"fmt"
	"math/big"

	"github.com/rsaacc/accumulator/digest"
)

// DefaultPrimeBits is the bit-length of the range element primes are drawn
// from, unless a caller configures otherwise.
const DefaultPrimeBits = 128

// DefaultMRRounds is the number of Miller-Rabin rounds used to confirm a
// candidate prime during the nonce search.
const DefaultMRRounds = 24

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// Result is the output of mapping an element to its prime representative.
type Result struct {
	// Y is the element's prime representative, in [0, 2^PrimeBits).
	Y *big.Int

	// Nonce is Y minus the low PrimeBits bits of the element's digest; it is
	// carried on the Witness so a verifier can recompute Y without repeating
	// the prime search.
	Nonce uint64
}

// lowBits returns h(x) mod 2^primeBits as a big.Int, the "d1" value from the
// element-mapping procedure.
func lowBits(h digest.Provider, x []byte, primeBits int) *big.Int {
	sum := h.Sum(x)
	d0 := new(big.Int).SetBytes(sum)
	limit := new(big.Int).Lsh(one, uint(primeBits))
	return new(big.Int).Mod(d0, limit)
}

// Map deterministically computes (y, nonce) for element x under digest h,
// searching for the least prime candidate at or after d1 = H(x) mod 2^bits.
// If d1 is even, the first candidate tested is d1+1; otherwise it is d1
// itself, and the search then steps by 2 thereafter. This exact stepping
// rule is preserved bit-for-bit so that independently-implemented holders
// and verifiers agree on witness nonces.
func Map(h digest.Provider, x []byte, primeBits, mrRounds int) (Result, error) {
	if primeBits <= 0 {
		return Result{}, fmt.Errorf("elementmap: primeBits must be positive, got %d", primeBits)
	}
	if mrRounds <= 0 {
		mrRounds = DefaultMRRounds
	}

	d1 := lowBits(h, x, primeBits)
	limit := new(big.Int).Lsh(one, uint(primeBits))

	candidate := new(big.Int).Set(d1)
	if candidate.Bit(0) == 0 {
		candidate.Add(candidate, one)
	}
	for !candidate.ProbablyPrime(mrRounds) {
		candidate.Add(candidate, two)
	}

	y := new(big.Int).Mod(candidate, limit)
	if y.Cmp(candidate) != 0 {
		return Result{}, fmt.Errorf("elementmap: prime search wrapped around 2^%d bits: %w", primeBits, ErrWrapped)
	}

	nonceBig := new(big.Int).Sub(y, d1)
	if nonceBig.Sign() < 0 || !nonceBig.IsUint64() {
		return Result{}, fmt.Errorf("elementmap: computed nonce out of range: %w", ErrWrapped)
	}
	return Result{Y: y, Nonce: nonceBig.Uint64()}, nil
}

// ErrWrapped indicates the prime search wrapped past 2^PrimeBits, which
// should never happen given the density of primes in that range; it signals
// an invariant violation, not ordinary input error.
var ErrWrapped = fmt.Errorf("elementmap: prime range exhausted")

// Recover recomputes an element's prime representative from its digest and a
// previously-issued nonce, without repeating the prime search. This is what
// verify, del and Update use: y = H(x) mod 2^primeBits + nonce.
func Recover(h digest.Provider, x []byte, primeBits int, nonce uint64) *big.Int {
	d1 := lowBits(h, x, primeBits)
	return new(big.Int).Add(d1, new(big.Int).SetUint64(nonce))
}
