// Package primegen generates the safe-structure RSA prime pairs that an
// accumulator's modulus is built from: two random primes whose product has
// exactly the configured modulus bit-length.
package primegen

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// DefaultModulusBits is the RSA modulus bit-length used unless a caller
// configures otherwise.
const DefaultModulusBits = 3072

// DefaultMRRounds is the number of additional Miller-Rabin rounds run against
// a candidate that survives the initial single-round screen.
const DefaultMRRounds = 24

// Params configures a prime search.
type Params struct {
	// ModulusBits is the target bit-length of p*q. Must be at least 16 and
	// even enough that ceil(ModulusBits/2) and floor(ModulusBits/2) are both
	// usable prime sizes; in practice this is always >= 2048 for production
	// moduli.
	ModulusBits int

	// MRRounds is the number of Miller-Rabin rounds run after a candidate
	// survives the initial one-round screen. Zero selects DefaultMRRounds.
	MRRounds int

	// Rand is the entropy source. Nil selects crypto/rand.Reader.
	Rand io.Reader

	// Progress, if non-nil, is called once per candidate tested during the
	// search (across both primes, including the candidate that is accepted),
	// so a long-running search can report liveness to a caller without
	// changing the algorithm.
	Progress func(attempt int)
}

func (p Params) rounds() int {
	if p.MRRounds <= 0 {
		return DefaultMRRounds
	}
	return p.MRRounds
}

func (p Params) rand() io.Reader {
	if p.Rand == nil {
		return rand.Reader
	}
	return p.Rand
}

// DefaultParams returns the Params for a 3072-bit modulus using
// crypto/rand.Reader.
func DefaultParams() Params {
	return Params{ModulusBits: DefaultModulusBits, MRRounds: DefaultMRRounds}
}

// Primes is an unordered-by-construction, canonically-ordered pair of odd
// primes such that bitlen(P*Q) equals the target modulus bit-length. P is
// always >= Q.
type Primes struct {
	P, Q *big.Int
}

// Modulus returns P*Q.
func (pr Primes) Modulus() *big.Int {
	return new(big.Int).Mul(pr.P, pr.Q)
}

// Totient returns (P-1)*(Q-1), the private exponent modulus.
func (pr Primes) Totient() *big.Int {
	pMinus1 := new(big.Int).Sub(pr.P, big.NewInt(1))
	qMinus1 := new(big.Int).Sub(pr.Q, big.NewInt(1))
	return new(big.Int).Mul(pMinus1, qMinus1)
}

var (
	one      = big.NewInt(1)
	thirty   = big.NewInt(30)
	wheelPos = big.NewInt(1) // the smallest positive residue coprime to 30, i.e. 31 mod 30.
)

// wheelDeltas are the gaps between successive integers coprime to 30,
// starting from 1: 1, 7, 11, 13, 17, 19, 23, 29, 31 (= 1 mod 30), ...
var wheelDeltas = [8]int64{6, 4, 2, 4, 2, 4, 6, 2}

// alignToWheel rounds c up to the smallest value >= c that is congruent to 1
// (mod 30), i.e. the spec's "31 (mod 30)".
func alignToWheel(c *big.Int) *big.Int {
	rem := new(big.Int).Mod(c, thirty)
	delta := new(big.Int).Sub(wheelPos, rem)
	if delta.Sign() < 0 {
		delta.Add(delta, thirty)
	}
	return new(big.Int).Add(c, delta)
}

// randCandidate uniformly samples an integer in [2^(bits-1), 2^bits).
func randCandidate(rnd io.Reader, bits int) (*big.Int, error) {
	lower := new(big.Int).Lsh(one, uint(bits-1))
	r, err := rand.Int(rnd, lower)
	if err != nil {
		return nil, err
	}
	return r.Add(r, lower), nil
}

// searchPrime finds a random prime of exactly `bits` bits using the wheel
// sieve and Miller-Rabin screen described in the accumulator's prime-search
// procedure: sample uniformly, align to the wheel, then step through the
// wheel's coprime-to-30 residues, running one Miller-Rabin round per
// candidate and only paying for the full round count once a candidate
// survives that initial screen.
func searchPrime(ctx context.Context, params Params, bits int) (*big.Int, error) {
	rnd := params.rand()
	rounds := params.rounds()
	attempt := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c, err := randCandidate(rnd, bits)
		if err != nil {
			return nil, err
		}
		c = alignToWheel(c)

		deltaIdx := 0
		for c.BitLen() <= bits {
			attempt++
			if params.Progress != nil {
				params.Progress(attempt)
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			if c.ProbablyPrime(1) && c.ProbablyPrime(rounds) {
				return c, nil
			}

			c = new(big.Int).Add(c, big.NewInt(wheelDeltas[deltaIdx]))
			deltaIdx = (deltaIdx + 1) % len(wheelDeltas)
		}
		// Candidate walked past the target bit-length; restart the outer
		// sample.
	}
}

// Generate produces a Primes pair for the given Params, retrying the whole
// pair whenever the product does not land on exactly ModulusBits bits. It
// terminates in expected polynomial time in ModulusBits but is not bounded;
// callers that need a hard deadline should pass a ctx with a timeout.
func Generate(ctx context.Context, params Params) (*Primes, error) {
	if params.ModulusBits < 16 {
		return nil, fmt.Errorf("primegen: modulus bit-length too small: %d", params.ModulusBits)
	}
	hiBits := (params.ModulusBits + 1) / 2
	loBits := params.ModulusBits / 2

	for {
		p, err := searchPrime(ctx, params, hiBits)
		if err != nil {
			return nil, err
		}
		q, err := searchPrime(ctx, params, loBits)
		if err != nil {
			return nil, err
		}

		n := new(big.Int).Mul(p, q)
		if n.BitLen() != params.ModulusBits {
			continue
		}
		if p.Cmp(q) < 0 {
			p, q = q, p
		}
		return &Primes{P: p, Q: q}, nil
	}
}
