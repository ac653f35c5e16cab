// Package accumulator implements a cryptographic accumulator over the RSA
// group: a constant-size commitment to a dynamic multiset of byte-string
// elements that supports addition, deletion and membership witnesses.
//
// An Accumulator constructed with a factored modulus (via NewHolder) is a
// holder: it can add, delete and directly prove membership for any element.
// An Accumulator constructed from just a modulus (via NewPublic) is a public
// verifier: it can verify witnesses and track the public state trajectory,
// but cannot add, delete or prove without the holder's secret.
package accumulator

import (
	"math/big"
	"sync"

	"github.com/rsaacc/accumulator/digest"
	"github.com/rsaacc/accumulator/elementmap"
	"github.com/rsaacc/accumulator/primegen"
)

// Base is the fixed public initial value of the accumulation z.
const Base = 65537

// DefaultPrimeBits is the bit-length of the range element primes are drawn
// from.
const DefaultPrimeBits = elementmap.DefaultPrimeBits

// DefaultMRRounds is the number of Miller-Rabin rounds used to confirm
// element primes.
const DefaultMRRounds = elementmap.DefaultMRRounds

// Witness proves that an element is a member of an accumulation. It is an
// immutable value: refreshing a Witness through Update.Apply or through a
// fresh Add/Prove call produces a new Witness rather than mutating this one.
type Witness struct {
	// X is the original element, retained so the holder need not cache it.
	X []byte

	// Nonce is such that H(X) + Nonce is prime and lies in [0, 2^PrimeBits).
	Nonce uint64

	// W is the accumulation value immediately before X was absorbed, or, for
	// a refreshed witness, any value satisfying W^(H(X)+Nonce) = z mod n.
	W *big.Int
}

// Clone returns a deep copy of w.
func (w *Witness) Clone() *Witness {
	x := make([]byte, len(w.X))
	copy(x, w.X)
	return &Witness{X: x, Nonce: w.Nonce, W: new(big.Int).Set(w.W)}
}

// Snapshot is the public state of an Accumulator at a point in time: enough
// to construct a public verifier or to open an Update against.
type Snapshot struct {
	Digest    digest.Provider
	PrimeBits int
	MRRounds  int
	N         *big.Int
	Z         *big.Int
}

// Accumulator holds an RSA accumulator's state (n, optional d, z) and
// implements add/delete/prove/verify against it. Concurrent calls against
// the same Accumulator must be externally serialized; a per-instance mutex
// is provided so callers driving concurrent requests (e.g. the demo HTTP
// server) don't need to build their own.
type Accumulator struct {
	mu sync.Mutex

	digest    digest.Provider
	primeBits int
	mrRounds  int

	n *big.Int
	d *big.Int // nil for a public verifier.
	z *big.Int
}

// Config carries the non-secret parameters of an Accumulator.
type Config struct {
	Digest    digest.Provider // Defaults to digest.SHA256 if nil.
	PrimeBits int             // Defaults to DefaultPrimeBits if zero.
	MRRounds  int             // Defaults to DefaultMRRounds if zero.
}

func (c Config) resolve() Config {
	if c.Digest == nil {
		c.Digest = digest.SHA256
	}
	if c.PrimeBits == 0 {
		c.PrimeBits = DefaultPrimeBits
	}
	if c.MRRounds == 0 {
		c.MRRounds = DefaultMRRounds
	}
	return c
}

// NewHolder constructs a trusted Accumulator from a freshly-generated or
// previously-stored Primes pair, initialized to the fixed public base value.
func NewHolder(cfg Config, primes *primegen.Primes) *Accumulator {
	cfg = cfg.resolve()
	return &Accumulator{
		digest:    cfg.Digest,
		primeBits: cfg.PrimeBits,
		mrRounds:  cfg.MRRounds,
		n:         primes.Modulus(),
		d:         primes.Totient(),
		z:         big.NewInt(Base),
	}
}

// NewPublic constructs a public-verifier Accumulator from a modulus and the
// current accumulation value, as published by the holder. A public verifier
// cannot Add, Del or Prove; it can only Verify and refresh witnesses through
// an Update built from the holder's published operation log.
func NewPublic(cfg Config, n, z *big.Int) *Accumulator {
	cfg = cfg.resolve()
	return &Accumulator{
		digest:    cfg.Digest,
		primeBits: cfg.PrimeBits,
		mrRounds:  cfg.MRRounds,
		n:         new(big.Int).Set(n),
		z:         new(big.Int).Set(z),
	}
}

// IsHolder reports whether this Accumulator holds the private factorization
// and can Add, Del and Prove.
func (a *Accumulator) IsHolder() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.d != nil
}

// N returns the accumulator's RSA modulus.
func (a *Accumulator) N() *big.Int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return new(big.Int).Set(a.n)
}

// Z returns the accumulator's current accumulation value.
func (a *Accumulator) Z() *big.Int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return new(big.Int).Set(a.z)
}

// Digest returns the digest provider this accumulator was configured with.
func (a *Accumulator) Digest() digest.Provider {
	return a.digest
}

// PrimeBits returns the element-prime bit-length this accumulator was
// configured with.
func (a *Accumulator) PrimeBits() int {
	return a.primeBits
}

// Snapshot returns the current public state, suitable for constructing a
// public verifier elsewhere or for opening an Update.
func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		Digest:    a.digest,
		PrimeBits: a.primeBits,
		MRRounds:  a.mrRounds,
		N:         new(big.Int).Set(a.n),
		Z:         new(big.Int).Set(a.z),
	}
}

// SetZ updates a public verifier's tracked accumulation to a value the
// holder has published out of band. Holder accumulators reject this call:
// their z only ever changes as the final step of Add/Del.
func (a *Accumulator) SetZ(z *big.Int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.d != nil {
		return newError(BadArgument, "SetZ is only valid on a public-verifier accumulator")
	}
	a.z = new(big.Int).Set(z)
	return nil
}

// Add absorbs element x into the accumulation, mutating z as the final step,
// and returns a pre-image Witness for x: W.W^(H(x)+nonce) = the new z.
// Add requires the private exponent; a public verifier fails with
// SecretRequired.
func (a *Accumulator) Add(x []byte) (*Witness, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.d == nil {
		return nil, newError(SecretRequired, "Add requires the holder's secret exponent")
	}

	res, err := elementmap.Map(a.digest, x, a.primeBits, a.mrRounds)
	if err != nil {
		return nil, wrapError(InternalInvariant, "element map failed", err)
	}

	w := new(big.Int).Set(a.z)
	a.z = new(big.Int).Exp(a.z, res.Y, a.n)

	return &Witness{X: append([]byte(nil), x...), Nonce: res.Nonce, W: w}, nil
}

// Prove computes a fresh membership Witness for x against the current
// accumulation, without mutating z. Requires the private exponent.
func (a *Accumulator) Prove(x []byte) (*Witness, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.d == nil {
		return nil, newError(SecretRequired, "Prove requires the holder's secret exponent")
	}

	res, err := elementmap.Map(a.digest, x, a.primeBits, a.mrRounds)
	if err != nil {
		return nil, wrapError(InternalInvariant, "element map failed", err)
	}

	yInv := new(big.Int).ModInverse(res.Y, a.d)
	if yInv == nil {
		return nil, newError(InternalInvariant, "element prime is not invertible mod the totient")
	}
	w := new(big.Int).Exp(a.z, yInv, a.n)

	return &Witness{X: append([]byte(nil), x...), Nonce: res.Nonce, W: w}, nil
}

// Del validates witness, then removes its element from the accumulation,
// mutating z as the final step, and returns the new accumulation value.
// Requires the private exponent; the witness must currently verify.
func (a *Accumulator) Del(witness *Witness) (*big.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.d == nil {
		return nil, newError(SecretRequired, "Del requires the holder's secret exponent")
	}
	y, ok := a.verifyLocked(witness)
	if !ok {
		return nil, newError(WitnessInvalid, "witness does not verify against the current accumulation")
	}

	yInv := new(big.Int).ModInverse(y, a.d)
	if yInv == nil {
		return nil, newError(InternalInvariant, "element prime is not invertible mod the totient")
	}
	a.z = new(big.Int).Exp(a.z, yInv, a.n)

	return new(big.Int).Set(a.z), nil
}

// Verify reports whether witness proves membership against the current
// accumulation. Fully supported for both holder and public-verifier
// accumulators.
func (a *Accumulator) Verify(witness *Witness) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.verifyLocked(witness)
	return ok
}

// verifyLocked implements Verify's check and also returns the element's
// prime representative, since callers like Del need it and would otherwise
// recompute it.
func (a *Accumulator) verifyLocked(witness *Witness) (*big.Int, bool) {
	y := elementmap.Recover(a.digest, witness.X, a.primeBits, witness.Nonce)
	got := new(big.Int).Exp(witness.W, y, a.n)
	return y, got.Cmp(a.z) == 0
}
