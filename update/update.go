// Package update implements aggregated witness refresh: batching a set of
// additions and deletions absorbed since a snapshot into a single record
// that can refresh any retained element's Witness in O(1) exponentiations,
// via one extended-GCD step (Shamir's trick).
package update

import (
	"math/big"

	"github.com/rsaacc/accumulator/accumulator"
	"github.com/rsaacc/accumulator/digest"
	"github.com/rsaacc/accumulator/elementmap"
)

var one = big.NewInt(1)

// Update aggregates a batch of additions and deletions together with a
// snapshot of an Accumulator's public state taken after that batch. It holds
// the product of the absorbed additions' primes (piAdd) and the absorbed
// deletions' primes (piDel), and applies the pair to refresh a single Witness
// at a time. An Update may be applied to any number of witnesses; each must
// verify against the accumulation as it stood before the batch, and the
// refreshed witness verifies against the snapshot.
type Update struct {
	digest    digest.Provider
	primeBits int

	n         *big.Int
	zSnapshot *big.Int

	piAdd *big.Int
	piDel *big.Int
}

// Open constructs an Update against snap, the accumulator's public state
// after every operation the batch absorbs has been applied.
func Open(snap accumulator.Snapshot) *Update {
	return &Update{
		digest:    snap.Digest,
		primeBits: snap.PrimeBits,
		n:         new(big.Int).Set(snap.N),
		zSnapshot: new(big.Int).Set(snap.Z),
		piAdd:     new(big.Int).Set(one),
		piDel:     new(big.Int).Set(one),
	}
}

// N returns the modulus this Update was opened against.
func (u *Update) N() *big.Int { return new(big.Int).Set(u.n) }

// ZSnapshot returns the accumulation value this Update was opened against.
func (u *Update) ZSnapshot() *big.Int { return new(big.Int).Set(u.zSnapshot) }

// PiAdd returns the current product of absorbed addition primes.
func (u *Update) PiAdd() *big.Int { return new(big.Int).Set(u.piAdd) }

// PiDel returns the current product of absorbed deletion primes.
func (u *Update) PiDel() *big.Int { return new(big.Int).Set(u.piDel) }

// PrimeBits returns the element-prime bit-length this Update was opened
// with.
func (u *Update) PrimeBits() int { return u.primeBits }

// FromParts reconstructs an Update from its serialized fields, as produced
// by the wire package's EncodeUpdate/DecodeUpdate. It is the wire-level
// counterpart to Open: piAdd and piDel here are already the accumulated
// batch products, not the identity starting point.
func FromParts(d digest.Provider, primeBits int, n, zSnapshot, piAdd, piDel *big.Int) *Update {
	return &Update{
		digest:    d,
		primeBits: primeBits,
		n:         new(big.Int).Set(n),
		zSnapshot: new(big.Int).Set(zSnapshot),
		piAdd:     new(big.Int).Set(piAdd),
		piDel:     new(big.Int).Set(piDel),
	}
}

func (u *Update) primeOf(w *accumulator.Witness) *big.Int {
	return elementmap.Recover(u.digest, w.X, u.primeBits, w.Nonce)
}

// AbsorbAdd records that w's element was added to the batch: piAdd *= y.
func (u *Update) AbsorbAdd(w *accumulator.Witness) {
	y := u.primeOf(w)
	u.piAdd.Mul(u.piAdd, y)
}

// AbsorbDel records that w's element was deleted in the batch: piDel *= y.
func (u *Update) AbsorbDel(w *accumulator.Witness) {
	y := u.primeOf(w)
	u.piDel.Mul(u.piDel, y)
}

// UndoAdd reverses a previous AbsorbAdd(w), dividing w's prime back out of
// piAdd. Fails with InvalidDivision if w's prime was never absorbed (piAdd
// is not evenly divisible by it).
func (u *Update) UndoAdd(w *accumulator.Witness) error {
	return undo(u.piAdd, u.primeOf(w))
}

// UndoDel reverses a previous AbsorbDel(w), dividing w's prime back out of
// piDel. Fails with InvalidDivision if w's prime was never absorbed.
func (u *Update) UndoDel(w *accumulator.Witness) error {
	return undo(u.piDel, u.primeOf(w))
}

func undo(product, y *big.Int) error {
	q, r := new(big.Int).QuoRem(product, y, new(big.Int))
	if r.Sign() != 0 {
		return accumulator.NewInvalidDivisionError(y)
	}
	product.Set(q)
	return nil
}

// Apply refreshes w against the batch this Update aggregates, returning a
// new Witness for the same element that verifies against the accumulator's
// post-batch state. w's element must not itself have been deleted within
// this batch; the caller is responsible for excluding it, since a deleted
// element has no meaningful refreshed witness. Such a witness's prime divides
// piDel, and Apply fails with UpdateMismatch for it.
//
// This computes the extended GCD of piDel and w's prime y, giving Bezout
// coefficients (a, b) with a*piDel + b*y = 1, and returns
// w'= w^(a*piAdd) * zSnapshot^b mod n, exactly as described by Shamir's
// trick for combining accumulator memberships.
func (u *Update) Apply(w *accumulator.Witness) (*accumulator.Witness, error) {
	y := u.primeOf(w)

	a, b := new(big.Int), new(big.Int)
	gcd := new(big.Int).GCD(a, b, u.piDel, y)
	if gcd.Cmp(one) != 0 {
		return nil, accumulator.NewUpdateMismatchError(y, u.piDel)
	}

	exp1 := new(big.Int).Mul(a, u.piAdd)
	term1 := new(big.Int).Exp(w.W, exp1, u.n)
	term2 := new(big.Int).Exp(u.zSnapshot, b, u.n)

	wPrime := new(big.Int).Mod(new(big.Int).Mul(term1, term2), u.n)

	return &accumulator.Witness{X: append([]byte(nil), w.X...), Nonce: w.Nonce, W: wPrime}, nil
}

// RefreshAfterSingleAdd implements the degenerate, no-Update fast path: when
// only a single addition of element x' with prime y' has occurred since w
// was issued, the refreshed witness is simply w^y' mod n. This is
// mathematically the special case of Apply with piDel = 1, piAdd = y', but
// is provided directly since it needs neither an extended-GCD step nor an
// Update to be opened.
func RefreshAfterSingleAdd(w *accumulator.Witness, addedPrime, n *big.Int) *accumulator.Witness {
	wPrime := new(big.Int).Exp(w.W, addedPrime, n)
	return &accumulator.Witness{X: append([]byte(nil), w.X...), Nonce: w.Nonce, W: wPrime}
}
