// Package store persists an accumulator's public state and the witness
// cache a server keeps on behalf of its clients, over an interface narrow
// enough to be backed by LevelDB or an in-memory map interchangeably.
package store

import "github.com/rsaacc/accumulator/accumulator"

// Store is the interface an accumulator server uses to communicate with its
// database. Implementations batch writes internally and only make them
// durable on Commit, mirroring how a single HTTP request that both mutates
// the accumulator and refreshes several witnesses commits as one unit.
type Store interface {
	// GetSnapshot returns the most recently put public state, including one
	// staged but not yet committed, or ok=false if none has ever been put.
	GetSnapshot() (snap accumulator.Snapshot, ok bool, err error)

	// PutSnapshot stages the accumulator's public state for the next Commit.
	PutSnapshot(snap accumulator.Snapshot) error

	// GetWitness returns the cached witness for key, or nil if absent.
	GetWitness(key []byte) (*accumulator.Witness, error)

	// PutWitness stages a witness for key for the next Commit.
	PutWitness(key []byte, w *accumulator.Witness) error

	// DeleteWitness stages the removal of key's cached witness.
	DeleteWitness(key []byte) error

	// BatchGetWitnesses returns the cached witnesses for keys, keyed by the
	// same string form GetWitness/PutWitness key their argument on
	// (fmt.Sprintf("%x", key)). Keys with no cached witness are omitted.
	BatchGetWitnesses(keys [][]byte) (map[string]*accumulator.Witness, error)

	// AppendOp stages op at the next sequence number and returns it. The
	// sequence numbers this hands out are only final once Commit succeeds.
	AppendOp(op Op) (seq uint64, err error)

	// GetOps returns every committed operation with sequence number in
	// [from, to), in ascending order. It never observes uncommitted,
	// staged operations from the same Store.
	GetOps(from, to uint64) ([]Op, error)

	// PutSnapshotAtSeq stages the accumulator's public state as it stood
	// immediately before the operation with the given sequence number was
	// applied, for later replay by GetSnapshotAtSeq.
	PutSnapshotAtSeq(seq uint64, snap accumulator.Snapshot) error

	// GetSnapshotAtSeq returns the public state recorded by a matching
	// PutSnapshotAtSeq call, or ok=false if none was recorded.
	GetSnapshotAtSeq(seq uint64) (snap accumulator.Snapshot, ok bool, err error)

	// Commit durably applies every staged write.
	Commit() error
}

// OpKind distinguishes the two operations a server's audit log of past
// accumulator mutations can record.
type OpKind string

const (
	OpAdd OpKind = "add"
	OpDel OpKind = "del"
)

// Op is a single logged mutation: the element and its nonce, enough to
// recover the element's prime via elementmap.Recover and re-absorb it into an
// Update. A logged element stays in the log after its cached witness is
// deleted.
type Op struct {
	Seq   uint64
	Kind  OpKind
	X     []byte
	Nonce uint64
}
