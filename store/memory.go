package store

import (
	"fmt"

	"github.com/rsaacc/accumulator/accumulator"
)

// MemoryStore is an in-memory Store, useful for tests and for running a
// server without a durable backend.
type MemoryStore struct {
	haveSnap bool
	snap     accumulator.Snapshot
	pending  *accumulator.Snapshot

	witnesses map[string]*accumulator.Witness
	staged    map[string]*accumulator.Witness
	staleDels map[string]bool

	ops       []Op
	stagedOps []Op
	nextOpSeq uint64

	snapsAtSeq       map[uint64]accumulator.Snapshot
	stagedSnapsAtSeq map[uint64]accumulator.Snapshot
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		witnesses:        make(map[string]*accumulator.Witness),
		staged:           make(map[string]*accumulator.Witness),
		staleDels:        make(map[string]bool),
		snapsAtSeq:       make(map[uint64]accumulator.Snapshot),
		stagedSnapsAtSeq: make(map[uint64]accumulator.Snapshot),
	}
}

func (m *MemoryStore) key(key []byte) string { return fmt.Sprintf("%x", key) }

func (m *MemoryStore) GetSnapshot() (accumulator.Snapshot, bool, error) {
	if m.pending != nil {
		return *m.pending, true, nil
	}
	if !m.haveSnap {
		return accumulator.Snapshot{}, false, nil
	}
	return m.snap, true, nil
}

func (m *MemoryStore) PutSnapshot(snap accumulator.Snapshot) error {
	m.pending = &snap
	return nil
}

func (m *MemoryStore) GetWitness(key []byte) (*accumulator.Witness, error) {
	k := m.key(key)
	if m.staleDels[k] {
		return nil, nil
	}
	if w, ok := m.staged[k]; ok {
		return w.Clone(), nil
	}
	if w, ok := m.witnesses[k]; ok {
		return w.Clone(), nil
	}
	return nil, nil
}

func (m *MemoryStore) PutWitness(key []byte, w *accumulator.Witness) error {
	k := m.key(key)
	delete(m.staleDels, k)
	m.staged[k] = w.Clone()
	return nil
}

func (m *MemoryStore) DeleteWitness(key []byte) error {
	k := m.key(key)
	delete(m.staged, k)
	m.staleDels[k] = true
	return nil
}

func (m *MemoryStore) BatchGetWitnesses(keys [][]byte) (map[string]*accumulator.Witness, error) {
	out := make(map[string]*accumulator.Witness)
	for _, key := range keys {
		w, err := m.GetWitness(key)
		if err != nil {
			return nil, err
		}
		if w != nil {
			out[m.key(key)] = w
		}
	}
	return out, nil
}

func (m *MemoryStore) AppendOp(op Op) (uint64, error) {
	seq := m.nextOpSeq
	op.Seq = seq
	m.nextOpSeq++
	m.stagedOps = append(m.stagedOps, op)
	return seq, nil
}

func (m *MemoryStore) GetOps(from, to uint64) ([]Op, error) {
	var out []Op
	for _, op := range m.ops {
		if op.Seq >= from && op.Seq < to {
			out = append(out, op)
		}
	}
	return out, nil
}

func (m *MemoryStore) PutSnapshotAtSeq(seq uint64, snap accumulator.Snapshot) error {
	m.stagedSnapsAtSeq[seq] = snap
	return nil
}

func (m *MemoryStore) GetSnapshotAtSeq(seq uint64) (accumulator.Snapshot, bool, error) {
	if snap, ok := m.stagedSnapsAtSeq[seq]; ok {
		return snap, true, nil
	}
	snap, ok := m.snapsAtSeq[seq]
	return snap, ok, nil
}

func (m *MemoryStore) Commit() error {
	if m.pending != nil {
		m.snap = *m.pending
		m.haveSnap = true
		m.pending = nil
	}
	for k, w := range m.staged {
		m.witnesses[k] = w
	}
	for k := range m.staleDels {
		delete(m.witnesses, k)
	}
	m.staged = make(map[string]*accumulator.Witness)
	m.staleDels = make(map[string]bool)
	m.ops = append(m.ops, m.stagedOps...)
	m.stagedOps = nil
	for seq, snap := range m.stagedSnapsAtSeq {
		m.snapsAtSeq[seq] = snap
	}
	m.stagedSnapsAtSeq = make(map[uint64]accumulator.Snapshot)
	return nil
}
