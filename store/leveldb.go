package store

import (
	"encoding/binary"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	dberrors "github.com/syndtr/goleveldb/leveldb/errors"

	"github.com/rsaacc/accumulator/accumulator"
	"github.com/rsaacc/accumulator/digest"
	"github.com/rsaacc/accumulator/wire"
)

const (
	snapshotKey = "snapshot"
	nextSeqKey  = "next-seq"
)

func opKey(seq uint64) string {
	return fmt.Sprintf("o%020d", seq)
}

func snapAtSeqKey(seq uint64) string {
	return fmt.Sprintf("h%020d", seq)
}

func dup(in []byte) []byte {
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func witnessKey(key []byte) string {
	return "w" + fmt.Sprintf("%x", key)
}

// ldbConn wraps a base LevelDB database and batches writes between commits,
// the same shape the rest of this module's ancestry uses for its stores.
type ldbConn struct {
	conn  *leveldb.DB
	batch map[string][]byte
	dels  map[string]bool
}

func newLDBConn(conn *leveldb.DB) *ldbConn {
	return &ldbConn{conn: conn, batch: make(map[string][]byte), dels: make(map[string]bool)}
}

func (c *ldbConn) Get(key string) ([]byte, error) {
	if c.dels[key] {
		return nil, leveldb.ErrNotFound
	}
	if value, ok := c.batch[key]; ok {
		return dup(value), nil
	}
	return c.conn.Get([]byte(key), nil)
}

func (c *ldbConn) Put(key string, value []byte) {
	delete(c.dels, key)
	c.batch[key] = dup(value)
}

func (c *ldbConn) Delete(key string) {
	delete(c.batch, key)
	c.dels[key] = true
}

func (c *ldbConn) Commit() error {
	b := new(leveldb.Batch)
	for key, value := range c.batch {
		b.Put([]byte(key), value)
	}
	for key := range c.dels {
		b.Delete([]byte(key))
	}
	if err := c.conn.Write(b, nil); err != nil {
		return err
	}
	c.batch = make(map[string][]byte)
	c.dels = make(map[string]bool)
	return nil
}

// ldbStore implements Store over a LevelDB database.
type ldbStore struct {
	conn    *ldbConn
	d       digest.Provider
	nextSeq uint64
}

// OpenLevelDB opens (or recovers, on detected corruption) the LevelDB
// database at file, and returns a Store over it. d is the digest provider
// witnesses read from and written to this store are tagged with.
func OpenLevelDB(file string, d digest.Provider) (Store, error) {
	conn, err := leveldb.OpenFile(file, nil)
	if dberrors.IsCorrupted(err) {
		conn, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}
	s := &ldbStore{conn: newLDBConn(conn), d: d}
	raw, err := conn.Get([]byte(nextSeqKey), nil)
	if err == nil {
		s.nextSeq = binary.BigEndian.Uint64(raw)
	} else if err != leveldb.ErrNotFound {
		return nil, err
	}
	return s, nil
}

func encodeOp(op Op) []byte {
	out := make([]byte, 0, 1+4+len(op.X)+8)
	kindByte := byte(0)
	if op.Kind == OpDel {
		kindByte = 1
	}
	out = append(out, kindByte)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(op.X)))
	out = append(out, lenBuf[:]...)
	out = append(out, op.X...)
	var nonceBuf [8]byte
	binary.BigEndian.PutUint64(nonceBuf[:], op.Nonce)
	return append(out, nonceBuf[:]...)
}

func decodeOp(seq uint64, raw []byte) (Op, error) {
	if len(raw) < 1+4+8 {
		return Op{}, fmt.Errorf("store: truncated op record for seq %d", seq)
	}
	kind := OpAdd
	if raw[0] == 1 {
		kind = OpDel
	}
	xLen := binary.BigEndian.Uint32(raw[1:5])
	if uint64(len(raw)) < uint64(5)+uint64(xLen)+8 {
		return Op{}, fmt.Errorf("store: truncated op record for seq %d", seq)
	}
	x := raw[5 : 5+xLen]
	nonce := binary.BigEndian.Uint64(raw[5+xLen:])
	return Op{Seq: seq, Kind: kind, X: append([]byte(nil), x...), Nonce: nonce}, nil
}

func (s *ldbStore) AppendOp(op Op) (uint64, error) {
	seq := s.nextSeq
	op.Seq = seq
	s.conn.Put(opKey(seq), encodeOp(op))
	s.nextSeq++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], s.nextSeq)
	s.conn.Put(nextSeqKey, buf[:])
	return seq, nil
}

// GetOps reads directly from the underlying database, bypassing this
// Store's uncommitted batch: an operation log entry is only meaningful once
// durable.
func (s *ldbStore) GetOps(from, to uint64) ([]Op, error) {
	var ops []Op
	for seq := from; seq < to; seq++ {
		raw, err := s.conn.conn.Get([]byte(opKey(seq)), nil)
		if err == leveldb.ErrNotFound {
			continue
		} else if err != nil {
			return nil, err
		}
		op, err := decodeOp(seq, raw)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (s *ldbStore) GetSnapshot() (accumulator.Snapshot, bool, error) {
	raw, err := s.conn.Get(snapshotKey)
	if err == leveldb.ErrNotFound {
		return accumulator.Snapshot{}, false, nil
	} else if err != nil {
		return accumulator.Snapshot{}, false, err
	}
	snap, err := wire.DecodeSnapshot(raw)
	if err != nil {
		return accumulator.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s *ldbStore) PutSnapshot(snap accumulator.Snapshot) error {
	raw, err := wire.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	s.conn.Put(snapshotKey, raw)
	return nil
}

func (s *ldbStore) GetWitness(key []byte) (*accumulator.Witness, error) {
	raw, err := s.conn.Get(witnessKey(key))
	if err == leveldb.ErrNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	w, _, err := wire.DecodeWitness(raw)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (s *ldbStore) PutWitness(key []byte, w *accumulator.Witness) error {
	raw, err := wire.EncodeWitness(s.d, w)
	if err != nil {
		return err
	}
	s.conn.Put(witnessKey(key), raw)
	return nil
}

func (s *ldbStore) DeleteWitness(key []byte) error {
	s.conn.Delete(witnessKey(key))
	return nil
}

func (s *ldbStore) BatchGetWitnesses(keys [][]byte) (map[string]*accumulator.Witness, error) {
	out := make(map[string]*accumulator.Witness)
	for _, key := range keys {
		w, err := s.GetWitness(key)
		if err != nil {
			return nil, err
		}
		if w != nil {
			out[fmt.Sprintf("%x", key)] = w
		}
	}
	return out, nil
}

func (s *ldbStore) PutSnapshotAtSeq(seq uint64, snap accumulator.Snapshot) error {
	raw, err := wire.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	s.conn.Put(snapAtSeqKey(seq), raw)
	return nil
}

func (s *ldbStore) GetSnapshotAtSeq(seq uint64) (accumulator.Snapshot, bool, error) {
	raw, err := s.conn.Get(snapAtSeqKey(seq))
	if err == leveldb.ErrNotFound {
		return accumulator.Snapshot{}, false, nil
	} else if err != nil {
		return accumulator.Snapshot{}, false, err
	}
	snap, err := wire.DecodeSnapshot(raw)
	if err != nil {
		return accumulator.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s *ldbStore) Commit() error {
	return s.conn.Commit()
}
