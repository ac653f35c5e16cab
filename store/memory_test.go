package store_test

import (
	"testing"

	"github.com/rsaacc/accumulator/internal/fixtures"
	"github.com/rsaacc/accumulator/store"
)

func TestMemoryStoreSnapshotRoundTrip(t *testing.T) {
	s := store.NewMemoryStore()
	if _, ok, err := s.GetSnapshot(); err != nil || ok {
		t.Fatalf("GetSnapshot on empty store: ok=%v err=%v, want ok=false", ok, err)
	}

	a := fixtures.NewHolder()
	if _, err := a.Add([]byte("x")); err != nil {
		t.Fatal(err)
	}
	snap := a.Snapshot()

	if err := s.PutSnapshot(snap); err != nil {
		t.Fatal(err)
	}
	// Visible before commit, matching the ldbConn batching semantics this
	// mirrors.
	got, ok, err := s.GetSnapshot()
	if err != nil || !ok {
		t.Fatalf("GetSnapshot after Put: ok=%v err=%v", ok, err)
	}
	if got.Z.Cmp(snap.Z) != 0 {
		t.Fatal("uncommitted snapshot did not round-trip")
	}

	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	got, ok, err = s.GetSnapshot()
	if err != nil || !ok || got.Z.Cmp(snap.Z) != 0 {
		t.Fatal("committed snapshot did not round-trip")
	}
}

func TestMemoryStoreWitnessLifecycle(t *testing.T) {
	a := fixtures.NewHolder()
	w, err := a.Add([]byte("element"))
	if err != nil {
		t.Fatal(err)
	}

	s := store.NewMemoryStore()
	key := []byte("element")

	if got, err := s.GetWitness(key); err != nil || got != nil {
		t.Fatalf("GetWitness before Put: got=%v err=%v", got, err)
	}

	if err := s.PutWitness(key, w); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetWitness(key)
	if err != nil || got == nil {
		t.Fatalf("GetWitness after commit: got=%v err=%v", got, err)
	}
	if got.Nonce != w.Nonce || got.W.Cmp(w.W) != 0 {
		t.Fatal("retrieved witness does not match stored witness")
	}

	if err := s.DeleteWitness(key); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	if got, err := s.GetWitness(key); err != nil || got != nil {
		t.Fatalf("GetWitness after delete: got=%v err=%v", got, err)
	}
}

func TestMemoryStoreOpLog(t *testing.T) {
	s := store.NewMemoryStore()

	seq0, err := s.AppendOp(store.Op{Kind: store.OpAdd, X: []byte("a"), Nonce: 1})
	if err != nil {
		t.Fatal(err)
	}
	seq1, err := s.AppendOp(store.Op{Kind: store.OpDel, X: []byte("b"), Nonce: 2})
	if err != nil {
		t.Fatal(err)
	}
	if seq0 != 0 || seq1 != 1 {
		t.Fatalf("sequence numbers = %d, %d, want 0, 1", seq0, seq1)
	}

	// Not visible until Commit.
	if ops, err := s.GetOps(0, 2); err != nil || len(ops) != 0 {
		t.Fatalf("GetOps before commit: ops=%v err=%v, want none", ops, err)
	}

	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}

	ops, err := s.GetOps(0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 2 || ops[0].Kind != store.OpAdd || ops[1].Kind != store.OpDel {
		t.Fatalf("GetOps after commit = %+v, want an add then a del", ops)
	}
}

func TestMemoryStoreBatchGetWitnesses(t *testing.T) {
	a := fixtures.NewHolder()
	w1, err := a.Add([]byte("a"))
	if err != nil {
		t.Fatal(err)
	}
	w2, err := a.Add([]byte("b"))
	if err != nil {
		t.Fatal(err)
	}

	s := store.NewMemoryStore()
	if err := s.PutWitness([]byte("a"), w1); err != nil {
		t.Fatal(err)
	}
	if err := s.PutWitness([]byte("b"), w2); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}

	out, err := s.BatchGetWitnesses([][]byte{[]byte("a"), []byte("b"), []byte("missing")})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("BatchGetWitnesses returned %d entries, want 2", len(out))
	}
}
