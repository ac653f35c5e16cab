package wire_test

import (
	"testing"

	"github.com/rsaacc/accumulator/digest"
	"github.com/rsaacc/accumulator/internal/fixtures"
	"github.com/rsaacc/accumulator/update"
	"github.com/rsaacc/accumulator/wire"
)

func TestWitnessRoundTrip(t *testing.T) {
	a := fixtures.NewHolder()
	w, err := a.Add([]byte("roundtrip"))
	if err != nil {
		t.Fatal(err)
	}

	raw, err := wire.EncodeWitness(a.Digest(), w)
	if err != nil {
		t.Fatal(err)
	}
	decoded, d, err := wire.DecodeWitness(raw)
	if err != nil {
		t.Fatal(err)
	}
	if d.ID() != digest.SHA256.ID() {
		t.Fatalf("digest id = %v, want SHA-256", d.ID())
	}
	if string(decoded.X) != "roundtrip" || decoded.Nonce != w.Nonce || decoded.W.Cmp(w.W) != 0 {
		t.Fatalf("decoded witness does not match original: %+v vs %+v", decoded, w)
	}
	if !a.Verify(decoded) {
		t.Fatal("decoded witness must still verify")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	a := fixtures.NewHolder()
	if _, err := a.Add([]byte("x")); err != nil {
		t.Fatal(err)
	}
	snap := a.Snapshot()

	raw, err := wire.EncodeSnapshot(snap)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := wire.DecodeSnapshot(raw)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.N.Cmp(snap.N) != 0 || decoded.Z.Cmp(snap.Z) != 0 || decoded.PrimeBits != snap.PrimeBits {
		t.Fatalf("decoded snapshot does not match original: %+v vs %+v", decoded, snap)
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	a := fixtures.NewHolder()
	w1, err := a.Add([]byte("1"))
	if err != nil {
		t.Fatal(err)
	}
	w2, err := a.Add([]byte("2"))
	if err != nil {
		t.Fatal(err)
	}

	u := update.Open(a.Snapshot())
	u.AbsorbAdd(w2)

	raw, err := wire.EncodeUpdate(a.Digest(), u)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := wire.DecodeUpdate(raw)
	if err != nil {
		t.Fatal(err)
	}

	refreshed, err := decoded.Apply(w1)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Verify(refreshed) {
		t.Fatal("witness refreshed through a decoded update must verify")
	}
}

func TestDecodeWitnessRejectsUnknownDigest(t *testing.T) {
	raw := []byte{0xaa, 0, 0, 0, 0}
	if _, _, err := wire.DecodeWitness(raw); err == nil {
		t.Fatal("expected DecodeWitness to reject an unrecognized digest identifier")
	}
}
