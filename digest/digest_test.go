package digest_test

import (
	"testing"

	"github.com/rsaacc/accumulator/digest"
)

func TestResolveKnownIdentifiers(t *testing.T) {
	cases := []struct {
		name string
		want digest.Provider
	}{
		{"SHA-256", digest.SHA256},
		{"SHA-384", digest.SHA384},
		{"SHA-512", digest.SHA512},
		{"BLAKE3", digest.BLAKE3},
	}
	for _, c := range cases {
		got, err := digest.Resolve(c.name)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", c.name, err)
		}
		if got.ID() != c.want.ID() {
			t.Fatalf("Resolve(%q).ID() = %v, want %v", c.name, got.ID(), c.want.ID())
		}
	}
}

func TestResolveUnknownIdentifier(t *testing.T) {
	if _, err := digest.Resolve("md5"); err == nil {
		t.Fatal("expected Resolve to reject an unrecognized identifier")
	}
}

func TestFromIDRoundTrip(t *testing.T) {
	for _, p := range []digest.Provider{digest.SHA256, digest.SHA384, digest.SHA512, digest.BLAKE3} {
		got, err := digest.FromID(p.ID())
		if err != nil {
			t.Fatalf("FromID(0x%02x): %v", p.ID(), err)
		}
		if got.Size() != p.Size() {
			t.Fatalf("FromID(0x%02x).Size() = %d, want %d", p.ID(), got.Size(), p.Size())
		}
	}
}

func TestFromIDRejectsCustom(t *testing.T) {
	if _, err := digest.FromID(digest.IDCustom); err == nil {
		t.Fatal("expected FromID(IDCustom) to fail: custom digests have no wire identity")
	}
}

func TestBlake3ProducesExpectedSize(t *testing.T) {
	sum := digest.BLAKE3.Sum([]byte("accumulator"))
	if len(sum) != digest.BLAKE3.Size() {
		t.Fatalf("len(sum) = %d, want %d", len(sum), digest.BLAKE3.Size())
	}
}

func TestFromFuncEnforcesSize(t *testing.T) {
	p := digest.FromFunc(4, func(b []byte) []byte { return []byte{1, 2, 3, 4} })
	defer func() {
		if recover() == nil {
			t.Fatal("expected FromFunc's Provider to panic when the callable returns the wrong size")
		}
	}()
	bad := digest.FromFunc(4, func(b []byte) []byte { return []byte{1, 2, 3} })
	_ = p
	bad.Sum([]byte("x"))
}
