package primegen

import (
	"context"
	"math/big"
	"testing"
)

func TestGenerateModulusLength(t *testing.T) {
	for _, bits := range []int{64, 96, 128} {
		params := Params{ModulusBits: bits, MRRounds: 20}
		primes, err := Generate(context.Background(), params)
		if err != nil {
			t.Fatalf("Generate(%d): %v", bits, err)
		}
		n := primes.Modulus()
		if n.BitLen() != bits {
			t.Fatalf("Generate(%d): modulus has %d bits, want %d", bits, n.BitLen(), bits)
		}
		if primes.P.Cmp(primes.Q) < 0 {
			t.Fatalf("Generate(%d): P < Q, expected canonical P >= Q ordering", bits)
		}
		if !primes.P.ProbablyPrime(20) || !primes.Q.ProbablyPrime(20) {
			t.Fatalf("Generate(%d): produced a non-prime factor", bits)
		}
		if primes.P.Bit(0) == 0 || primes.Q.Bit(0) == 0 {
			t.Fatalf("Generate(%d): produced an even factor", bits)
		}
	}
}

func TestGenerateDistinctFactors(t *testing.T) {
	primes, err := Generate(context.Background(), Params{ModulusBits: 96, MRRounds: 20})
	if err != nil {
		t.Fatal(err)
	}
	if primes.P.Cmp(primes.Q) == 0 {
		t.Fatal("P and Q must not be equal")
	}
}

func TestTotient(t *testing.T) {
	primes := &Primes{P: big.NewInt(11), Q: big.NewInt(7)}
	want := big.NewInt(60) // (11-1)*(7-1)
	if got := primes.Totient(); got.Cmp(want) != 0 {
		t.Fatalf("Totient() = %v, want %v", got, want)
	}
}

func TestAlignToWheel(t *testing.T) {
	for _, tc := range []struct {
		in, want int64
	}{
		{0, 1}, {1, 1}, {2, 31}, {29, 31}, {30, 31}, {31, 31}, {32, 61},
	} {
		got := alignToWheel(big.NewInt(tc.in))
		if got.Int64() != tc.want {
			t.Errorf("alignToWheel(%d) = %v, want %d", tc.in, got, tc.want)
		}
	}
}

func TestGenerateRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Generate(ctx, Params{ModulusBits: 3072}); err == nil {
		t.Fatal("expected Generate to fail on a cancelled context")
	}
}
