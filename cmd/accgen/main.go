// Command accgen generates a fresh RSA accumulator keypair: a random-prime
// factorization of the modulus, and the derived public state a holder
// starts from.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/rsaacc/accumulator/accumulator"
	"github.com/rsaacc/accumulator/digest"
	"github.com/rsaacc/accumulator/primegen"
)

var (
	bits      = flag.Int("bits", primegen.DefaultModulusBits, "Bit length of the RSA modulus n = p*q.")
	digestArg = flag.String("digest", "SHA-256", "Digest to map elements to primes with (SHA-256, SHA-384, SHA-512, BLAKE3).")
	rounds    = flag.Int("mr-rounds", primegen.DefaultMRRounds, "Miller-Rabin rounds to run on each prime candidate that passes the one-round screen.")
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	flag.Parse()

	d, err := digest.Resolve(*digestArg)
	if err != nil {
		log.Fatalf("Unrecognized digest: %v", err)
	}

	params := primegen.Params{ModulusBits: *bits, MRRounds: *rounds}
	log.Printf("Searching for a %d-bit modulus prime pair, this can take a while...", *bits)
	primes, err := primegen.Generate(context.Background(), params)
	if err != nil {
		log.Fatalf("Failed to generate primes: %v", err)
	}

	holder := accumulator.NewHolder(accumulator.Config{Digest: d}, primes)

	fmt.Printf("P:       %x\n", primes.P)
	fmt.Printf("Q:       %x\n", primes.Q)
	fmt.Printf("N:       %x\n", holder.N())
	fmt.Printf("Z:       %x\n", holder.Z())
	fmt.Printf("Digest:  %s\n", *digestArg)
}
