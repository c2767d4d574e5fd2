// Package genome derives kitty genomes from an entropy source and mixes
// parent genomes when breeding.
//
// Derived genomes are hard to predict in advance but are not unforgeable: an
// actor controlling the entropy source controls the output.
package genome

import (
	"encoding/binary"

	"kitty-services/types"

	"golang.org/x/crypto/blake2b"
)

// Derive hashes the entropy seed, the caller and the operation index into a
// genome. Identical inputs always give identical output.
func Derive(seed []byte, caller types.AccountID, opIndex uint32) types.Genome {
	h, err := blake2b.New(types.GenomeSize, nil)
	if err != nil {
		// only possible with an invalid size or key
		panic(err)
	}

	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(seed)))
	h.Write(n[:])
	h.Write(seed)
	h.Write(caller.Bytes())
	binary.LittleEndian.PutUint32(n[:], opIndex)
	h.Write(n[:])

	g := types.Genome{}
	copy(g[:], h.Sum(nil))
	return g
}

// Combine takes bits from dna1 where the selector has a 1 bit and from dna2
// where it has a 0 bit.
func Combine(selector, dna1, dna2 types.Genome) types.Genome {
	child := types.Genome{}
	for i := range child {
		child[i] = (selector[i] & dna1[i]) | (^selector[i] & dna2[i])
	}
	return child
}
