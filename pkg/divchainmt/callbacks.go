package divchainmt

// callbacks.go mirrors pkg/divchain/callbacks.go: the same three
// user-supplied callback contracts from spec.md §6, restated here so
// TableMT depends only on internal/chain and never on pkg/divchain
// itself, keeping the two table implementations as independent peers
// built from the same primitives — the relationship the teacher keeps
// between its own sibling packages.
//
// © 2025 divchain authors. MIT License.

import (
	"bytes"
	"encoding/binary"

	"github.com/halvardsson/divchain/internal/chain"
)

// CmpKey reports whether two key-sized byte spans should be treated as
// equal.
type CmpKey = chain.CmpKey

// RdcKey reduces an arbitrary-size key to one hash word. It must be a pure
// function: the same bytes must always reduce to the same word.
type RdcKey func(key []byte) uint64

// FreeElt releases any resources owned by a value area.
type FreeElt = chain.FreeElt

// DefaultCmpKey compares two key-sized byte spans for byte-wise equality.
func DefaultCmpKey(a, b []byte) bool { return bytes.Equal(a, b) }

// DefaultKeyReducer sums the key's bytes as little-endian 64-bit words,
// identical to pkg/divchain.DefaultKeyReducer so the two table flavors
// agree on hash placement for the same key and reducer.
func DefaultKeyReducer(key []byte) uint64 {
	var sum uint64
	n := len(key)
	i := 0
	for ; i+8 <= n; i += 8 {
		sum += binary.LittleEndian.Uint64(key[i : i+8])
	}
	if rem := n - i; rem > 0 {
		var tail [8]byte
		copy(tail[:], key[i:])
		sum += binary.LittleEndian.Uint64(tail[:])
	}
	return sum
}
