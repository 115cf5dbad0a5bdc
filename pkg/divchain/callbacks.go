package divchain

// callbacks.go defines the three user-supplied callback contracts from
// spec.md §6 — CmpKey, RdcKey, FreeElt — and the library's default
// implementations of the first two.
//
// © 2025 divchain authors. MIT License.

import (
	"bytes"
	"encoding/binary"

	"github.com/halvardsson/divchain/internal/chain"
)

// CmpKey reports whether two key-sized byte spans should be treated as
// equal. A nil CmpKey is never stored on a Table; DefaultCmpKey is used in
// its place.
type CmpKey = chain.CmpKey

// RdcKey reduces an arbitrary-size key to one hash word. It must be a pure
// function: the same bytes must always reduce to the same word.
type RdcKey func(key []byte) uint64

// FreeElt releases any resources owned by a value area and must leave the
// elt_size block it was given inert (zeroed or otherwise harmless) before
// returning.
type FreeElt = chain.FreeElt

// DefaultCmpKey compares two key-sized byte spans for byte-wise equality.
// bytes.Equal is the standard library's byte-slice comparison — there is no
// third-party byte-compare library anywhere in the retrieved example pack,
// so this one corner of the default callback set is stdlib by necessity
// rather than by choice.
func DefaultCmpKey(a, b []byte) bool { return bytes.Equal(a, b) }

// DefaultKeyReducer implements the std_key reduction of spec.md §4.4: the
// key's bytes, interpreted little-endian, are summed into one word modulo
// 2^64, processed in whole 8-byte words with a final partial tail. Host
// byte order never enters into it because the input bytes are always
// consumed low-address-first.
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
