// Package unsafehelpers centralises the alignment helpers: AlignUp, which
// internal/arena and internal/chain use to carve aligned, address-stable
// blocks out of a page, and IsPowerOfTwo, which the table configs use to
// validate an alignment. Everything else in this
// repository stays on the safe side of the language.
//
// © 2025 divchain authors. MIT License.

package unsafehelpers

/* -------------------------------------------------------------------------
   Alignment helpers
   ------------------------------------------------------------------------- */

// AlignUp rounds x up to the nearest multiple of align (which must be a power
// of two).  Fast bit‑twiddling alternative to math.Ceil for sizes.
func AlignUp(x, align uintptr) uintptr {
    return (x + align - 1) &^ (align - 1)
}

// IsPowerOfTwo returns true if x is a power of two (exactly one bit set).
func IsPowerOfTwo(x uintptr) bool {
    return x != 0 && (x&(x-1)) == 0
}
