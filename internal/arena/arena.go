// Package arena provides a page-based bump allocator used by internal/chain
// to hand out address-stable node storage.
//
// Unlike a general-purpose allocator, an Arena never moves or resizes an
// individual allocation: it only ever grows by appending pages, and a page
// is only ever reclaimed wholesale via Free. That is exactly the property
// internal/chain needs to satisfy the Address Stability invariant — once a
// node is carved out of an Arena its address stays valid until the node is
// released back to the arena's free list or the arena itself is freed.
//
// Concurrency
// -----------
// Arena is *not* thread-safe. Callers (internal/chain, and above it
// pkg/divchain / pkg/divchainmt) already serialise access with their own
// locks or slot-group mutexes; adding locking here would be redundant and
// would slow down the hot allocation path.
//
// © 2025 divchain authors. MIT License.
package arena

import (
	"unsafe"

	"github.com/halvardsson/divchain/internal/unsafehelpers"
)

// defaultPageSize is the size, in bytes, of each backing page. Chosen large
// enough that most tables only ever need a handful of pages.
const defaultPageSize = 64 << 10 // 64 KiB

// Arena is a bump allocator over a growable set of fixed-size pages. It
// never resizes or relocates a page once allocated, so every slice it hands
// out remains valid until Free is called.
type Arena struct {
	pageSize int
	pages    [][]byte
	off      int // bump offset into the last page

	// freeList chains previously released blocks of a single fixed size
	// (set lazily on first Release) so that steady-state node churn does
	// not grow the arena without bound. Blocks are chained through their
	// own first machine word, which is safe because a released block is
	// never read by the caller again until it is handed back out.
	freeList  unsafe.Pointer
	blockSize int
}

// New constructs an empty arena using the default page size.
func New() *Arena {
	return &Arena{pageSize: defaultPageSize}
}

// NewSized constructs an empty arena whose pages are pageSize bytes. Useful
// for tests that want to exercise page-rollover without allocating
// megabytes of memory.
func NewSized(pageSize int) *Arena {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Arena{pageSize: pageSize}
}

// Alloc returns a freshly zeroed block of exactly size bytes, aligned to
// align (which must be a power of two, or zero/one for unaligned). The
// returned slice's backing array is owned by the arena and remains valid
// until Release(block) or Free().
func (a *Arena) Alloc(size int, align int) []byte {
	if size <= 0 {
		return nil
	}
	if align <= 0 {
		align = 1
	}

	// Reuse a released block of the exact same size before touching the
	// bump pointer; this keeps insert/delete churn from growing the arena
	// without bound across the table's lifetime.
	if a.blockSize == size {
		if block := a.popFree(); block != nil {
			clear(block)
			return block
		}
	}

	if len(a.pages) == 0 {
		a.addPage(size, align)
	}

	page := a.pages[len(a.pages)-1]
	start := int(unsafehelpers.AlignUp(uintptr(a.off), uintptr(align)))
	if start+size > len(page) {
		a.addPage(size, align)
		page = a.pages[len(a.pages)-1]
		start = 0
	}

	block := page[start : start+size : start+size]
	a.off = start + size
	a.blockSize = size
	return block
}

// Release returns block to the arena's free list so a subsequent Alloc of
// the same size can reuse its storage. Release does NOT shrink the arena —
// pages are only ever reclaimed by Free. block must have been returned by a
// prior Alloc call on this arena and must not be used again by the caller
// afterwards.
func (a *Arena) Release(block []byte) {
	if len(block) == 0 {
		return
	}
	a.pushFree(block)
}

// Free releases every page owned by the arena. After Free, any slice
// previously returned by Alloc is invalid.
func (a *Arena) Free() {
	a.pages = nil
	a.off = 0
	a.freeList = nil
	a.blockSize = 0
}

// Bytes reports the number of bytes currently committed across all pages.
func (a *Arena) Bytes() int64 {
	var total int64
	for _, p := range a.pages {
		total += int64(len(p))
	}
	return total
}

func (a *Arena) addPage(minSize, align int) {
	sz := a.pageSize
	if need := minSize + align; need > sz {
		sz = need
	}
	a.pages = append(a.pages, make([]byte, sz))
	a.off = 0
}

// freeNode is overlaid on the first machine word of a released block to
// chain it into the free list. It is only ever written into memory the
// caller has already relinquished via Release.
type freeNode struct{ next unsafe.Pointer }

func (a *Arena) pushFree(block []byte) {
	n := (*freeNode)(unsafe.Pointer(&block[0]))
	n.next = a.freeList
	a.freeList = unsafe.Pointer(n)
}

func (a *Arena) popFree() []byte {
	if a.freeList == nil {
		return nil
	}
	n := (*freeNode)(a.freeList)
	a.freeList = n.next
	return unsafe.Slice((*byte)(unsafe.Pointer(n)), a.blockSize)
}
