// Package chain implements the circular doubly linked list that backs every
// slot of a division-method chaining hash table.
//
// A Chain is identified by a *head handle*: either nil (empty ring) or a
// pointer to some node of the ring; every node in the ring is an equally
// valid candidate head. Iteration starts at the head and walks `next` links
// until it returns to the head.
//
// Node storage is carved out of an internal/arena.Arena so that, per the
// address-stability contract external hash tables rely on, a node's address
// never changes until the node is removed (Delete) or the whole chain is
// released (Free). This is the same "never relocate, only bump-allocate or
// release wholesale" discipline the teacher's internal/clockpro ring used
// for its metaNode list, generalised here to own its own node storage
// instead of riding on the Go heap/GC.
//
// © 2025 divchain authors. MIT License.
package chain

import (
	"github.com/halvardsson/divchain/internal/arena"
	"github.com/halvardsson/divchain/internal/unsafehelpers"
)

// Node is one element of a Chain ring. Key and Elt are contiguous views
// into a single arena-allocated block: Key is exactly keySize bytes, Elt is
// exactly eltSize bytes starting at an alignment-respecting offset. Their
// addresses are stable for the node's lifetime.
type Node struct {
	prev, next *Node
	block      []byte // the full arena allocation backing Key and Elt
	Key        []byte
	Elt        []byte
}

// CmpKey reports whether a and b (both keySize bytes) should be treated as
// equal. A nil CmpKey falls back to byte-wise equality.
type CmpKey func(a, b []byte) bool

// CmpElt reports whether a value matches some caller-supplied predicate
// target; used by SearchElt.
type CmpElt func(elt []byte) bool

// Head is the movable head cursor of a Chain. The zero value is an empty
// chain.
type Head struct {
	node *Node
}

// Empty reports whether the chain currently holds no nodes.
func (h *Head) Empty() bool { return h.node == nil }

// Node returns the current head node, or nil if the chain is empty. It is
// the escape hatch callers that need to drain and relocate a whole chain
// (e.g. a hash table rehashing its slots during grow) use instead of
// walking node-by-node through Remove/SearchKey.
func (h *Head) Node() *Node { return h.node }

// nodeSize returns the arena block size needed to store one node's key and
// (aligned) value areas, along with the value's offset within the block.
// The prev/next links live in the Node struct, not in the block.
func nodeSize(keySize, eltSize, eltAlign int) (blockSize, eltOff int) {
	if eltAlign <= 0 {
		eltAlign = 1
	}
	off := keySize
	off = int(unsafehelpers.AlignUp(uintptr(off), uintptr(eltAlign)))
	return off + eltSize, off
}

// PrependNew allocates a new node from a, copies key/value bytes into it,
// and splices it immediately before the current head; the new node becomes
// the head. An empty head yields a singleton ring.
func PrependNew(h *Head, a *arena.Arena, key, value []byte, keySize, eltSize, eltAlign int) *Node {
	n := newNode(a, key, value, keySize, eltSize, eltAlign)
	Prepend(h, n)
	return n
}

// AppendNew is equivalent to PrependNew followed by advancing the head to
// head.next, so the freshly inserted node becomes the immediate
// predecessor of the (unchanged) logical head.
func AppendNew(h *Head, a *arena.Arena, key, value []byte, keySize, eltSize, eltAlign int) *Node {
	n := newNode(a, key, value, keySize, eltSize, eltAlign)
	Append(h, n)
	return n
}

func newNode(a *arena.Arena, key, value []byte, keySize, eltSize, eltAlign int) *Node {
	blockSize, eltOff := nodeSize(keySize, eltSize, eltAlign)
	block := a.Alloc(blockSize, eltAlign)
	n := &Node{
		block: block,
		Key:   block[:keySize:keySize],
		Elt:   block[eltOff : eltOff+eltSize : eltOff+eltSize],
	}
	copy(n.Key, key)
	copy(n.Elt, value)
	return n
}

// Prepend splices an externally provided node into the ring immediately
// before the current head; the node becomes the new head. The caller
// guarantees node is not already part of another ring.
func Prepend(h *Head, n *Node) {
	if h.node == nil {
		n.prev, n.next = n, n
		h.node = n
		return
	}
	tail := h.node.prev
	n.next = h.node
	n.prev = tail
	tail.next = n
	h.node.prev = n
	h.node = n
}

// Append splices node in as the immediate predecessor of the current head,
// leaving the head unchanged (unless the ring was empty, in which case the
// new node becomes a singleton head).
func Append(h *Head, n *Node) {
	if h.node == nil {
		n.prev, n.next = n, n
		h.node = n
		return
	}
	tail := h.node.prev
	n.prev = tail
	n.next = h.node
	tail.next = n
	h.node.prev = n
}

// SearchKey walks the ring starting at head, comparing keySize bytes via
// cmp (or byte-wise equality if cmp is nil), and returns the first matching
// node or nil. An empty head always returns nil.
func SearchKey(h *Head, key []byte, cmp CmpKey) *Node {
	if h.node == nil {
		return nil
	}
	eq := cmp
	if eq == nil {
		eq = bytesEqual
	}
	n := h.node
	for {
		if eq(n.Key, key) {
			return n
		}
		n = n.next
		if n == h.node {
			return nil
		}
	}
}

// SearchElt walks the ring starting at head, returning the first node whose
// value satisfies pred, or nil.
func SearchElt(h *Head, pred CmpElt) *Node {
	if h.node == nil || pred == nil {
		return nil
	}
	n := h.node
	for {
		if pred(n.Elt) {
			return n
		}
		n = n.next
		if n == h.node {
			return nil
		}
	}
}

// Remove detaches node from the ring without releasing its storage. If node
// was the head, the head advances to node.next, or becomes empty if node
// was the sole element. Removing from an empty head or a nil node is a
// no-op.
func Remove(h *Head, n *Node) {
	if h.node == nil || n == nil {
		return
	}
	if n.next == n {
		h.node = nil
	} else {
		n.prev.next = n.next
		n.next.prev = n.prev
		if h.node == n {
			h.node = n.next
		}
	}
	n.prev, n.next = nil, nil
}

// FreeElt releases any resources owned by a value area; see the FreeElt
// callback contract.
type FreeElt func(elt []byte)

// Delete removes node from the ring, invokes freeElt (if non-nil) on its
// value area, and releases the node's storage back to a. A no-op for a nil
// node.
func Delete(h *Head, a *arena.Arena, n *Node, freeElt FreeElt) {
	if n == nil {
		return
	}
	Remove(h, n)
	releaseNode(a, n, freeElt)
}

// Free releases every node in the ring once around, invoking freeElt (if
// non-nil) on each value area, and leaves head empty.
func Free(h *Head, a *arena.Arena, freeElt FreeElt) {
	if h.node == nil {
		return
	}
	start := h.node
	h.node = nil
	n := start
	for {
		next := n.next
		n.prev, n.next = nil, nil
		releaseNode(a, n, freeElt)
		if next == start {
			break
		}
		n = next
	}
}

func releaseNode(a *arena.Arena, n *Node, freeElt FreeElt) {
	if freeElt != nil {
		freeElt(n.Elt)
	}
	a.Release(n.block)
	n.block, n.Key, n.Elt = nil, nil, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
