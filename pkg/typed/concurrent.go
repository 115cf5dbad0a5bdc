package typed

import (
	"github.com/halvardsson/divchain/pkg/divchainmt"
)

// ConcurrentMap is typed.Map's counterpart over pkg/divchainmt.TableMT,
// safe for concurrent use without external synchronization.
type ConcurrentMap[K comparable, V any] struct {
	tbl      *divchainmt.TableMT
	keyCodec KeyCodec[K]
	eltCodec EltCodec[V]
}

// NewConcurrent constructs a typed ConcurrentMap backed by a fresh
// divchainmt.TableMT.
func NewConcurrent[K comparable, V any](minNum uint64, keyCodec KeyCodec[K], eltCodec EltCodec[V], opts ...divchainmt.Option) (*ConcurrentMap[K, V], error) {
	tbl, err := divchainmt.New(keyCodec.Size(), eltCodec.Size(), minNum, opts...)
	if err != nil {
		return nil, err
	}
	return &ConcurrentMap[K, V]{tbl: tbl, keyCodec: keyCodec, eltCodec: eltCodec}, nil
}

// Put inserts or overwrites key's value as a single-pair batch.
func (m *ConcurrentMap[K, V]) Put(key K, value V) {
	m.tbl.Insert([]divchainmt.Pair{{Key: m.keyCodec.Encode(key), Value: m.eltCodec.Encode(value)}})
}

// PutBatch inserts a slice of (key, value) pairs as one batch: per
// spec.md §4.5, every pair becomes visible to Get exactly when PutBatch
// returns, and the last write of a repeated key within the batch wins.
func (m *ConcurrentMap[K, V]) PutBatch(keys []K, values []V) {
	if len(keys) != len(values) {
		panic("typed: PutBatch keys and values must have equal length")
	}
	pairs := make([]divchainmt.Pair, len(keys))
	for i := range keys {
		pairs[i] = divchainmt.Pair{Key: m.keyCodec.Encode(keys[i]), Value: m.eltCodec.Encode(values[i])}
	}
	m.tbl.Insert(pairs)
}

// Get returns key's value, or the zero value and false if absent.
func (m *ConcurrentMap[K, V]) Get(key K) (V, bool) {
	b, ok := m.tbl.Search(m.keyCodec.Encode(key))
	if !ok {
		var zero V
		return zero, false
	}
	return m.eltCodec.Decode(b), true
}

// Remove removes key and returns its value, or the zero value and false
// if key was absent.
func (m *ConcurrentMap[K, V]) Remove(key K) (V, bool) {
	out := make([]byte, m.eltCodec.Size())
	if !m.tbl.Remove(m.keyCodec.Encode(key), out) {
		var zero V
		return zero, false
	}
	return m.eltCodec.Decode(out), true
}

// Delete removes key, invoking the table's FreeElt callback (if any) on
// its value first. Reports whether key was present.
func (m *ConcurrentMap[K, V]) Delete(key K) bool {
	return m.tbl.Delete(m.keyCodec.Encode(key))
}

// Len reports the number of live entries.
func (m *ConcurrentMap[K, V]) Len() uint64 { return m.tbl.Len() }

// Close releases the underlying table.
func (m *ConcurrentMap[K, V]) Close() { m.tbl.Free() }

// Snapshot exposes the underlying table's health, for a debug endpoint.
func (m *ConcurrentMap[K, V]) Snapshot() divchainmt.Snapshot { return m.tbl.Snapshot() }
