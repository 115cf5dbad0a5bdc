// Package typed wraps pkg/divchain's byte-span core with an ergonomic
// generic facade, the pattern spec.md §9 recommends ("typed facades can
// wrap the byte core") and the one the teacher's own pkg/cache.go takes
// for its Cache[K comparable, V any] over an untyped shard index. Keys
// and values here still round-trip through the byte core unchanged;
// typed.Map only adds encode/decode at the edges.
//
// © 2025 divchain authors. MIT License.
package typed

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/halvardsson/divchain/pkg/divchain"
)

// KeyCodec converts a comparable key to a fixed-size byte span; keys are
// never decoded back. Encode must always produce the same length for the
// same K.
type KeyCodec[K comparable] interface {
	Encode(K) []byte
	Size() int
}

// EltCodec converts a value to and from a fixed-size byte span.
type EltCodec[V any] interface {
	Encode(V) []byte
	Decode([]byte) V
	Size() int
}

// Map is a generic associative container over pkg/divchain.Table,
// encoding K and V to fixed-width byte spans via the supplied codecs.
type Map[K comparable, V any] struct {
	tbl      *divchain.Table
	keyCodec KeyCodec[K]
	eltCodec EltCodec[V]
}

// New constructs a typed Map backed by a fresh divchain.Table sized for
// at least minNum elements at the table's default load factor (override
// via divchain.Option, e.g.
// typed.New[K, V](minNum, keyCodec, eltCodec, divchain.WithLoadFactor(...))).
func New[K comparable, V any](minNum uint64, keyCodec KeyCodec[K], eltCodec EltCodec[V], opts ...divchain.Option) (*Map[K, V], error) {
	tbl, err := divchain.New(keyCodec.Size(), eltCodec.Size(), minNum, opts...)
	if err != nil {
		return nil, err
	}
	return &Map[K, V]{tbl: tbl, keyCodec: keyCodec, eltCodec: eltCodec}, nil
}

// Put inserts or overwrites key's value.
func (m *Map[K, V]) Put(key K, value V) {
	m.tbl.Insert(m.keyCodec.Encode(key), m.eltCodec.Encode(value))
}

// Get returns key's value, or the zero value and false if absent.
func (m *Map[K, V]) Get(key K) (V, bool) {
	b, ok := m.tbl.Search(m.keyCodec.Encode(key))
	if !ok {
		var zero V
		return zero, false
	}
	return m.eltCodec.Decode(b), true
}

// Remove removes key and returns its value, or the zero value and false
// if key was absent. Ownership of any resources in the value passes to
// the caller, exactly as divchain.Table.Remove documents.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	out := make([]byte, m.eltCodec.Size())
	if !m.tbl.Remove(m.keyCodec.Encode(key), out) {
		var zero V
		return zero, false
	}
	return m.eltCodec.Decode(out), true
}

// Delete removes key, invoking the table's FreeElt callback (if any) on
// its value first. Reports whether key was present.
func (m *Map[K, V]) Delete(key K) bool {
	return m.tbl.Delete(m.keyCodec.Encode(key))
}

// Len reports the number of live entries.
func (m *Map[K, V]) Len() uint64 { return m.tbl.Len() }

// Close releases the underlying table. The Map must not be used
// afterward.
func (m *Map[K, V]) Close() { m.tbl.Free() }

// Snapshot exposes the underlying table's health, for a debug endpoint.
func (m *Map[K, V]) Snapshot() divchain.Snapshot { return m.tbl.Snapshot() }

// FixedCodec is a KeyCodec/EltCodec for any fixed-size numeric type
// representable via encoding/binary (uint32, uint64, int32, int64, and
// so on), encoded little-endian.
type FixedCodec[T any] struct {
	size int
}

// NewFixedCodec builds a FixedCodec for T, panicking if T is not a fixed-
// size type binary.Write can encode (callers are expected to pick T at
// compile time, so this is a programmer error, not a runtime input error).
func NewFixedCodec[T any]() FixedCodec[T] {
	var zero T
	size := binary.Size(zero)
	if size <= 0 {
		panic(fmt.Sprintf("typed: %T is not a fixed-size binary.Size-able type", zero))
	}
	return FixedCodec[T]{size: size}
}

// Size returns the codec's fixed byte width.
func (c FixedCodec[T]) Size() int { return c.size }

// Encode serializes v little-endian into a freshly allocated byte span.
func (c FixedCodec[T]) Encode(v T) []byte {
	buf := make([]byte, c.size)
	writeFixed(buf, v)
	return buf
}

// Decode reconstructs a T from b, which must be exactly Size() bytes.
func (c FixedCodec[T]) Decode(b []byte) T {
	var v T
	readFixed(b, &v)
	return v
}

func writeFixed(buf []byte, v any) {
	switch x := v.(type) {
	case uint32:
		binary.LittleEndian.PutUint32(buf, x)
	case uint64:
		binary.LittleEndian.PutUint64(buf, x)
	case int32:
		binary.LittleEndian.PutUint32(buf, uint32(x))
	case int64:
		binary.LittleEndian.PutUint64(buf, uint64(x))
	default:
		// Fall back to reflection-driven binary.Write semantics for any
		// other fixed-size type (arrays of fixed-size elements, structs of
		// fixed-size fields, etc).
		if err := binary.Write(sliceWriter{buf}, binary.LittleEndian, v); err != nil {
			panic(fmt.Sprintf("typed: encode %T: %v", v, err))
		}
	}
}

func readFixed(b []byte, out any) {
	switch x := out.(type) {
	case *uint32:
		*x = binary.LittleEndian.Uint32(b)
	case *uint64:
		*x = binary.LittleEndian.Uint64(b)
	case *int32:
		*x = int32(binary.LittleEndian.Uint32(b))
	case *int64:
		*x = int64(binary.LittleEndian.Uint64(b))
	default:
		if err := binary.Read(bytesReader{b}, binary.LittleEndian, out); err != nil {
			panic(fmt.Sprintf("typed: decode %v: %v", reflect.TypeOf(out), err))
		}
	}
}

// sliceWriter and bytesReader adapt a plain []byte to io.Writer/io.Reader
// for the reflection fallback path in writeFixed/readFixed, without
// pulling in bytes.Buffer's extra allocation for the common fixed-width
// cases handled above by direct binary.LittleEndian calls.
type sliceWriter struct{ buf []byte }

func (w sliceWriter) Write(p []byte) (int, error) {
	n := copy(w.buf, p)
	return n, nil
}

type bytesReader struct{ buf []byte }

func (r bytesReader) Read(p []byte) (int, error) {
	n := copy(p, r.buf)
	return n, nil
}

// StringCodec encodes a string key by truncating/zero-padding it to a
// fixed width, matching spec.md's fixed-size key_size contract. Strings
// longer than width are truncated; Decode trims trailing zero bytes.
type StringCodec struct {
	width int
}

// NewStringCodec builds a StringCodec with a fixed width in bytes.
func NewStringCodec(width int) StringCodec { return StringCodec{width: width} }

// Size returns the codec's fixed byte width.
func (c StringCodec) Size() int { return c.width }

// Encode truncates or zero-pads s to the codec's fixed width.
func (c StringCodec) Encode(s string) []byte {
	buf := make([]byte, c.width)
	copy(buf, s)
	return buf
}

// Decode trims trailing zero bytes from b and returns it as a string.
func (c StringCodec) Decode(b []byte) string {
	n := len(b)
	for n > 0 && b[n-1] == 0 {
		n--
	}
	return string(b[:n])
}
