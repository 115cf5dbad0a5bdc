// Package bench provides reproducible micro-benchmarks for divchain.
// Run via: go test ./bench -bench=. -benchmem -cpu 1,4,16
//
// The benchmarks use one key/value shape across both table flavors so
// results are comparable:
//   - Key   – 8 bytes (matches a uint64, cheap to reduce)
//   - Value – 64-byte block
//
// We measure:
//  1. Insert          – single-threaded write-only workload
//  2. Search          – single-threaded read-only workload (after warm-up)
//  3. MTInsertBatch   – divchainmt.TableMT batched concurrent writes
//  4. MTSearchParallel – divchainmt.TableMT concurrent reads (b.RunParallel)
//
// © 2025 divchain authors. MIT License.
package bench

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/halvardsson/divchain/pkg/divchain"
	"github.com/halvardsson/divchain/pkg/divchainmt"
)

const (
	keySize = 8
	eltSize = 64
	keys    = 1 << 20 // 1M keys for dataset
)

type value64 = [eltSize]byte

func u64Key(v uint64) []byte {
	b := make([]byte, keySize)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// ds is a global dataset reused across benches to avoid reallocating
// large slices between runs.
var ds = func() []uint64 {
	r := rand.New(rand.NewSource(42))
	arr := make([]uint64, keys)
	for i := range arr {
		arr[i] = r.Uint64()
	}
	return arr
}()

func newTestTable(b *testing.B) *divchain.Table {
	tbl, err := divchain.New(keySize, eltSize, keys)
	if err != nil {
		b.Fatalf("divchain.New: %v", err)
	}
	return tbl
}

func BenchmarkInsert(b *testing.B) {
	tbl := newTestTable(b)
	var val value64
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := u64Key(ds[i&(keys-1)])
		tbl.Insert(key, val[:])
	}
	tbl.Free()
}

func BenchmarkSearch(b *testing.B) {
	tbl := newTestTable(b)
	var val value64
	for _, k := range ds {
		tbl.Insert(u64Key(k), val[:])
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := u64Key(ds[i&(keys-1)])
		_, _ = tbl.Search(key)
	}
	tbl.Free()
}

func newTestTableMT(b *testing.B) *divchainmt.TableMT {
	tbl, err := divchainmt.New(keySize, eltSize, keys, divchainmt.WithNumLocks(64))
	if err != nil {
		b.Fatalf("divchainmt.New: %v", err)
	}
	return tbl
}

func BenchmarkMTInsertBatch(b *testing.B) {
	tbl := newTestTableMT(b)
	var val value64
	const batchSize = 128
	b.ReportAllocs()
	b.ResetTimer()
	pairs := make([]divchainmt.Pair, batchSize)
	for i := 0; i < b.N; i += batchSize {
		n := batchSize
		if i+n > b.N {
			n = b.N - i
		}
		for j := 0; j < n; j++ {
			pairs[j] = divchainmt.Pair{Key: u64Key(ds[(i+j)&(keys-1)]), Value: val[:]}
		}
		tbl.Insert(pairs[:n])
	}
	tbl.Free()
}

func BenchmarkMTSearchParallel(b *testing.B) {
	tbl := newTestTableMT(b)
	var val value64
	pairs := make([]divchainmt.Pair, keys)
	for i, k := range ds {
		pairs[i] = divchainmt.Pair{Key: u64Key(k), Value: val[:]}
	}
	tbl.Insert(pairs)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		idx := rand.Intn(keys)
		for pb.Next() {
			idx = (idx + 1) & (keys - 1)
			_, _ = tbl.Search(u64Key(ds[idx]))
		}
	})
	tbl.Free()
}
