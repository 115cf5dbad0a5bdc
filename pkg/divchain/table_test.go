package divchain

import (
	"encoding/binary"
	"testing"
)

func u32(i uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, i)
	return b
}

func u64(i uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, i)
	return b
}

func getU64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// TestScenarioAlphaOneThousandKeys exercises spec.md §8 scenario 1.
func TestScenarioAlphaOneThousandKeys(t *testing.T) {
	// alpha=1 needs alphaN/2^logAlphaD == 1; use alphaN=2, logAlphaD=1.
	tbl, err := New(4, 8, 0, WithLoadFactor(2, 1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := uint32(0); i < 1000; i++ {
		tbl.Insert(u32(i), u64(uint64(i)*uint64(i)))
	}
	v, ok := tbl.Search(u32(500))
	if !ok || getU64(v) != 250000 {
		t.Fatalf("expected search(500) == 250000, got %v ok=%v", v, ok)
	}
	if tbl.Len() != 1000 {
		t.Fatalf("expected num_elts == 1000, got %d", tbl.Len())
	}
	if tbl.count < 1000 {
		t.Fatalf("expected count >= 1000, got %d", tbl.count)
	}
}

// TestScenarioRepeatedOverwrite exercises spec.md §8 scenario 2.
func TestScenarioRepeatedOverwrite(t *testing.T) {
	tbl, err := New(4, 8, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	key := []byte{0xef, 0xbe, 0xad, 0xde} // "deadbeef" little-endian nibble stand-in, fixed 4 bytes
	tbl.Insert(key, u64(0))
	if tbl.Len() != 1 {
		t.Fatalf("expected 1 element after first insert")
	}
	tbl.Insert(key, u64(1))
	if tbl.Len() != 1 {
		t.Fatalf("expected num_elts to stay 1 after overwrite")
	}
	tbl.Insert(key, u64(2))
	if tbl.Len() != 1 {
		t.Fatalf("expected num_elts to stay 1 after second overwrite")
	}
	v, ok := tbl.Search(key)
	if !ok || getU64(v) != 2 {
		t.Fatalf("expected search == 2, got %v ok=%v", v, ok)
	}
}

// TestScenarioLargeKeyCustomReducer exercises spec.md §8 scenario 3.
func TestScenarioLargeKeyCustomReducer(t *testing.T) {
	reducer := func(key []byte) uint64 {
		var sum uint64
		for _, b := range key {
			sum += uint64(b)
		}
		return sum
	}
	tbl, err := New(64, 8, 10000, WithRdcKey(reducer))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := uint64(0); i < 10000; i++ {
		key := make([]byte, 64)
		binary.LittleEndian.PutUint64(key[56:], i)
		tbl.Insert(key, u64(i))
	}
	if tbl.Len() != 10000 {
		t.Fatalf("expected 10000 elements, got %d", tbl.Len())
	}
	for i := uint64(0); i < 10000; i += 137 {
		key := make([]byte, 64)
		binary.LittleEndian.PutUint64(key[56:], i)
		v, ok := tbl.Search(key)
		if !ok || getU64(v) != i {
			t.Fatalf("key %d not retrievable (ok=%v)", i, ok)
		}
	}
}

// TestScenarioForcedSmallCountRepeatedKey exercises spec.md §8 scenario 4.
func TestScenarioForcedSmallCountRepeatedKey(t *testing.T) {
	for k := 0; k <= 8; k++ {
		keySize := 1 << k
		tbl, err := New(keySize, 4, 0, WithLoadFactor(1, 10)) // alpha ~= 0.001
		if err != nil {
			t.Fatalf("New(keySize=%d): %v", keySize, err)
		}
		if tbl.countIx != 0 {
			t.Fatalf("keySize=%d: expected count_ix == 0, got %d", keySize, tbl.countIx)
		}
		if tbl.count != 1543 {
			t.Fatalf("keySize=%d: expected count == 1543, got %d", keySize, tbl.count)
		}
		key := make([]byte, keySize)
		key[0] = 0x7f
		for v := 0; v < 5; v++ {
			tbl.Insert(key, u64(uint64(v)))
		}
		if tbl.Len() != 1 {
			t.Fatalf("keySize=%d: expected num_elts == 1 after repeated inserts, got %d", keySize, tbl.Len())
		}
		var out [8]byte
		if !tbl.Delete(key) {
			t.Fatalf("keySize=%d: expected key present before delete", keySize)
		}
		_ = out
		if tbl.Len() != 0 {
			t.Fatalf("keySize=%d: expected num_elts == 0 after delete, got %d", keySize, tbl.Len())
		}
		if _, ok := tbl.Search(key); ok {
			t.Fatalf("keySize=%d: expected search miss after delete", keySize)
		}
	}
}

func TestRoundTripRemove(t *testing.T) {
	tbl, _ := New(4, 8, 0)
	tbl.Insert(u32(1), u64(42))
	var out [8]byte
	if !tbl.Remove(u32(1), out[:]) {
		t.Fatalf("expected key present")
	}
	if getU64(out[:]) != 42 {
		t.Fatalf("expected removed value 42, got %d", getU64(out[:]))
	}
	if _, ok := tbl.Search(u32(1)); ok {
		t.Fatalf("expected key absent after remove")
	}
}

func TestLoadFactorBoundAfterGrow(t *testing.T) {
	tbl, _ := New(4, 8, 0, WithLoadFactor(3, 2)) // alpha = 0.75
	for i := uint32(0); i < 50000; i++ {
		tbl.Insert(u32(i), u64(uint64(i)))
	}
	snap := tbl.Snapshot()
	if !snap.ScheduleExhausted && snap.NumElts > snap.MaxNumElts {
		t.Fatalf("expected num_elts <= max_num_elts post-grow, got %d > %d", snap.NumElts, snap.MaxNumElts)
	}
}

func TestGrowPreservesContentsAndAddresses(t *testing.T) {
	tbl, _ := New(4, 8, 0, WithLoadFactor(2, 1)) // alpha = 1, grows aggressively

	type pinned struct {
		key []byte
		ptr []byte
	}
	var pins []pinned
	for i := uint32(0); i < 2000; i++ {
		tbl.Insert(u32(i), u64(uint64(i)))
		if i%200 == 0 {
			v, ok := tbl.Search(u32(i))
			if !ok {
				t.Fatalf("expected key %d to be present right after insert", i)
			}
			pins = append(pins, pinned{key: u32(i), ptr: v})
		}
	}
	for _, p := range pins {
		v, ok := tbl.Search(p.key)
		if !ok {
			t.Fatalf("key missing after subsequent grows")
		}
		if &v[0] != &p.ptr[0] {
			t.Fatalf("node address changed across grow: address stability violated")
		}
		if getU64(v) != getU64(p.ptr) {
			t.Fatalf("value corrupted across grow")
		}
	}
}

func TestFreeEltInvokedOnOverwriteAndDelete(t *testing.T) {
	var freedCount int
	tbl, _ := New(4, 8, 0, WithFreeElt(func(elt []byte) { freedCount++ }))
	tbl.Insert(u32(1), u64(1))
	tbl.Insert(u32(1), u64(2)) // overwrite should free the old value
	if freedCount != 1 {
		t.Fatalf("expected FreeElt called once on overwrite, got %d", freedCount)
	}
	tbl.Delete(u32(1))
	if freedCount != 2 {
		t.Fatalf("expected FreeElt called once on delete, got %d", freedCount)
	}
}

func TestRemoveDoesNotInvokeFreeElt(t *testing.T) {
	var freedCount int
	tbl, _ := New(4, 8, 0, WithFreeElt(func(elt []byte) { freedCount++ }))
	tbl.Insert(u32(1), u64(1))
	var out [8]byte
	tbl.Remove(u32(1), out[:])
	if freedCount != 0 {
		t.Fatalf("expected Remove to never invoke FreeElt, got %d calls", freedCount)
	}
}

func TestKeyUniquenessInvariant(t *testing.T) {
	tbl, _ := New(4, 8, 0)
	for i := uint32(0); i < 500; i++ {
		tbl.Insert(u32(i%100), u64(uint64(i)))
	}
	if tbl.Len() != 100 {
		t.Fatalf("expected 100 unique keys, got %d", tbl.Len())
	}
}

func TestFreeResetsTable(t *testing.T) {
	tbl, _ := New(4, 8, 0)
	for i := uint32(0); i < 10; i++ {
		tbl.Insert(u32(i), u64(uint64(i)))
	}
	tbl.Free()
	if tbl.Len() != 0 {
		t.Fatalf("expected 0 elements after Free")
	}
}

func TestInvalidConstructorArgs(t *testing.T) {
	if _, err := New(0, 8, 0); err == nil {
		t.Fatalf("expected error for key_size == 0")
	}
	if _, err := New(4, 8, 0, WithLoadFactor(0, 1)); err == nil {
		t.Fatalf("expected error for alpha_n == 0")
	}
	if _, err := New(4, 8, 0, WithLoadFactor(1, 0)); err == nil {
		t.Fatalf("expected error for log_alpha_d == 0")
	}
}
