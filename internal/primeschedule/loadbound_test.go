package primeschedule

import (
	"math/big"
	"testing"
)

// bigMulShift computes floor((a*b)>>shift) using arbitrary-precision
// arithmetic, saturating at MaxUint64, as an independent oracle for
// mulShiftSat.
func bigMulShift(a, b Word, shift uint) Word {
	prod := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	prod.Rsh(prod, shift)
	max := new(big.Int).SetUint64(^Word(0))
	if prod.Cmp(max) > 0 {
		return ^Word(0)
	}
	return prod.Uint64()
}

func TestNewLoadBoundValidation(t *testing.T) {
	if _, ok := NewLoadBound(0, 1); ok {
		t.Fatalf("alphaN=0 should be rejected")
	}
	if _, ok := NewLoadBound(1, 0); ok {
		t.Fatalf("logAlphaD=0 should be rejected")
	}
	if _, ok := NewLoadBound(1, 64); ok {
		t.Fatalf("logAlphaD>=64 should be rejected")
	}
	if _, ok := NewLoadBound(1, 1); !ok {
		t.Fatalf("alphaN=1, logAlphaD=1 should be accepted")
	}
}

func TestBoundAlphaOne(t *testing.T) {
	// alpha = 1/2^0 is invalid (logAlphaD must be > 0); approximate alpha=1
	// via alphaN=2, logAlphaD=1 (2/2 == 1).
	lb, ok := NewLoadBound(2, 1)
	if !ok {
		t.Fatalf("expected valid load bound")
	}
	if got := lb.Bound(1543); got != 1543 {
		t.Fatalf("expected bound == count for alpha=1, got %d", got)
	}
}

func TestBoundSmallAlpha(t *testing.T) {
	// alpha = 1/1024
	lb, _ := NewLoadBound(1, 10)
	if got := lb.Bound(2048); got != 2 {
		t.Fatalf("expected 2048/1024 = 2, got %d", got)
	}
}

func TestBoundSaturatesOnOverflow(t *testing.T) {
	lb, _ := NewLoadBound(^Word(0), 1) // alpha close to MaxUint64/2
	got := lb.Bound(^Word(0))
	if got != ^Word(0) {
		t.Fatalf("expected saturation to word max, got %d", got)
	}
}

func TestMulShiftSatAgainstBigArithmetic(t *testing.T) {
	cases := []struct {
		a, b  Word
		shift uint
	}{
		{0, 0, 0},
		{1, 1, 0},
		{1543, 1, 0},
		{1 << 40, 1 << 40, 10},
		{^Word(0), ^Word(0), 0},
		{^Word(0), ^Word(0), 63},
		{12345, 6789, 5},
	}
	for _, c := range cases {
		got := mulShiftSat(c.a, c.b, c.shift)
		want := bigMulShift(c.a, c.b, c.shift)
		if got != want {
			t.Fatalf("mulShiftSat(%d,%d,%d) = %d, want %d", c.a, c.b, c.shift, got, want)
		}
	}
}
