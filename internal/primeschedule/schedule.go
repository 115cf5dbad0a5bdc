// Package primeschedule implements the prime-modulus schedule and the
// integer-only load-factor bound used to size a division-method chaining
// hash table across grow steps.
//
// The schedule is a fixed, monotonically increasing table of primes,
// deliberately spaced to roughly double from step to step while staying
// clear of round numbers (powers of two and powers of ten) that would make
// the division-method hash behave pathologically for keys or key-derived
// values clustered around those boundaries. It is generated once, at
// package init, the way the teacher's internal/genring.Ring precomputes its
// generation ring up front rather than growing it lazily — except the
// schedule's "ring" only ever advances forward; it never wraps.
//
// © 2025 divchain authors. MIT License.
package primeschedule

import (
	"math"
	"math/big"
)

// Word is the machine word type slot counts and hashed keys are expressed
// in. Go does not expose a host word width the way C does, so — unlike the
// 16-bit-stride `build(ix)` reconstruction spec.md §4.2 describes for
// portability across native word widths — this schedule is generated
// directly as uint64 and relies on Go's fixed-width integer types for
// determinism across hosts.
type Word = uint64

// firstEntry and lastEntryBound bracket the schedule per spec.md §2: the
// first entry is approximately 1543, the last approximately 1.6e19.
const (
	firstEntry     = 1543
	lastEntryBound = 16_000_000_000_000_000_000 // ~1.6e19
)

// proximityEpsilon is the minimum fractional distance a schedule entry must
// keep from the nearest power of two and the nearest power of ten.
const proximityEpsilon = 0.01

// Schedule is the ordered, immutable list of prime slot counts P0 < P1 <
// ... used to size a table across grow steps.
type Schedule struct {
	primes []Word
}

// global is the single schedule instance every table shares; it is pure
// data and safe for concurrent read-only use once built.
var global = build()

// Default returns the shared, process-wide prime schedule.
func Default() *Schedule { return global }

// Len reports how many entries the schedule holds.
func (s *Schedule) Len() int { return len(s.primes) }

// At returns the ix-th prime. The caller must first check
// !Exhausted(ix); At panics on an out-of-range index, mirroring the
// "undefined behaviour outside documented parameter ranges" rule of
// spec.md §7.
func (s *Schedule) At(ix int) Word { return s.primes[ix] }

// Exhausted reports whether ix is past the end of the schedule — the
// single "exhausted" flag spec.md §9's Open Question asks reimplementations
// to fold the original two separate guards into.
func (s *Schedule) Exhausted(ix int) bool { return ix < 0 || ix >= len(s.primes) }

// NextIx advances ix by one step. The caller must check
// Exhausted(NextIx(ix)) before using the result as an index.
func (s *Schedule) NextIx(ix int) int { return ix + 1 }

// FirstIxAtLeast returns the smallest schedule index ix such that
// s.At(ix) >= minCount. It returns (index, true), or (len(s.primes), false) if even
// the largest schedule entry is smaller than minCount (schedule exhausted
// before the table could reach its requested minimum).
func (s *Schedule) FirstIxAtLeast(minCount Word) (int, bool) {
	for ix, p := range s.primes {
		if p >= minCount {
			return ix, true
		}
	}
	return len(s.primes), false
}

// build constructs the schedule once at package init. Candidates are
// generated by approximately doubling from firstEntry and tested for
// primality with math/big's Baillie-PSW-backed ProbablyPrime, which is the
// standard library's primality test and — since there is no third-party
// big-integer/number-theory library anywhere in the retrieved example
// pack — the justified stdlib choice for this one-time, cold-path table
// construction. (mul_alpha_sat itself, the actual per-Insert hot path, does
// not use math/big; see loadbound.go.)
func build() *Schedule {
	var primes []Word
	target := float64(firstEntry)
	for target <= float64(lastEntryBound) {
		p := nextSuitablePrime(uint64(target))
		if p == 0 {
			break
		}
		primes = append(primes, p)
		if p > math.MaxUint64/2 {
			break // next doubling would overflow uint64
		}
		target = float64(p) * 2
	}
	return &Schedule{primes: primes}
}

// nextSuitablePrime scans odd candidates at or above from, skipping any
// that land too close to a power of two or a power of ten, and returns the
// first one that passes a primality test. It returns 0 if the search would
// overflow uint64 before finding a candidate.
func nextSuitablePrime(from uint64) uint64 {
	if from < 3 {
		from = 3
	}
	c := from | 1 // start on an odd number
	for {
		if c < from { // wrapped past MaxUint64
			return 0
		}
		if farFromRoundNumbers(c) && big.NewInt(0).SetUint64(c).ProbablyPrime(20) {
			return c
		}
		if c > math.MaxUint64-2 {
			return 0
		}
		c += 2
	}
}

// farFromRoundNumbers reports whether c keeps at least proximityEpsilon
// relative distance from both the nearest power of two and the nearest
// power of ten, per spec.md §3's "deliberately avoiding proximity to
// powers of 2 and 10".
func farFromRoundNumbers(c uint64) bool {
	return relDist(float64(c), nearestPow2(c)) >= proximityEpsilon &&
		relDist(float64(c), nearestPow10(c)) >= proximityEpsilon
}

func relDist(c, round float64) float64 {
	if round == 0 {
		return 1
	}
	d := c - round
	if d < 0 {
		d = -d
	}
	return d / round
}

func nearestPow2(c uint64) float64 {
	lo := math.Floor(math.Log2(float64(c)))
	p1 := math.Pow(2, lo)
	p2 := math.Pow(2, lo+1)
	if math.Abs(float64(c)-p1) < math.Abs(float64(c)-p2) {
		return p1
	}
	return p2
}

func nearestPow10(c uint64) float64 {
	lo := math.Floor(math.Log10(float64(c)))
	p1 := math.Pow(10, lo)
	p2 := math.Pow(10, lo+1)
	if math.Abs(float64(c)-p1) < math.Abs(float64(c)-p2) {
		return p1
	}
	return p2
}
