// Package divchain implements the single-threaded division-method chaining
// hash table of spec.md §4.4: a slot array of internal/chain rings indexed
// by hash(key) mod count, where count is drawn from
// internal/primeschedule's prime table and grown, never shrunk, as the
// table fills.
//
// Table is strictly single-threaded — callers must externally serialize
// access, exactly as spec.md §5 requires. See pkg/divchainmt for the
// concurrent variant.
//
// © 2025 divchain authors. MIT License.
package divchain

import (
	"errors"

	"go.uber.org/zap"

	"github.com/halvardsson/divchain/internal/arena"
	"github.com/halvardsson/divchain/internal/chain"
	"github.com/halvardsson/divchain/internal/primeschedule"
)

// Table is a single-threaded division-method chaining hash table keyed by
// fixed-size byte blocks and storing fixed-size byte-block values.
type Table struct {
	keySize   int
	eltSize   int
	eltAlign  int
	cmpKey    CmpKey
	rdcKey    RdcKey
	freeElt   FreeElt

	schedule  *primeschedule.Schedule
	loadBound primeschedule.LoadBound

	countIx    int
	count      primeschedule.Word
	numElts    uint64
	maxNumElts primeschedule.Word

	slots []chain.Head
	arena *arena.Arena

	grows             uint64
	scheduleWarned    bool
	logger            *zap.Logger
	metrics           metricsSink
}

// Snapshot is a point-in-time read of a Table's health, suitable for
// serializing as JSON at a debug HTTP endpoint such as the
// /debug/divchain/snapshot path that cmd/divchain-inspect polls.
type Snapshot struct {
	Count             uint64 `json:"count"`
	NumElts           uint64 `json:"num_elts"`
	MaxNumElts        uint64 `json:"max_num_elts"`
	CountIx           int    `json:"count_ix"`
	ScheduleExhausted bool   `json:"schedule_exhausted"`
	Grows             uint64 `json:"grows"`
}

// New constructs a Table sized so that its load-factor bound is at least
// minNum, per spec.md §4.4's init: count_ix starts at 0 and advances until
// max_num_elts >= minNum or the prime schedule is exhausted.
func New(keySize, eltSize int, minNum uint64, opts ...Option) (*Table, error) {
	if keySize <= 0 {
		return nil, errInvalidKeySize
	}
	if eltSize < 0 {
		return nil, errInvalidEltSize
	}

	cfg := defaultConfig(minNum)
	if err := applyOptions(cfg, opts); err != nil {
		return nil, err
	}

	loadBound, ok := primeschedule.NewLoadBound(cfg.alphaN, cfg.logAlphaD)
	if !ok {
		return nil, errInvalidLoadFactor
	}

	schedule := primeschedule.Default()
	if schedule.Len() == 0 {
		return nil, errors.New("divchain: prime schedule is empty")
	}

	ix := 0
	for {
		count := schedule.At(ix)
		if loadBound.Bound(count) >= minNum {
			break
		}
		next := schedule.NextIx(ix)
		if schedule.Exhausted(next) {
			break
		}
		ix = next
	}

	t := &Table{
		keySize:    keySize,
		eltSize:    eltSize,
		eltAlign:   cfg.alignment,
		cmpKey:     cfg.cmpKey,
		rdcKey:     cfg.rdcKey,
		freeElt:    cfg.freeElt,
		schedule:   schedule,
		loadBound:  loadBound,
		countIx:    ix,
		count:      schedule.At(ix),
		maxNumElts: loadBound.Bound(schedule.At(ix)),
		slots:      make([]chain.Head, schedule.At(ix)),
		arena:      arena.New(),
		logger:     cfg.logger,
		metrics:    newMetricsSink(cfg.registry, cfg.name),
	}
	t.metrics.setGauges(uint64(t.count), t.numElts, uint64(t.maxNumElts))
	return t, nil
}

// AlignElt records the desired value-area alignment for nodes allocated by
// subsequent inserts. It does not retroactively realign existing nodes, and
// grow moves existing nodes without reallocating them, so they keep the
// alignment they were allocated with.
func (t *Table) AlignElt(alignment int) {
	if alignment > 0 {
		t.eltAlign = alignment
	}
}

// hash returns hash(key) = std_key(key) mod count, per spec.md §4.4.
func (t *Table) hash(key []byte) uint64 {
	return t.rdcKey(key) % t.count
}

// Insert inserts key/value if key is absent, or overwrites the existing
// value (invoking FreeElt on the old one first, if configured) if present.
// Insert always succeeds; a grow is attempted whenever the insert pushes
// numElts past maxNumElts and the prime schedule is not yet exhausted.
func (t *Table) Insert(key, value []byte) {
	ix := t.hash(key)
	head := &t.slots[ix]

	if n := chain.SearchKey(head, key, t.cmpKey); n != nil {
		if t.freeElt != nil {
			t.freeElt(n.Elt)
		}
		copy(n.Elt, value)
		return
	}

	chain.PrependNew(head, t.arena, key, value, t.keySize, t.eltSize, t.eltAlign)
	t.numElts++
	t.metrics.incInsert()

	if t.numElts > uint64(t.maxNumElts) {
		t.grow()
	}
	t.metrics.setGauges(uint64(t.count), t.numElts, uint64(t.maxNumElts))
}

// Search returns the value area for key, or (nil, false) if key is absent.
// The returned slice aliases the node's storage directly; per spec.md §8's
// Address Stability property it remains valid until key is removed/deleted
// or the table is freed, even across an intervening grow.
func (t *Table) Search(key []byte) ([]byte, bool) {
	ix := t.hash(key)
	n := chain.SearchKey(&t.slots[ix], key, t.cmpKey)
	if n == nil {
		t.metrics.incSearchMiss()
		return nil, false
	}
	t.metrics.incSearchHit()
	return n.Elt, true
}

// Remove detaches key's node (if present), copies its value into out (if
// out is non-nil), and releases the node WITHOUT invoking FreeElt — per
// spec.md §4.4, ownership of the value passes to the caller. Reports
// whether key was present.
func (t *Table) Remove(key []byte, out []byte) bool {
	ix := t.hash(key)
	head := &t.slots[ix]
	n := chain.SearchKey(head, key, t.cmpKey)
	if n == nil {
		return false
	}
	if out != nil {
		copy(out, n.Elt)
	}
	chain.Delete(head, t.arena, n, nil)
	t.numElts--
	t.metrics.incRemove()
	t.metrics.setGauges(uint64(t.count), t.numElts, uint64(t.maxNumElts))
	return true
}

// Delete detaches and releases key's node (if present), invoking FreeElt on
// its value area first. Reports whether key was present.
func (t *Table) Delete(key []byte) bool {
	ix := t.hash(key)
	head := &t.slots[ix]
	n := chain.SearchKey(head, key, t.cmpKey)
	if n == nil {
		return false
	}
	chain.Delete(head, t.arena, n, t.freeElt)
	t.numElts--
	t.metrics.incDelete()
	t.metrics.setGauges(uint64(t.count), t.numElts, uint64(t.maxNumElts))
	return true
}

// Free releases every node (invoking FreeElt on each value area) and then
// the slot array and backing arena. The Table must not be used afterwards.
func (t *Table) Free() {
	for i := range t.slots {
		chain.Free(&t.slots[i], t.arena, t.freeElt)
	}
	t.arena.Free()
	t.slots = nil
	t.numElts = 0
}

// Len reports the number of live elements.
func (t *Table) Len() uint64 { return t.numElts }

// Snapshot returns a point-in-time read of the table's health.
func (t *Table) Snapshot() Snapshot {
	nextIx := t.schedule.NextIx(t.countIx)
	return Snapshot{
		Count:             uint64(t.count),
		NumElts:           t.numElts,
		MaxNumElts:        uint64(t.maxNumElts),
		CountIx:           t.countIx,
		ScheduleExhausted: t.schedule.Exhausted(nextIx),
		Grows:             t.grows,
	}
}

// grow implements spec.md §4.4's grow algorithm: advance countIx while
// numElts exceeds maxNumElts and the schedule is not exhausted, then — if
// count actually changed — rehash every live node into a freshly sized
// slot array. Nodes are spliced out of their old chain and into their new
// one in place; none are reallocated, preserving every outstanding
// pointer's address.
func (t *Table) grow() {
	startIx := t.countIx
	for uint64(t.maxNumElts) < t.numElts {
		next := t.schedule.NextIx(t.countIx)
		if t.schedule.Exhausted(next) {
			if !t.scheduleWarned {
				t.scheduleWarned = true
				t.logger.Warn("divchain: prime schedule exhausted, load factor now unbounded",
					zap.Int("count_ix", t.countIx),
					zap.Uint64("count", uint64(t.count)),
					zap.Uint64("num_elts", t.numElts),
				)
			}
			break
		}
		t.countIx = next
		t.count = t.schedule.At(next)
		t.maxNumElts = t.loadBound.Bound(t.count)
	}

	if t.countIx == startIx {
		return
	}

	oldSlots := t.slots
	newSlots := make([]chain.Head, t.count)
	for i := range oldSlots {
		old := &oldSlots[i]
		for {
			n := old.Node()
			if n == nil {
				break
			}
			chain.Remove(old, n)
			newIx := t.hash(n.Key)
			chain.Prepend(&newSlots[newIx], n)
		}
	}
	t.slots = newSlots
	t.grows++
	t.metrics.incGrow()
	t.logger.Debug("divchain: grow complete",
		zap.Int("count_ix", t.countIx),
		zap.Uint64("count", uint64(t.count)),
		zap.Uint64("num_elts", t.numElts),
	)
}
