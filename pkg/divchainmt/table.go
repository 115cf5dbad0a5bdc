// Package divchainmt implements the multithreaded division-method
// chaining hash table of spec.md §4.5: the same slot-array-of-rings data
// model as pkg/divchain, extended with a reader/writer rehash lock, a
// striped array of slot-group locks, and a pending-elements counter that
// publishes a batch's net size change atomically once the batch completes.
//
// © 2025 divchain authors. MIT License.
package divchainmt

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/halvardsson/divchain/internal/arena"
	"github.com/halvardsson/divchain/internal/chain"
	"github.com/halvardsson/divchain/internal/primeschedule"
)

// Pair is one (key, value) entry of a batched Insert call. Key must be
// exactly the table's key_size bytes and Value exactly its elt_size bytes.
type Pair struct {
	Key   []byte
	Value []byte
}

// TableMT is a multithreaded division-method chaining hash table. Unlike
// pkg/divchain.Table, it is safe for concurrent use by multiple
// goroutines without any external synchronization.
type TableMT struct {
	keySize  int
	eltSize  int
	eltAlign int
	cmpKey   CmpKey
	rdcKey   RdcKey
	freeElt  FreeElt

	schedule  *primeschedule.Schedule
	loadBound primeschedule.LoadBound

	// rehashMu distinguishes the reader phase (table structure stable —
	// inserts/searches/removes proceed under per-slot-group locks) from the
	// writer phase (one goroutine rehashing with exclusive access). Lock
	// order is always rehashMu before a slot-group lock; never more than
	// one slot-group lock held at a time.
	rehashMu sync.RWMutex

	countIx    int
	count      primeschedule.Word
	maxNumElts primeschedule.Word

	locks []sync.Mutex
	slots []chain.Head

	// arenas holds one arena per slot-group lock, mirroring the teacher's
	// pkg/shard.go (each shard owns its own arena under its own lock).
	// A single shared arena would let two goroutines inserting into
	// different lock groups race on a.off/a.pages/a.freeList while each
	// holding only its own locks[li] — giving every group its own arena
	// makes arena access fall under the same mutual exclusion as the
	// slot-group lock that already guards the chain it belongs to.
	arenas []*arena.Arena

	// pendingMu/numElts implement spec.md §4.5's "pending-elements counter
	// modified under a dedicated mutex/condition": a batched Insert applies
	// every pair under its slot-group lock first, then publishes the
	// batch's net size delta here in one step, so num_elts only reaches its
	// post-batch value once every writer in the batch has finished.
	pendingMu sync.Mutex
	numElts   int64

	// grows and scheduleWarned are touched only while rehashMu is held
	// (writer mode from grow, reader mode from Snapshot), so they need no
	// lock of their own. growGroup is entered before rehashMu is taken and
	// relies on singleflight.Group's own internal locking.
	growGroup      singleflight.Group
	grows          uint64
	scheduleWarned bool
	logger         *zap.Logger
	metrics        metricsSink
}

// Snapshot is a point-in-time read of a TableMT's health.
type Snapshot struct {
	Count             uint64 `json:"count"`
	NumElts           uint64 `json:"num_elts"`
	MaxNumElts        uint64 `json:"max_num_elts"`
	CountIx           int    `json:"count_ix"`
	ScheduleExhausted bool   `json:"schedule_exhausted"`
	Grows             uint64 `json:"grows"`
}

// New constructs a TableMT sized so that its load-factor bound is at
// least minNum, exactly as pkg/divchain.New does, plus num_locks
// slot-group locks (default 16, overridden via WithNumLocks).
func New(keySize, eltSize int, minNum uint64, opts ...Option) (*TableMT, error) {
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

	t := &TableMT{
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
		locks:      make([]sync.Mutex, cfg.numLocks),
		slots:      make([]chain.Head, schedule.At(ix)),
		arenas:     newArenas(cfg.numLocks),
		logger:     cfg.logger,
		metrics:    newMetricsSink(cfg.registry, cfg.name),
	}
	t.metrics.setGauges(uint64(t.count), 0, uint64(t.maxNumElts))
	return t, nil
}

func (t *TableMT) hash(key []byte) uint64 {
	return t.rdcKey(key) % t.count
}

func (t *TableMT) lockIx(slotIx uint64) int {
	return int(slotIx % uint64(len(t.locks)))
}

// newArenas constructs one arena per slot-group lock.
func newArenas(numLocks int) []*arena.Arena {
	arenas := make([]*arena.Arena, numLocks)
	for i := range arenas {
		arenas[i] = arena.New()
	}
	return arenas
}

// Insert applies pairs in input order as a single batch: the call is the
// unit of publication per spec.md §4.5 — after it returns, every pair in
// the batch is visible to Search, and num_elts reflects the batch's net
// effect on table size. The last write of a given key within the batch
// wins; a key repeated across separate Insert calls is serialized by that
// key's slot-group lock.
func (t *TableMT) Insert(pairs []Pair) {
	t.rehashMu.RLock()
	delta := 0
	for _, p := range pairs {
		ix := t.hash(p.Key)
		li := t.lockIx(ix)
		t.locks[li].Lock()
		head := &t.slots[ix]
		if n := chain.SearchKey(head, p.Key, t.cmpKey); n != nil {
			if t.freeElt != nil {
				t.freeElt(n.Elt)
			}
			copy(n.Elt, p.Value)
		} else {
			chain.PrependNew(head, t.arenas[li], p.Key, p.Value, t.keySize, t.eltSize, t.eltAlign)
			delta++
		}
		t.locks[li].Unlock()
	}
	t.rehashMu.RUnlock()

	t.metrics.incInsert(len(pairs))

	t.pendingMu.Lock()
	t.numElts += int64(delta)
	numElts := t.numElts
	t.pendingMu.Unlock()

	if uint64(numElts) > uint64(t.maxNumEltsSnapshot()) {
		t.growOnce()
	}
	t.metrics.setGauges(uint64(t.countSnapshot()), uint64(numElts), uint64(t.maxNumEltsSnapshot()))
}

// maxNumEltsSnapshot and countSnapshot read fields a rehash writer mutates
// under rehashMu; readers take the lock in shared mode rather than relying
// on the caller already holding it, since Insert/Remove/Delete call these
// after releasing their own RLock.
func (t *TableMT) maxNumEltsSnapshot() primeschedule.Word {
	t.rehashMu.RLock()
	defer t.rehashMu.RUnlock()
	return t.maxNumElts
}

func (t *TableMT) countSnapshot() primeschedule.Word {
	t.rehashMu.RLock()
	defer t.rehashMu.RUnlock()
	return t.count
}

// Search returns the value area for key, or (nil, false) if absent. It
// acquires the rehash lock in reader mode for the duration of the lookup
// and the target slot-group lock for the chain walk, per spec.md §5's
// lock order, so it never observes a half-rehashed slot array.
func (t *TableMT) Search(key []byte) ([]byte, bool) {
	t.rehashMu.RLock()
	defer t.rehashMu.RUnlock()

	ix := t.hash(key)
	li := t.lockIx(ix)
	t.locks[li].Lock()
	defer t.locks[li].Unlock()

	n := chain.SearchKey(&t.slots[ix], key, t.cmpKey)
	if n == nil {
		t.metrics.incSearchMiss()
		return nil, false
	}
	t.metrics.incSearchHit()
	return n.Elt, true
}

// Remove detaches key's node (if present), copies its value into out (if
// non-nil), and releases the node without invoking FreeElt. Reports
// whether key was present.
func (t *TableMT) Remove(key []byte, out []byte) bool {
	t.rehashMu.RLock()
	ix := t.hash(key)
	li := t.lockIx(ix)
	t.locks[li].Lock()
	head := &t.slots[ix]
	n := chain.SearchKey(head, key, t.cmpKey)
	found := n != nil
	if found {
		if out != nil {
			copy(out, n.Elt)
		}
		chain.Delete(head, t.arenas[li], n, nil)
	}
	t.locks[li].Unlock()
	t.rehashMu.RUnlock()

	if found {
		t.pendingMu.Lock()
		t.numElts--
		numElts := t.numElts
		t.pendingMu.Unlock()
		t.metrics.incRemove()
		t.metrics.setGauges(uint64(t.countSnapshot()), uint64(numElts), uint64(t.maxNumEltsSnapshot()))
	}
	return found
}

// Delete detaches and releases key's node (if present), invoking FreeElt
// on its value area first. Reports whether key was present.
func (t *TableMT) Delete(key []byte) bool {
	t.rehashMu.RLock()
	ix := t.hash(key)
	li := t.lockIx(ix)
	t.locks[li].Lock()
	head := &t.slots[ix]
	n := chain.SearchKey(head, key, t.cmpKey)
	found := n != nil
	if found {
		chain.Delete(head, t.arenas[li], n, t.freeElt)
	}
	t.locks[li].Unlock()
	t.rehashMu.RUnlock()

	if found {
		t.pendingMu.Lock()
		t.numElts--
		numElts := t.numElts
		t.pendingMu.Unlock()
		t.metrics.incDelete()
		t.metrics.setGauges(uint64(t.countSnapshot()), uint64(numElts), uint64(t.maxNumEltsSnapshot()))
	}
	return found
}

// Len reports the number of live elements.
func (t *TableMT) Len() uint64 {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()
	return uint64(t.numElts)
}

// Snapshot returns a point-in-time read of the table's health.
func (t *TableMT) Snapshot() Snapshot {
	t.rehashMu.RLock()
	defer t.rehashMu.RUnlock()
	nextIx := t.schedule.NextIx(t.countIx)

	t.pendingMu.Lock()
	numElts := t.numElts
	t.pendingMu.Unlock()

	grows := t.grows

	return Snapshot{
		Count:             uint64(t.count),
		NumElts:           uint64(numElts),
		MaxNumElts:        uint64(t.maxNumElts),
		CountIx:           t.countIx,
		ScheduleExhausted: t.schedule.Exhausted(nextIx),
		Grows:             grows,
	}
}

// Free releases every node and the backing arena. The table must not be
// used afterward. Callers must ensure no other goroutine is still
// calling Insert/Search/Remove/Delete.
func (t *TableMT) Free() {
	for i := range t.slots {
		li := t.lockIx(uint64(i))
		chain.Free(&t.slots[i], t.arenas[li], t.freeElt)
	}
	for _, a := range t.arenas {
		a.Free()
	}
	t.slots = nil
	t.pendingMu.Lock()
	t.numElts = 0
	t.pendingMu.Unlock()
}

// growOnce implements spec.md §4.5 step 4's rehash coordination: exactly
// one goroutine performs the grow per saturation episode, grounded on the
// teacher's pkg/loader.go singleflight de-duplication of concurrent cache
// loads, repurposed here to de-duplicate concurrent grow triggers instead
// of concurrent loader invocations.
func (t *TableMT) growOnce() {
	start := time.Now()
	_, _, _ = t.growGroup.Do("grow", func() (any, error) {
		t.rehashMu.Lock()
		defer t.rehashMu.Unlock()

		t.pendingMu.Lock()
		numElts := t.numElts
		t.pendingMu.Unlock()

		if uint64(numElts) <= uint64(t.maxNumElts) {
			// Another writer already grew the table while this one waited
			// for the singleflight call; nothing left to do.
			return nil, nil
		}
		t.grow(uint64(numElts))
		return nil, nil
	})
	t.metrics.observeRehashWait(time.Since(start))
}

// grow advances countIx while numElts exceeds maxNumElts and the schedule
// is not exhausted, then — if count actually changed — rehashes every
// live node into a freshly sized slot array. The caller must hold
// rehashMu in writer mode; no slot-group lock is needed since the writer
// already has exclusive access to every slot.
func (t *TableMT) grow(numElts uint64) {
	startIx := t.countIx
	for uint64(t.maxNumElts) < numElts {
		next := t.schedule.NextIx(t.countIx)
		if t.schedule.Exhausted(next) {
			if !t.scheduleWarned {
				t.scheduleWarned = true
				t.logger.Warn("divchainmt: prime schedule exhausted, load factor now unbounded",
					zap.Int("count_ix", t.countIx),
					zap.Uint64("count", uint64(t.count)),
					zap.Uint64("num_elts", numElts),
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
	t.logger.Debug("divchainmt: grow complete",
		zap.Int("count_ix", t.countIx),
		zap.Uint64("count", uint64(t.count)),
		zap.Uint64("num_elts", numElts),
		zap.Uint64("grows", t.grows),
	)
}
