package divchainmt

// config.go follows the same functional-option shape as
// pkg/divchain/config.go (itself lifted from the teacher's
// pkg/config.go), with one addition: WithNumLocks, sizing the
// slot-group lock stripe spec.md §4.5 requires.
//
// © 2025 divchain authors. MIT License.

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/halvardsson/divchain/internal/primeschedule"
	"github.com/halvardsson/divchain/internal/unsafehelpers"
)

// Option configures a TableMT at construction time.
type Option func(*config)

type config struct {
	minNum    uint64
	alphaN    primeschedule.Word
	logAlphaD uint
	alignment int
	numLocks  int

	cmpKey  CmpKey
	rdcKey  RdcKey
	freeElt FreeElt

	logger   *zap.Logger
	registry *prometheus.Registry
	name     string
}

func defaultConfig(minNum uint64) *config {
	return &config{
		minNum:    minNum,
		alphaN:    1,
		logAlphaD: 1,
		alignment: 1,
		numLocks:  16,
		cmpKey:    DefaultCmpKey,
		rdcKey:    DefaultKeyReducer,
		logger:    zap.NewNop(),
		name:      "default",
	}
}

// WithLoadFactor overrides the default load-factor bound, expressed as
// alphaN / 2^logAlphaD per spec.md §3.
func WithLoadFactor(alphaN primeschedule.Word, logAlphaD uint) Option {
	return func(c *config) {
		c.alphaN = alphaN
		c.logAlphaD = logAlphaD
	}
}

// WithAlignment sets the value-area alignment.
func WithAlignment(alignment int) Option {
	return func(c *config) {
		if alignment > 0 {
			c.alignment = alignment
		}
	}
}

// WithNumLocks sets the number of slot-group locks (spec.md §4.5's
// num_locks). Slot ix is guarded by lock ix mod num_locks.
func WithNumLocks(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.numLocks = n
		}
	}
}

// WithCmpKey overrides the default byte-wise key comparator.
func WithCmpKey(cmp CmpKey) Option {
	return func(c *config) {
		if cmp != nil {
			c.cmpKey = cmp
		}
	}
}

// WithRdcKey overrides the default little-endian word-sum key reduction.
func WithRdcKey(rdc RdcKey) Option {
	return func(c *config) {
		if rdc != nil {
			c.rdcKey = rdc
		}
	}
}

// WithFreeElt registers a callback invoked on a value area when its node
// is overwritten by Insert or removed by Delete.
func WithFreeElt(free FreeElt) Option {
	return func(c *config) {
		c.freeElt = free
	}
}

// WithLogger plugs an external zap.Logger. The hot path never logs; only
// grow/rehash and schedule exhaustion do.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics collection for this table.
func WithMetrics(reg *prometheus.Registry, name string) Option {
	return func(c *config) {
		c.registry = reg
		if name != "" {
			c.name = name
		}
	}
}

func applyOptions(c *config, opts []Option) error {
	for _, opt := range opts {
		opt(c)
	}
	if _, ok := primeschedule.NewLoadBound(c.alphaN, c.logAlphaD); !ok {
		return errInvalidLoadFactor
	}
	if c.alignment <= 0 || !unsafehelpers.IsPowerOfTwo(uintptr(c.alignment)) {
		return errInvalidAlignment
	}
	if c.numLocks <= 0 {
		return errInvalidNumLocks
	}
	return nil
}

var (
	errInvalidKeySize    = errors.New("divchainmt: key_size must be > 0")
	errInvalidEltSize    = errors.New("divchainmt: elt_size must be >= 0")
	errInvalidLoadFactor = errors.New("divchainmt: alpha_n must be > 0 and log_alpha_d must be in (0, 64)")
	errInvalidAlignment  = errors.New("divchainmt: alignment must be a power of two")
	errInvalidNumLocks   = errors.New("divchainmt: num_locks must be > 0")
)
