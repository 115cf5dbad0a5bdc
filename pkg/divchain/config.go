package divchain

// config.go defines the internal configuration object and the functional
// options accepted by New. The shape — a hidden config struct mutated by a
// slice of Option funcs, defaulted then validated in one place — is lifted
// directly from the teacher's pkg/config.go.
//
// © 2025 divchain authors. MIT License.

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/halvardsson/divchain/internal/primeschedule"
	"github.com/halvardsson/divchain/internal/unsafehelpers"
)

// Option configures a Table at construction time.
type Option func(*config)

type config struct {
	minNum    uint64
	alphaN    primeschedule.Word
	logAlphaD uint
	alignment int

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
		logAlphaD: 1, // alpha = 1/2 by default
		alignment: 1,
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

// WithAlignment sets the initial value-area alignment (spec.md §4.4's
// align_elt). Equivalent to calling Table.AlignElt immediately after New.
func WithAlignment(alignment int) Option {
	return func(c *config) {
		if alignment > 0 {
			c.alignment = alignment
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
// is overwritten by Insert or removed by Delete (never by Remove, whose
// contract hands ownership of the value back to the caller).
func WithFreeElt(free FreeElt) Option {
	return func(c *config) {
		c.freeElt = free
	}
}

// WithLogger plugs an external zap.Logger. The hot path (Insert, Search,
// Remove, Delete) never logs; only grow/rehash and schedule exhaustion do.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics collection for this table. The
// name labels the table's series so multiple tables can share one
// registry without collisions.
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
	return nil
}

var (
	errInvalidKeySize     = errors.New("divchain: key_size must be > 0")
	errInvalidEltSize     = errors.New("divchain: elt_size must be >= 0")
	errInvalidLoadFactor  = errors.New("divchain: alpha_n must be > 0 and log_alpha_d must be in (0, 64)")
	errInvalidAlignment   = errors.New("divchain: alignment must be a power of two")
)
