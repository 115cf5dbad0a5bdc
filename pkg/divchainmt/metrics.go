package divchainmt

// metrics.go mirrors pkg/divchain/metrics.go, following the teacher's
// pkg/metrics.go shape, with one addition (rehash-writer wait time) that
// matters only for the concurrent table.
//
// © 2025 divchain authors. MIT License.

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metricsSink interface {
	incInsert(n int)
	incSearchHit()
	incSearchMiss()
	incRemove()
	incDelete()
	incGrow()
	observeRehashWait(d time.Duration)
	setGauges(count, numElts, maxNumElts uint64)
}

type noopMetrics struct{}

func (noopMetrics) incInsert(int)                               {}
func (noopMetrics) incSearchHit()                                {}
func (noopMetrics) incSearchMiss()                               {}
func (noopMetrics) incRemove()                                   {}
func (noopMetrics) incDelete()                                   {}
func (noopMetrics) incGrow()                                     {}
func (noopMetrics) observeRehashWait(time.Duration)              {}
func (noopMetrics) setGauges(count, numElts, maxNumElts uint64) {}

type promMetrics struct {
	inserts    prometheus.Counter
	searchHits prometheus.Counter
	searchMiss prometheus.Counter
	removes    prometheus.Counter
	deletes    prometheus.Counter
	grows      prometheus.Counter
	rehashWait prometheus.Histogram
	count      prometheus.Gauge
	numElts    prometheus.Gauge
	maxNumElts prometheus.Gauge
}

func newPromMetrics(reg *prometheus.Registry, name string) *promMetrics {
	label := prometheus.Labels{"table": name}
	pm := &promMetrics{
		inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "divchainmt", Name: "inserts_total", Help: "Number of elements inserted via batched Insert.",
			ConstLabels: label,
		}),
		searchHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "divchainmt", Name: "search_hits_total", Help: "Number of Search calls that found a key.",
			ConstLabels: label,
		}),
		searchMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "divchainmt", Name: "search_misses_total", Help: "Number of Search calls that missed.",
			ConstLabels: label,
		}),
		removes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "divchainmt", Name: "removes_total", Help: "Number of Remove calls that found a key.",
			ConstLabels: label,
		}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "divchainmt", Name: "deletes_total", Help: "Number of Delete calls that found a key.",
			ConstLabels: label,
		}),
		grows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "divchainmt", Name: "grows_total", Help: "Number of grow/rehash steps performed.",
			ConstLabels: label,
		}),
		rehashWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "divchainmt", Name: "rehash_wait_seconds", Help: "Time a writer spent in grow coordination: waiting for the rehash writer role plus the grow itself (its own or a concurrent one).",
			ConstLabels: label,
			Buckets:     prometheus.DefBuckets,
		}),
		count: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "divchainmt", Name: "slot_count", Help: "Current number of slots.",
			ConstLabels: label,
		}),
		numElts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "divchainmt", Name: "num_elements", Help: "Current number of live elements.",
			ConstLabels: label,
		}),
		maxNumElts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "divchainmt", Name: "max_num_elements", Help: "Current load-factor bound.",
			ConstLabels: label,
		}),
	}
	reg.MustRegister(pm.inserts, pm.searchHits, pm.searchMiss, pm.removes, pm.deletes,
		pm.grows, pm.rehashWait, pm.count, pm.numElts, pm.maxNumElts)
	return pm
}

func (m *promMetrics) incInsert(n int)      { m.inserts.Add(float64(n)) }
func (m *promMetrics) incSearchHit()        { m.searchHits.Inc() }
func (m *promMetrics) incSearchMiss()       { m.searchMiss.Inc() }
func (m *promMetrics) incRemove()           { m.removes.Inc() }
func (m *promMetrics) incDelete()           { m.deletes.Inc() }
func (m *promMetrics) incGrow()             { m.grows.Inc() }
func (m *promMetrics) observeRehashWait(d time.Duration) {
	m.rehashWait.Observe(d.Seconds())
}
func (m *promMetrics) setGauges(count, numElts, maxNumElts uint64) {
	m.count.Set(float64(count))
	m.numElts.Set(float64(numElts))
	m.maxNumElts.Set(float64(maxNumElts))
}

func newMetricsSink(reg *prometheus.Registry, name string) metricsSink {
	if reg == nil {
		return noopMetrics{}
	}
	return newPromMetrics(reg, name)
}
