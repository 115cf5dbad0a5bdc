package divchain

// metrics.go is a thin abstraction over Prometheus, following the teacher's
// pkg/metrics.go shape: a metricsSink interface with a no-op implementation
// used when the caller never opts in (WithMetrics not passed to New) and a
// Prometheus implementation used when it is. The hot path never pays for a
// label lookup when metrics are disabled.
//
// © 2025 divchain authors. MIT License.

import "github.com/prometheus/client_golang/prometheus"

type metricsSink interface {
	incInsert()
	incSearchHit()
	incSearchMiss()
	incRemove()
	incDelete()
	incGrow()
	setGauges(count, numElts, maxNumElts uint64)
}

type noopMetrics struct{}

func (noopMetrics) incInsert()                                {}
func (noopMetrics) incSearchHit()                             {}
func (noopMetrics) incSearchMiss()                             {}
func (noopMetrics) incRemove()                                 {}
func (noopMetrics) incDelete()                                 {}
func (noopMetrics) incGrow()                                   {}
func (noopMetrics) setGauges(count, numElts, maxNumElts uint64) {}

type promMetrics struct {
	inserts     prometheus.Counter
	searchHits  prometheus.Counter
	searchMiss  prometheus.Counter
	removes     prometheus.Counter
	deletes     prometheus.Counter
	grows       prometheus.Counter
	count       prometheus.Gauge
	numElts     prometheus.Gauge
	maxNumElts  prometheus.Gauge
}

func newPromMetrics(reg *prometheus.Registry, name string) *promMetrics {
	label := prometheus.Labels{"table": name}
	pm := &promMetrics{
		inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "divchain", Name: "inserts_total", Help: "Number of Insert calls that added a new key.",
			ConstLabels: label,
		}),
		searchHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "divchain", Name: "search_hits_total", Help: "Number of Search calls that found a key.",
			ConstLabels: label,
		}),
		searchMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "divchain", Name: "search_misses_total", Help: "Number of Search calls that missed.",
			ConstLabels: label,
		}),
		removes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "divchain", Name: "removes_total", Help: "Number of Remove calls that found a key.",
			ConstLabels: label,
		}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "divchain", Name: "deletes_total", Help: "Number of Delete calls that found a key.",
			ConstLabels: label,
		}),
		grows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "divchain", Name: "grows_total", Help: "Number of grow/rehash steps performed.",
			ConstLabels: label,
		}),
		count: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "divchain", Name: "slot_count", Help: "Current number of slots.",
			ConstLabels: label,
		}),
		numElts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "divchain", Name: "num_elements", Help: "Current number of live elements.",
			ConstLabels: label,
		}),
		maxNumElts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "divchain", Name: "max_num_elements", Help: "Current load-factor bound.",
			ConstLabels: label,
		}),
	}
	reg.MustRegister(pm.inserts, pm.searchHits, pm.searchMiss, pm.removes, pm.deletes,
		pm.grows, pm.count, pm.numElts, pm.maxNumElts)
	return pm
}

func (m *promMetrics) incInsert()     { m.inserts.Inc() }
func (m *promMetrics) incSearchHit()  { m.searchHits.Inc() }
func (m *promMetrics) incSearchMiss() { m.searchMiss.Inc() }
func (m *promMetrics) incRemove()     { m.removes.Inc() }
func (m *promMetrics) incDelete()     { m.deletes.Inc() }
func (m *promMetrics) incGrow()       { m.grows.Inc() }
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
