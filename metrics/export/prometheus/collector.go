package prometheus

import (
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/kdktj/authclient/metrics/export/internaldefs"
)

// Collector exposes session metrics to a client_golang registry. Values
// are read from the source on every scrape.
type Collector struct {
	source       metricsSource
	counters     []*prom.Desc
	histograms   []*prom.Desc
	auditDropped *prom.Desc
}

var _ prom.Collector = (*Collector)(nil)

// NewCollector returns a Collector for source. constLabels are attached to
// every series, e.g. the app instance.
func NewCollector(source metricsSource, constLabels prom.Labels) *Collector {
	c := &Collector{
		source:       source,
		counters:     make([]*prom.Desc, len(internaldefs.CounterDefs)),
		histograms:   make([]*prom.Desc, len(internaldefs.HistogramDefs)),
		auditDropped: prom.NewDesc(auditDroppedName, auditDroppedHelp, nil, constLabels),
	}
	for i, def := range internaldefs.CounterDefs {
		c.counters[i] = prom.NewDesc(def.Name, def.Help, nil, constLabels)
	}
	for i, def := range internaldefs.HistogramDefs {
		c.histograms[i] = prom.NewDesc(def.Name, def.Help, nil, constLabels)
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prom.Desc) {
	for _, d := range c.counters {
		ch <- d
	}
	for _, d := range c.histograms {
		ch <- d
	}
	ch <- c.auditDropped
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prom.Metric) {
	if c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()

	for i, def := range internaldefs.CounterDefs {
		ch <- prom.MustNewConstMetric(c.counters[i], prom.CounterValue, float64(snapshot.Counters[def.ID]))
	}

	for i, def := range internaldefs.HistogramDefs {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for j, upper := range internaldefs.HistogramUpperBounds {
			buckets[upper] = cumulative[j]
		}
		ch <- prom.MustNewConstHistogram(c.histograms[i], cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prom.MustNewConstMetric(c.auditDropped, prom.CounterValue, float64(c.source.AuditDropped()))
}
