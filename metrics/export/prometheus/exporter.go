package prometheus

import (
	"bytes"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/kdktj/authclient"
)

const (
	auditDroppedName = "authclient_audit_dropped_total"
	auditDroppedHelp = "Audit events dropped because the sink queue was full."
)

type metricsSource interface {
	MetricsSnapshot() authclient.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders session metrics in the Prometheus text format
// from a private registry holding one Collector.
type PrometheusExporter struct {
	source   metricsSource
	registry *prom.Registry
}

// NewPrometheusExporter creates an exporter that reads from m.
func NewPrometheusExporter(m *authclient.Manager) *PrometheusExporter {
	return NewPrometheusExporterFromSource(m)
}

// NewPrometheusExporterFromSource creates an exporter from any metrics
// source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	reg := prom.NewRegistry()
	reg.MustRegister(NewCollector(source, nil))
	return &PrometheusExporter{source: source, registry: reg}
}

// Handler serves Render. Content negotiation is not needed for a single
// text format.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render writes the current metrics in Prometheus text exposition format.
// A source with metrics disabled renders "".
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}
	snapshot := p.source.MetricsSnapshot()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && p.source.AuditDropped() == 0 {
		return ""
	}

	families, err := p.registry.Gather()
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return ""
		}
	}
	return buf.String()
}
