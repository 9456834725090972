package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/kdktj/authclient"
	"github.com/kdktj/authclient/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("otel: nil meter")
	ErrNilSource = errors.New("otel: nil metrics source")
)

const auditDroppedName = "authclient_audit_dropped_total"

type metricsSource interface {
	MetricsSnapshot() authclient.MetricsSnapshot
	AuditDropped() uint64
}

type counterInstrument struct {
	id  authclient.MetricID
	obs metric.Int64ObservableCounter
}

// histogramInstruments holds one gauge per cumulative bucket plus the
// sample count.
type histogramInstruments struct {
	id      authclient.MetricID
	buckets []metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter publishes a Manager's counters and latency buckets as
// observable instruments on a caller-owned Meter.
type OTelExporter struct {
	source       metricsSource
	counters     []counterInstrument
	histograms   []histogramInstruments
	auditDropped metric.Int64ObservableCounter
	registration metric.Registration
}

// NewOTelExporter registers instruments for m on meter.
func NewOTelExporter(meter metric.Meter, m *authclient.Manager) (*OTelExporter, error) {
	if m == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, m)
}

// NewOTelExporterFromSource is NewOTelExporter for any snapshot source.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		obs, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("otel: counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counterInstrument{id: def.ID, obs: obs})
		observables = append(observables, obs)
	}

	for _, def := range internaldefs.HistogramDefs {
		h, err := newHistogramInstruments(meter, def)
		if err != nil {
			return nil, err
		}
		e.histograms = append(e.histograms, h)
		observables = append(observables, h.count)
		for _, g := range h.buckets {
			observables = append(observables, g)
		}
	}

	dropped, err := meter.Int64ObservableCounter(auditDroppedName,
		metric.WithDescription("Audit events dropped because the sink queue was full."))
	if err != nil {
		return nil, fmt.Errorf("otel: counter %s: %w", auditDroppedName, err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("otel: register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func newHistogramInstruments(meter metric.Meter, def internaldefs.HistogramDef) (histogramInstruments, error) {
	h := histogramInstruments{id: def.ID}
	for _, suffix := range internaldefs.HistogramBoundSuffix {
		name := def.Name + "_bucket_le_" + suffix
		g, err := meter.Int64ObservableGauge(name, metric.WithDescription(def.Help+" Cumulative bucket count."))
		if err != nil {
			return h, fmt.Errorf("otel: gauge %s: %w", name, err)
		}
		h.buckets = append(h.buckets, g)
	}
	name := def.Name + "_count"
	g, err := meter.Int64ObservableGauge(name, metric.WithDescription(def.Help+" Sample count."))
	if err != nil {
		return h, fmt.Errorf("otel: gauge %s: %w", name, err)
	}
	h.count = g
	return h, nil
}

// observe reads one snapshot per collection so every instrument reports
// the same instant.
func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		o.ObserveInt64(c.obs, int64(snap.Counters[c.id]))
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[h.id]))
		for i, g := range h.buckets {
			o.ObserveInt64(g, int64(cumulative[i]))
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
