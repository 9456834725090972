// Package otel publishes authclient metrics through an OpenTelemetry Meter.
//
// [NewOTelExporter] creates one Int64ObservableCounter per counter and one
// Int64ObservableGauge per cumulative latency bucket, all fed by a single
// callback that reads [authclient.Manager.MetricsSnapshot] on each
// collection. The caller owns the MeterProvider and its readers.
package otel
