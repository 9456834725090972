// Package metrics provides lock-free counters and latency histograms for the
// session manager.
//
// # Design
//
// Counters are stored in cache-line-padded uint64 slots and incremented
// atomically. Histograms use 8 fixed buckets (5ms up to +Inf). Both are
// allocation-free on the write path.
//
// # Architecture boundaries
//
// This package owns metric storage and snapshot creation. Export (Prometheus,
// OTel) lives in metrics/export/ and reads Snapshot values through the root
// package.
//
// # What this package must NOT do
//
//   - Perform I/O or network calls.
//   - Import authclient or any sibling package.
//   - Expose global metric registries.
package metrics
