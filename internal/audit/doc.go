// Package audit implements async event dispatching for session lifecycle
// changes.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event]: record with id, timestamp, type, user, instance, source, metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which
// events to emit; that belongs to the Manager.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import authclient or any sibling internal package.
//   - Carry bearer tokens in events.
package audit
