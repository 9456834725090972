// Package session persists the client's bearer token and cached user record
// so a signed-in session survives process restarts.
//
// # Layout
//
// [Store] owns key naming and the rules for a half-present token/user pair.
// It sits on a [Backend]: [MemoryBackend], [FileBackend], [RedisBackend], or
// [PostgresBackend]. Backends that implement [PairWriter] write the pair in a
// single step.
//
// # User encoding
//
// Users are stored as a versioned JSON envelope. Bare user objects written by
// earlier clients are read as the legacy version and rewritten on read.
//
// # What this package must NOT do
//
//   - Import authclient or interpret token contents.
//   - Make authorization decisions from the stored role.
//   - Log token values.
package session
