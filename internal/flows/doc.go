// Package flows contains pure-function orchestrators for the session
// manager's identity operations.
//
// Each flow function (RunLogin, RunVerify, RunRefresh, RunLogout) accepts a
// typed dependency struct and returns a result describing what happened.
// The Manager owns in-memory state and decides what a result means for it.
//
// # Architecture boundaries
//
// Flows call the backend through function fields and persist through
// [PairStore]. They do NOT own state between calls; ownership stays with the
// Manager.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authclient (to avoid import cycles).
//   - Normalize errors for display; results carry raw errors.
package flows
