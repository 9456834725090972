// Package permission evaluates role and permission membership for display
// decisions.
//
// # Architecture boundaries
//
// This package is a pure in-memory lookup with no I/O. The role it reads
// comes from an unverified cached user record, so its answers only decide
// what the UI shows.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import authclient, jwt, or session.
//   - Be used as an authorization boundary.
package permission
