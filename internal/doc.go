// Package internal groups the private building blocks of authclient.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - flows: the login, logout, refresh and verify sequences run by Manager
//   - metrics: lock-free counters and latency histograms
//   - rate: the token bucket that paces transport-driven refreshes
package internal
