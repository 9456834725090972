// Package authclient is a client-side session manager for a REST backend
// that issues bearer tokens.
//
// A [Manager] owns one signed-in session: a token, the user it belongs to,
// and a [Status]. It persists both through a [session.Store], confirms a
// persisted session at start-up with [Manager.StartupCheck], and funnels every
// failure through [apierr.Normalize] so callers get one message to show.
// Managers are built with [Builder] and are safe to call from multiple
// goroutines.
//
// # States
//
// StatusIdle becomes StatusVerifying while a cached or half-finished session
// is confirmed, then StatusAuthenticated or StatusUnauthenticated. During
// verification the cached user is available through [Snapshot.Identity] with
// Optimistic set; [Manager.IsAuthenticated] stays false until the backend
// answers.
//
// # Architecture boundaries
//
// authclient is the public surface. Flow orchestration, audit dispatch and
// metric storage live under internal/. The backend is reached only through
// [SessionClient]; httpclient provides a REST implementation.
//
// # What this package must NOT do
//
//   - Treat decoded token claims or the cached role as an authorization
//     decision. The backend checks every request.
//   - Hold a lock across a backend call.
//   - Log tokens.
package authclient
