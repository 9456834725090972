// Package middleware provides the outbound http.RoundTripper that carries the
// session bearer on the application's own API calls.
//
// # Token handling
//
// [Transport] attaches "Authorization: Bearer <token>" to requests that do
// not already carry an Authorization header. When the token's expiry hint
// says it is stale, the session is refreshed first; concurrent requests
// share one refresh and refreshes are rate limited.
//
// A 401 reply to a request that carried the session bearer ends the
// session through Session.Invalidate. Requests made with [WithoutBearer]
// are passed through untouched.
//
// # What this package must NOT do
//
//   - Decide authorization from decoded claims (the backend re-checks every
//     request).
//   - Write the persisted session directly (all writes go through Session).
package middleware
