// Package httpclient implements authclient.SessionClient against the task
// tracker's REST auth routes.
//
// Replies with a non-2xx status are returned as *apierr.ResponseError with
// the decoded detail payload; requests that never got a response are
// returned as *apierr.NetworkError. Authenticated calls read the bearer from
// a TokenSource on every request, so a Client can share the session.Store
// the Manager writes to.
package httpclient
