// Package jwt reads the claims segment of bearer tokens without verifying
// their signature.
//
// The client never trusts decoded claims for access control: expiry and
// subject are hints for display and for deciding when to refresh. Every
// authorization decision stays with the backend, which verifies the token on
// each request.
package jwt
