// Package apierr classifies backend failures and turns them into one
// message a user can act on.
//
// [ResponseError] is a reply with a non-2xx status and a parsed body.
// [NetworkError] is a request that received no reply at all. [Normalize]
// picks the most specific text available: structured validation detail
// first, then detail and message strings, then the unreachable message.
package apierr
