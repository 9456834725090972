// Package rate budgets repeated attempts of a single action, such as token
// refreshes triggered by outbound requests.
//
// Limiters are in-process token buckets; nothing is shared between
// processes.
package rate
