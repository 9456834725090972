package rate

import "errors"

// ErrRateLimited is returned when an attempt exceeds its budget.
var ErrRateLimited = errors.New("rate limited")
