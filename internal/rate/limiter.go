package rate

import (
	"time"

	xrate "golang.org/x/time/rate"
)

// Config holds the attempt budget: Burst attempts at once, refilled at one
// per Every.
type Config struct {
	Every time.Duration
	Burst int
}

// Limiter is a token bucket over attempts of one kind. A nil Limiter
// allows everything.
type Limiter struct {
	lim *xrate.Limiter
}

// New returns a Limiter for cfg. A non-positive Every disables limiting.
func New(cfg Config) *Limiter {
	if cfg.Every <= 0 {
		return nil
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Limiter{lim: xrate.NewLimiter(xrate.Every(cfg.Every), cfg.Burst)}
}

// Allow consumes one attempt, or returns ErrRateLimited when none is left.
func (l *Limiter) Allow() error {
	if l == nil {
		return nil
	}
	if !l.lim.Allow() {
		return ErrRateLimited
	}
	return nil
}

// AllowAt is Allow evaluated at now.
func (l *Limiter) AllowAt(now time.Time) error {
	if l == nil {
		return nil
	}
	if !l.lim.AllowN(now, 1) {
		return ErrRateLimited
	}
	return nil
}
