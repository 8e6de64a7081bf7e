package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter is the process-wide request limiter. Built lazily on first use;
// an unconfigured limiter (rps <= 0) allows everything, so a missing
// configuration disables the feature rather than failing.
type Limiter struct {
	once    sync.Once
	rps     float64
	burst   int
	limiter *rate.Limiter
}

// NewLimiter returns an uninitialized limiter; the underlying token
// bucket is constructed on the first Allow call.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{rps: rps, burst: burst}
}

// Allow reports whether one more request may proceed now.
func (l *Limiter) Allow() bool {
	if l.rps <= 0 {
		return true
	}
	l.once.Do(func() {
		burst := l.burst
		if burst < 1 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(l.rps), burst)
	})
	return l.limiter.Allow()
}
