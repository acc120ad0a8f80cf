package api

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// loginLimiter throttles login attempts per client IP.
type loginLimiter struct {
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

func newLoginLimiter(perSecond float64, burst int) *loginLimiter {
	return &loginLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](1000, nil, 10*time.Minute),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow reports whether key may attempt another login now.
func (l *loginLimiter) Allow(key string) bool {
	limiter, ok := l.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters.Add(key, limiter)
	}
	return limiter.Allow()
}
