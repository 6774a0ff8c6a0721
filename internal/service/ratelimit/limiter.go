package ratelimit

import (
	"sync"
	"time"

	xhttp "PricePulse/pkg/http"
	applogger "PricePulse/pkg/logger"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// maxKeys bounds the limiter map; past it the map is reset.
const maxKeys = 10000

// Limiter keeps one token bucket per client key.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func New(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= maxKeys {
			l.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// Allow reports whether one more request for key fits the budget.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// refill is the time one token takes to come back.
func (l *Limiter) refill() time.Duration {
	if l.rate <= 0 || l.rate == rate.Inf {
		return time.Second
	}
	return time.Duration(float64(time.Second) / float64(l.rate))
}

// Size returns how many keys are tracked.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Middleware rejects requests over the per-client budget with 429.
func (l *Limiter) Middleware(log *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if l.Allow(ip) {
				return next(c)
			}
			if log != nil {
				log.Warn("rate limited",
					applogger.String("remote", ip),
					applogger.String("path", c.Path()),
				)
			}
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded").WithRetryAfter(l.refill()))
		}
	}
}
