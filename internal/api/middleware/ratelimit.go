// ratelimit.go — ограничение частоты запросов на пользователя
// (token bucket из golang.org/x/time/rate).
package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apierrors "github.com/svarovsky7/GarantHUB-sub002/internal/api/errors"
)

// limiterIdleTTL — limiter без запросов дольше этого срока удаляется.
const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter — набор limiter'ов по ключу (пользователь или адрес).
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rps       rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter создаёт ограничитель: rps запросов в секунду, burst — запас.
// rps <= 0 отключает ограничение.
func NewRateLimiter(rps, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow расходует токен ключа key.
func (l *RateLimiter) Allow(key string) bool {
	if l.rps <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > limiterIdleTTL {
		for k, e := range l.limiters {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Len возвращает число отслеживаемых ключей.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Middleware ограничивает частоту по пользователю; без пользователя — по адресу.
func (l *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if u := UserFromContext(r.Context()); u != nil {
				key = u.ID()
			}
			if !l.Allow(key) {
				w.Header().Set("Retry-After", "1")
				apierrors.RateLimited(w, "Слишком много запросов, повторите позже")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
