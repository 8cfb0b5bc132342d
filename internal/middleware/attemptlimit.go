package middleware

import (
	"net/http"
	"sync"
	"time"
)

const attemptCleanupPeriod = 5 * time.Minute

type attemptWindow struct {
	count       int
	windowStart time.Time
}

// AttemptRateLimiter throttles unauthenticated attempts per client IP. It
// guards the two credential-guessing surfaces: admin login and pairing-code
// redemption.
type AttemptRateLimiter struct {
	mu          sync.RWMutex
	attempts    map[string]*attemptWindow
	maxAttempts int
	window      time.Duration
	lastCleanup time.Time
}

func NewAttemptRateLimiter(maxAttempts int, window time.Duration) *AttemptRateLimiter {
	return &AttemptRateLimiter{
		attempts:    make(map[string]*attemptWindow),
		maxAttempts: maxAttempts,
		window:      window,
		lastCleanup: time.Now(),
	}
}

func (l *AttemptRateLimiter) cleanup() {
	now := time.Now()
	if now.Sub(l.lastCleanup) < attemptCleanupPeriod {
		return
	}
	l.lastCleanup = now

	for ip, attempt := range l.attempts {
		if now.Sub(attempt.windowStart) > l.window {
			delete(l.attempts, ip)
		}
	}
}

func (l *AttemptRateLimiter) isAllowed(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cleanup()

	now := time.Now()
	attempt, exists := l.attempts[ip]

	if !exists {
		l.attempts[ip] = &attemptWindow{
			count:       1,
			windowStart: now,
		}
		return true
	}

	if now.Sub(attempt.windowStart) > l.window {
		attempt.count = 1
		attempt.windowStart = now
		return true
	}

	if attempt.count >= l.maxAttempts {
		return false
	}

	attempt.count++
	return true
}

func (l *AttemptRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			ip = forwarded
		}

		if !l.isAllowed(ip) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Too many attempts. Please try again later.",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
