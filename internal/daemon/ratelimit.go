package daemon

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// rateLimiter is a token bucket per key. Each bucket holds at most burst
// tokens and refills at rate tokens per interval.
type rateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perSecond float64
	burst     float64
	idle      time.Duration // buckets unused this long are dropped
	lastPrune time.Time
	now       func() time.Time
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

func newRateLimiter(rate int, interval time.Duration, burst int) *rateLimiter {
	return &rateLimiter{
		buckets:   make(map[string]*bucket),
		perSecond: float64(rate) / interval.Seconds(),
		burst:     float64(burst),
		idle:      5 * time.Minute,
		now:       time.Now,
	}
}

// allow takes a token for key if one is available
func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.prune(now)

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.burst, lastCheck: now}
		rl.buckets[key] = b
	}

	b.tokens = min(rl.burst, b.tokens+now.Sub(b.lastCheck).Seconds()*rl.perSecond)
	b.lastCheck = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// remaining returns the whole tokens left for key
func (rl *rateLimiter) remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if b, ok := rl.buckets[key]; ok {
		return int(b.tokens)
	}
	return int(rl.burst)
}

// retryAfter is how long until key has a whole token again
func (rl *rateLimiter) retryAfter(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok || b.tokens >= 1 {
		return 0
	}
	return time.Duration((1 - b.tokens) / rl.perSecond * float64(time.Second))
}

// prune drops idle buckets at most once per idle period. Caller holds mu.
func (rl *rateLimiter) prune(now time.Time) {
	if now.Sub(rl.lastPrune) < rl.idle {
		return
	}
	rl.lastPrune = now
	cutoff := now.Add(-rl.idle)
	for key, b := range rl.buckets {
		if b.lastCheck.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// submissionRateLimit limits submissions per session
func (s *Server) submissionRateLimit(rl *rateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := chi.URLParam(r, "id")

			if !rl.allow(key) {
				wait := rl.retryAfter(key)
				s.logger.Warn("submission rate limit exceeded",
					"correlation_id", GetCorrelationID(r.Context()),
					"session_id", key,
					"retry_after", wait,
				)
				seconds := int(wait.Round(time.Second) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(max(seconds, 1)))
				w.Header().Set("X-RateLimit-Remaining", "0")
				s.jsonError(w, http.StatusTooManyRequests, "too many submissions, please wait before trying again", nil)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rl.remaining(key)))
			next.ServeHTTP(w, r)
		})
	}
}

