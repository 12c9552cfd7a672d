package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// bucket is a token bucket for a single client IP.
type bucket struct {
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

type rateLimiterState struct {
	buckets sync.Map // map[string]*bucket
	rate    float64  // tokens added per second
	burst   int      // bucket capacity
	done    chan struct{}
}

// The health endpoint must stay reachable for probes even when a client is
// throttled.
var exemptPaths = map[string]bool{
	"/api/health": true,
}

// allow refills the IP's bucket for the elapsed time and tries to consume
// one token. Returns (allowed, remaining, limit).
func (s *rateLimiterState) allow(ip string) (bool, int, int) {
	val, _ := s.buckets.LoadOrStore(ip, &bucket{
		tokens:     float64(s.burst),
		lastRefill: time.Now(),
	})
	b := val.(*bucket)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastRefill).Seconds() * s.rate
	if b.tokens > float64(s.burst) {
		b.tokens = float64(s.burst)
	}
	b.lastRefill = now

	if b.tokens >= 1.0 {
		b.tokens--
		return true, int(math.Floor(b.tokens)), s.burst
	}
	return false, 0, s.burst
}

// retryAfter estimates seconds until one token is available.
func (s *rateLimiterState) retryAfter(ip string) int {
	val, ok := s.buckets.Load(ip)
	if !ok {
		return 1
	}
	b := val.(*bucket)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tokens >= 1.0 {
		return 0
	}
	return int(math.Ceil((1.0 - b.tokens) / s.rate))
}

// startCleanup removes buckets that have been idle long enough to refill
// completely, every 5 minutes.
func (s *rateLimiterState) startCleanup() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				staleThreshold := time.Now().Add(-10 * time.Minute)
				s.buckets.Range(func(key, value any) bool {
					b := value.(*bucket)
					b.mu.Lock()
					stale := b.lastRefill.Before(staleThreshold)
					b.mu.Unlock()
					if stale {
						s.buckets.Delete(key)
					}
					return true
				})
			case <-s.done:
				return
			}
		}
	}()
}

// RateLimiter creates middleware that limits requests per IP address using a
// token bucket with the given sustained rate (tokens per second) and burst
// capacity.
func RateLimiter(rate float64, burst int) func(http.Handler) http.Handler {
	state := &rateLimiterState{
		rate:  rate,
		burst: burst,
		done:  make(chan struct{}),
	}
	state.startCleanup()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exemptPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ip := extractIP(r)
			allowed, remaining, limit := state.allow(ip)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(state.retryAfter(ip)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractIP retrieves the client IP, preferring X-Forwarded-For and
// X-Real-IP for reverse proxy setups, falling back to RemoteAddr.
func extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
