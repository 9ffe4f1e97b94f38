package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ThePyWizard/subgenie/internal/cache"
)

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit rejects requests over the limit with 429. Limiter errors let the
// request through.
func RateLimit(l Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := l.Allow(r.Context(), clientKey(r))
			if err != nil {
				slog.Warn("rate limiter unavailable", "error", err)
				ok = true
			}
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"detail": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type visitor struct {
	tokens   float64
	lastSeen time.Time
}

// MemoryLimiter is a per-process token bucket per client.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     float64 // tokens per second
	burst    float64 // max tokens
	done     chan struct{}
	now      func() time.Time
}

func NewMemoryLimiter(rps float64, burst int) *MemoryLimiter {
	rl := &MemoryLimiter{
		visitors: make(map[string]*visitor),
		rate:     rps,
		burst:    float64(burst),
		done:     make(chan struct{}),
		now:      time.Now,
	}
	go rl.cleanup()
	return rl
}

func (rl *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{tokens: rl.burst, lastSeen: now}
		rl.visitors[key] = v
	}

	elapsed := now.Sub(v.lastSeen).Seconds()
	v.tokens += elapsed * rl.rate
	if v.tokens > rl.burst {
		v.tokens = rl.burst
	}
	v.lastSeen = now

	if v.tokens < 1 {
		return false, nil
	}
	v.tokens--
	return true, nil
}

// Close stops the background cleanup.
func (rl *MemoryLimiter) Close() {
	close(rl.done)
}

func (rl *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
		}
		rl.mu.Lock()
		for key, v := range rl.visitors {
			if rl.now().Sub(v.lastSeen) > 3*time.Minute {
				delete(rl.visitors, key)
			}
		}
		rl.mu.Unlock()
	}
}

// RedisLimiter allows limit requests per client per window across all
// instances sharing the Redis server.
type RedisLimiter struct {
	counter *cache.Counter
	limit   int64
	window  time.Duration
}

func NewRedisLimiter(counter *cache.Counter, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{counter: counter, limit: int64(limit), window: window}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := rl.counter.Hit(ctx, key, rl.window, time.Now())
	if err != nil {
		return false, err
	}
	return n <= rl.limit, nil
}
