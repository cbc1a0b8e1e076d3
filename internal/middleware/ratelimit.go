package middleware

import (
	"net/http"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RateLimiter is a per-client token bucket refilled over one minute.
type RateLimiter struct {
	mu             sync.Mutex
	requestsPerMin int
	clients        map[string]*clientBucket
	staleAfter     time.Duration
	trusted        []netip.Prefix
	logger         *zap.Logger
	now            func() time.Time
}

type clientBucket struct {
	tokens     float64
	lastRefill time.Time
}

// RateLimitConfig configures a RateLimiter.
type RateLimitConfig struct {
	RequestsPerMinute int
	// StaleAfter drops idle buckets. Zero means ten minutes.
	StaleAfter     time.Duration
	TrustedProxies []netip.Prefix
	Logger         *zap.Logger
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.StaleAfter == 0 {
		cfg.StaleAfter = 10 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &RateLimiter{
		requestsPerMin: cfg.RequestsPerMinute,
		clients:        make(map[string]*clientBucket),
		staleAfter:     cfg.StaleAfter,
		trusted:        cfg.TrustedProxies,
		logger:         cfg.Logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Allow takes a token for client. It returns whether the request may proceed,
// the whole tokens left and when the bucket is full again.
func (rl *RateLimiter) Allow(client string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if rl.requestsPerMin <= 0 {
		return true, 0, now
	}
	rl.evictStale(now)

	limit := float64(rl.requestsPerMin)
	b, ok := rl.clients[client]
	if !ok {
		b = &clientBucket{tokens: limit, lastRefill: now}
		rl.clients[client] = b
	}

	elapsed := now.Sub(b.lastRefill)
	b.tokens = min(limit, b.tokens+limit*elapsed.Minutes())
	b.lastRefill = now

	if b.tokens < 1 {
		return false, 0, rl.fullAt(now, b.tokens)
	}
	b.tokens--
	return true, int(b.tokens), rl.fullAt(now, b.tokens)
}

// fullAt is when a bucket holding tokens at now is full again.
func (rl *RateLimiter) fullAt(now time.Time, tokens float64) time.Time {
	limit := float64(rl.requestsPerMin)
	return now.Add(time.Duration((limit - tokens) / limit * float64(time.Minute)))
}

// evictStale runs under rl.mu.
func (rl *RateLimiter) evictStale(now time.Time) {
	for k, b := range rl.clients {
		if now.Sub(b.lastRefill) > rl.staleAfter {
			delete(rl.clients, k)
		}
	}
}

// Middleware rejects clients over the limit with 429. A limit of zero or
// less disables it.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl.requestsPerMin <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := ClientIP(r, rl.trusted)
		allowed, remaining, reset := rl.Allow(client)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !allowed {
			rl.logger.Warn("rate limit exceeded", zap.String("client", client), zap.String("path", r.URL.Path))
			retry := max(1, int(time.Until(reset).Seconds()+0.5))
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
