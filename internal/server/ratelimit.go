package server

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/54b3r/chefai-go/internal/logging"
)

const (
	// defaultRateLimit is the sustained /api/ask rate per client IP.
	defaultRateLimit = 10
	// defaultRateBurst allows a short spike of submissions from the UI.
	defaultRateBurst = 20
	// staleAfter is how long an idle client keeps its bucket.
	staleAfter = 5 * time.Minute
	// evictEvery is the sweep interval for idle buckets.
	evictEvery = time.Minute
)

// clientBucket is one client's token bucket plus its last activity.
type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter enforces a per-IP token bucket in front of expensive routes.
// Every /api/ask costs two model calls, so the limit protects the API quota
// as much as the process.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	rps     rate.Limit
	burst   int
	log     *slog.Logger
	// onReject is called for every rejected request. May be nil.
	onReject func()
}

// newRateLimiter constructs a rateLimiter and starts the background eviction
// goroutine. The goroutine exits when the returned stop function is called.
func newRateLimiter(rps float64, burst int, log *slog.Logger) (*rateLimiter, func()) {
	rl := &rateLimiter{
		buckets: make(map[string]*clientBucket),
		rps:     rate.Limit(rps),
		burst:   burst,
		log:     log,
	}

	stopCh := make(chan struct{})
	var once sync.Once
	go rl.evictLoop(stopCh)

	return rl, func() { once.Do(func() { close(stopCh) }) }
}

// limiterFor returns the bucket for ip, creating it on first use.
func (rl *rateLimiter) limiterFor(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[ip] = b
	}
	b.lastSeen = now
	return b.limiter
}

func (rl *rateLimiter) evictLoop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(evictEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			rl.evict(now)
		}
	}
}

// evict drops buckets idle for longer than staleAfter.
func (rl *rateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-staleAfter)
	for ip, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, ip)
		}
	}
}

// size reports the number of tracked clients.
func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// middleware rejects requests over the limit with 429, a Retry-After hint
// and the same JSON error shape the ask handler uses.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		res := rl.limiterFor(ip, time.Now()).Reserve()
		delay := res.Delay()
		if !res.OK() || delay > 0 {
			res.Cancel()
			logging.FromContext(r.Context()).Warn("rate limit exceeded",
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
			)
			if rl.onReject != nil {
				rl.onReject()
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(delay)))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Too many requests, please slow down."})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// retryAfterSeconds rounds d up to whole seconds, minimum one.
func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// clientIP returns the remote IP without its port. X-Forwarded-For is not
// trusted; put a proxy that rewrites RemoteAddr in front if needed.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	addr := r.RemoteAddr
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}
