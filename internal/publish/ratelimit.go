package publish

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter keeps one token bucket per client address.
type clientLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*limiterEntry
	rate       rate.Limit
	burst      int
	trustProxy bool
	now        func() time.Time
}

func newClientLimiter(perSecond float64, burst int, trustProxy bool) *clientLimiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiter{
		limiters:   make(map[string]*limiterEntry),
		rate:       limit,
		burst:      burst,
		trustProxy: trustProxy,
		now:        time.Now,
	}
}

func (cl *clientLimiter) allow(client string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := cl.now()
	entry, ok := cl.limiters[client]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(cl.rate, cl.burst)}
		cl.limiters[client] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// retryAfter is the wait, in whole seconds, for one token to refill.
func (cl *clientLimiter) retryAfter() string {
	if cl.rate == rate.Inf || cl.rate <= 0 {
		return "1"
	}
	return strconv.Itoa(int(math.Ceil(1 / float64(cl.rate))))
}

// evictIdle drops clients idle longer than limiterIdleTTL.
func (cl *clientLimiter) evictIdle() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cutoff := cl.now().Add(-limiterIdleTTL)
	evicted := 0
	for client, entry := range cl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(cl.limiters, client)
			evicted++
		}
	}
	return evicted
}

// janitor runs evictIdle every minute until ctx ends.
func (cl *clientLimiter) janitor(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cl.evictIdle()
		}
	}
}

func (cl *clientLimiter) middleware(next http.Handler, reject func(http.ResponseWriter, *http.Request)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cl.allow(clientIP(r, cl.trustProxy)) {
			w.Header().Set("Retry-After", cl.retryAfter())
			reject(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the connection address. With trustProxy it prefers the
// first X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
