package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/arden-atelier/orderdesk/internal/httpx"
)

const defaultMaxRateLimitEntries = 10000

type rateWindow struct {
	count      int
	windowEnds time.Time
}

// IPRateLimiter is a fixed-window limiter keyed by client IP. The number of
// tracked IPs is bounded; expired windows are dropped first when the table is
// full, then the entry closest to expiry.
type IPRateLimiter struct {
	mu         sync.Mutex
	limit      int
	window     time.Duration
	maxEntries int
	entries    map[string]rateWindow
	now        func() time.Time
}

func NewIPRateLimiter(limit int, window time.Duration) *IPRateLimiter {
	return NewIPRateLimiterWithMaxEntries(limit, window, defaultMaxRateLimitEntries)
}

func NewIPRateLimiterWithMaxEntries(limit int, window time.Duration, maxEntries int) *IPRateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = defaultMaxRateLimitEntries
	}
	return &IPRateLimiter{
		limit:      limit,
		window:     window,
		maxEntries: maxEntries,
		entries:    map[string]rateWindow{},
		now:        time.Now,
	}
}

func (rl *IPRateLimiter) Middleware(message string) func(http.Handler) http.Handler {
	if message == "" {
		message = "Rate limit exceeded"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r.RemoteAddr)
			if ip == "" {
				ip = "unknown"
			}
			ok, resetAt := rl.allowAt(ip)
			if !ok {
				wait := math.Ceil(resetAt.Sub(rl.now()).Seconds())
				if wait < 1 {
					wait = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(wait)))
				httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", message, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *IPRateLimiter) allow(ip string) bool {
	ok, _ := rl.allowAt(ip)
	return ok
}

// allowAt counts one request for ip and reports whether it fits the current
// window, along with the time that window ends.
func (rl *IPRateLimiter) allowAt(ip string) (bool, time.Time) {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.entries[ip]
	if !ok && len(rl.entries) >= rl.maxEntries {
		rl.evictLocked(now)
	}
	if entry.windowEnds.Before(now) {
		entry = rateWindow{windowEnds: now.Add(rl.window)}
	}
	entry.count++
	rl.entries[ip] = entry
	return entry.count <= rl.limit, entry.windowEnds
}

func (rl *IPRateLimiter) evictLocked(now time.Time) {
	for ip, entry := range rl.entries {
		if entry.windowEnds.Before(now) {
			delete(rl.entries, ip)
		}
	}
	if len(rl.entries) < rl.maxEntries {
		return
	}
	var oldestIP string
	var oldest time.Time
	for ip, entry := range rl.entries {
		if oldestIP == "" || entry.windowEnds.Before(oldest) {
			oldestIP, oldest = ip, entry.windowEnds
		}
	}
	delete(rl.entries, oldestIP)
}

func (rl *IPRateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
