package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxVisitors    = 10_000
	visitorIdleTTL = 10 * time.Minute
)

// DropRecorder counts requests refused by the limiter.
type DropRecorder interface {
	Inc()
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter applies a per-client budget and a shared budget to asset requests.
type Limiter struct {
	shared *rate.Limiter

	mu       sync.Mutex
	visitors map[string]*visitor

	rps   rate.Limit
	burst int
	now   func() time.Time
}

func New(rps float64, burst int) *Limiter {
	return &Limiter{
		shared:   rate.NewLimiter(rate.Limit(rps), burst),
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

func (l *Limiter) Middleware(dropped DropRecorder, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wait, ok := l.Reserve(clientIP(r))
		if !ok {
			if dropped != nil {
				dropped.Inc()
			}
			w.Header().Set("Retry-After", retryAfter(wait))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Allow reports whether one more request from ip fits in both budgets.
func (l *Limiter) Allow(ip string) bool {
	_, ok := l.Reserve(ip)
	return ok
}

// Reserve takes one token from the client's budget and the shared one.
// When either is exhausted nothing is consumed and the returned duration
// is how long the caller should wait before retrying.
func (l *Limiter) Reserve(ip string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v := l.visitorLocked(ip, now)

	own := v.limiter.ReserveN(now, 1)
	if !own.OK() {
		return 0, false
	}
	if wait := own.DelayFrom(now); wait > 0 {
		own.CancelAt(now)
		return wait, false
	}

	shared := l.shared.ReserveN(now, 1)
	if !shared.OK() {
		own.CancelAt(now)
		return 0, false
	}
	if wait := shared.DelayFrom(now); wait > 0 {
		shared.CancelAt(now)
		own.CancelAt(now)
		return wait, false
	}

	return 0, true
}

// Tracked returns the number of clients with a live budget.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *Limiter) visitorLocked(ip string, now time.Time) *visitor {
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
		if len(l.visitors) > maxVisitors {
			l.evictIdleLocked(now.Add(-visitorIdleTTL))
		}
	}
	v.lastSeen = now
	return v
}

func (l *Limiter) evictIdleLocked(threshold time.Time) {
	for ip, v := range l.visitors {
		if v.lastSeen.Before(threshold) {
			delete(l.visitors, ip)
		}
	}
}

// retryAfter renders wait as whole seconds, never less than one.
func retryAfter(wait time.Duration) string {
	secs := int64(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

func clientIP(r *http.Request) string {
	if forwardedFor := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
