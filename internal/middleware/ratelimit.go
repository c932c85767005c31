package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterIdleTimeout     = 10 * time.Minute
)

type userLimiter struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

func (l *userLimiter) allow(now time.Time) bool {
	l.mu.Lock()
	l.lastSeen = now
	l.mu.Unlock()
	return l.limiter.AllowN(now, 1)
}

func (l *userLimiter) idleSince() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeen
}

// RateLimiter 为每个已认证用户维护一个令牌桶；未认证请求按客户端 IP 计数。
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters sync.Map
}

// NewRateLimiter 创建限流器，并在 ctx 结束前定期清理长时间未使用的令牌桶。
func NewRateLimiter(ctx context.Context, rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{limit: rate.Limit(rps), burst: burst}
	go rl.cleanupLoop(ctx)
	return rl
}

// Middleware 必须挂在 AuthMiddleware 之后才能按用户限流。
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(limiterKey(r), time.Now()) {
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, "请求过于频繁，请稍后再试", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(key string, now time.Time) bool {
	v, _ := rl.limiters.LoadOrStore(key, &userLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)})
	return v.(*userLimiter).allow(now)
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.cleanup(now.Add(-limiterIdleTimeout))
		}
	}
}

func (rl *RateLimiter) cleanup(cutoff time.Time) {
	rl.limiters.Range(func(k, v any) bool {
		if v.(*userLimiter).idleSince().Before(cutoff) {
			rl.limiters.Delete(k)
		}
		return true
	})
}

func limiterKey(r *http.Request) string {
	if userID, ok := GetUserIDFromContext(r.Context()); ok {
		return "user:" + strconv.FormatUint(uint64(userID), 10)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
