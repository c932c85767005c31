package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newLimitedHandler(t *testing.T, rps float64, burst int) (*RateLimiter, http.Handler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	rl := NewRateLimiter(ctx, rps, burst)
	return rl, rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func requestAs(h http.Handler, userID uint) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if userID != 0 {
		req = req.WithContext(context.WithValue(req.Context(), UserIDKey, userID))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_Burst(t *testing.T) {
	// 几乎不补充令牌
	_, h := newLimitedHandler(t, 0.001, 3)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, requestAs(h, 1), "request %d should be allowed", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, requestAs(h, 1))
}

func TestRateLimiter_PerUser(t *testing.T) {
	_, h := newLimitedHandler(t, 0.001, 1)
	assert.Equal(t, http.StatusOK, requestAs(h, 1))
	assert.Equal(t, http.StatusOK, requestAs(h, 2))
	assert.Equal(t, http.StatusTooManyRequests, requestAs(h, 1))
	// 未认证请求按 IP 单独计数
	assert.Equal(t, http.StatusOK, requestAs(h, 0))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl, h := newLimitedHandler(t, 0.001, 1)
	assert.Equal(t, http.StatusOK, requestAs(h, 1))
	assert.Equal(t, http.StatusTooManyRequests, requestAs(h, 1))

	rl.cleanup(time.Now().Add(time.Minute))
	assert.Equal(t, http.StatusOK, requestAs(h, 1), "evicted limiter starts with a full bucket")
}
