package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// ---------------------------------------------------------------------------
// Config constructors
// ---------------------------------------------------------------------------

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerMinute != 120 {
		t.Errorf("RequestsPerMinute = %d, want 120", cfg.RequestsPerMinute)
	}
	if cfg.BurstSize != 30 {
		t.Errorf("BurstSize = %d, want 30", cfg.BurstSize)
	}
	if cfg.CleanupInterval != 5*time.Minute {
		t.Errorf("CleanupInterval = %v, want 5m", cfg.CleanupInterval)
	}
}

// ---------------------------------------------------------------------------
// RateLimiter.Allow
// ---------------------------------------------------------------------------

// fakeClock is a settable time source for the in-memory limiter.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestLimiter(rpm, burst int) (*RateLimiter, *fakeClock) {
	cfg := RateLimitConfig{
		RequestsPerMinute: rpm,
		BurstSize:         burst,
		CleanupInterval:   time.Hour, // Don't clean up during tests
	}
	rl := NewRateLimiter(cfg)
	clock := &fakeClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	rl.now = clock.Now
	return rl, clock
}

func allow(t *testing.T, rl *RateLimiter, key string) Decision {
	t.Helper()
	d, err := rl.Allow(context.Background(), key)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	return d
}

func TestRateLimiter_NewClientGetsFullBurst(t *testing.T) {
	rl, _ := newTestLimiter(60, 5)
	defer rl.Stop()

	d := allow(t, rl, "client-a")
	if !d.Allowed {
		t.Error("Allow() = false for new client, want true")
	}
	if d.Remaining != 4 {
		t.Errorf("Remaining = %d, want 4", d.Remaining)
	}
	if d.Limit != 60 {
		t.Errorf("Limit = %d, want 60", d.Limit)
	}
}

func TestRateLimiter_AllowsUpToBurstSize(t *testing.T) {
	burst := 3
	rl, _ := newTestLimiter(600, burst)
	defer rl.Stop()

	allowed := 0
	for i := 0; i < burst+2; i++ {
		if allow(t, rl, "burst-test").Allowed {
			allowed++
		}
	}
	if allowed != burst {
		t.Errorf("allowed %d requests at burst=%d, want exactly %d", allowed, burst, burst)
	}
}

func TestRateLimiter_RetryAfterWhenBlocked(t *testing.T) {
	rl, _ := newTestLimiter(60, 1) // 1 token/sec
	defer rl.Stop()

	allow(t, rl, "k")
	d := allow(t, rl, "k")
	if d.Allowed {
		t.Fatal("second request should be blocked")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Second {
		t.Errorf("RetryAfter = %v, want (0, 1s]", d.RetryAfter)
	}
}

func TestRateLimiter_TokensRefillOverTime(t *testing.T) {
	rl, clock := newTestLimiter(600, 2) // 10 tokens/sec
	defer rl.Stop()

	key := "refill-test"
	for allow(t, rl, key).Allowed {
	}

	clock.Advance(150 * time.Millisecond)

	if !allow(t, rl, key).Allowed {
		t.Error("Allow() = false after token refill, want true")
	}
}

func TestRateLimiter_DifferentKeysAreIndependent(t *testing.T) {
	rl, _ := newTestLimiter(60, 2)
	defer rl.Stop()

	for allow(t, rl, "key-a").Allowed {
	}

	if !allow(t, rl, "key-b").Allowed {
		t.Error("Allow(key-b) = false, want true after exhausting key-a")
	}
}

func TestRateLimiter_RemainingTokens(t *testing.T) {
	rl, _ := newTestLimiter(60, 5)
	defer rl.Stop()

	if got := rl.RemainingTokens("unseen"); got != 5 {
		t.Errorf("RemainingTokens(unseen) = %d, want 5", got)
	}
	allow(t, rl, "seen")
	allow(t, rl, "seen")
	if got := rl.RemainingTokens("seen"); got != 3 {
		t.Errorf("RemainingTokens(seen) = %d, want 3", got)
	}
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	rl, clock := newTestLimiter(600, 10)
	defer rl.Stop()

	allow(t, rl, "stale-client")
	clock.Advance(11 * time.Minute)
	allow(t, rl, "fresh-client")

	rl.evictIdle(10 * time.Minute)

	rl.mu.RLock()
	_, stale := rl.entries["stale-client"]
	_, fresh := rl.entries["fresh-client"]
	rl.mu.RUnlock()

	if stale {
		t.Error("stale-client should have been evicted")
	}
	if !fresh {
		t.Error("fresh-client should have been kept")
	}
}

// ---------------------------------------------------------------------------
// RedisRateLimiter
// ---------------------------------------------------------------------------

func TestRedisRateLimiter_UnreachableRedisReturnsError(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	rl := NewRedisRateLimiter(client, RateLimitConfig{RequestsPerMinute: 60, BurstSize: 10})
	if _, err := rl.Allow(context.Background(), "user:1"); err == nil {
		t.Error("Allow() should fail when Redis is unreachable")
	}
}

// ---------------------------------------------------------------------------
// getRateLimitKey
// ---------------------------------------------------------------------------

func TestGetRateLimitKey_UserID(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
	c.Set(UserIDKey, "user-123")

	key := getRateLimitKey(c)
	if key != "user:user-123" {
		t.Errorf("key = %q, want user:user-123", key)
	}
}

func TestGetRateLimitKey_IPFallback(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	c.Request = req
	c.Set(UserIDKey, "") // empty, should skip to IP

	key := getRateLimitKey(c)
	if key != "ip:192.168.1.1" {
		t.Errorf("key = %q, want ip:192.168.1.1", key)
	}
}

// ---------------------------------------------------------------------------
// RateLimitMiddleware
// ---------------------------------------------------------------------------

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("redis: connection refused")
}

func newRateLimitRouter(limiter Limiter) *gin.Engine {
	r := gin.New()
	r.Use(RateLimitMiddleware(limiter))
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func sendFrom(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware_Allowed(t *testing.T) {
	rl, _ := newTestLimiter(120, 10)
	defer rl.Stop()

	w := sendFrom(newRateLimitRouter(rl), "10.0.0.1:1234")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "120" {
		t.Errorf("X-RateLimit-Limit = %q, want 120", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "9" {
		t.Errorf("X-RateLimit-Remaining = %q, want 9", got)
	}
}

func TestRateLimitMiddleware_Blocked(t *testing.T) {
	rl, _ := newTestLimiter(1, 1)
	defer rl.Stop()

	r := newRateLimitRouter(rl)

	if first := sendFrom(r, "10.0.0.2:1234"); first.Code != http.StatusOK {
		t.Errorf("first request status = %d, want 200", first.Code)
	}

	w := sendFrom(r, "10.0.0.2:1234")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", w.Code)
	}
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retryAfter < 1 || retryAfter > 60 {
		t.Errorf("Retry-After = %q, want 1..60", w.Header().Get("Retry-After"))
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	w := sendFrom(newRateLimitRouter(failingLimiter{}), "10.0.0.3:1234")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when the limiter is unavailable", w.Code)
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "" {
		t.Errorf("X-RateLimit-Limit = %q, want no header when the limiter failed", got)
	}
}
