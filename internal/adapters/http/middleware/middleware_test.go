package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)
	rl := NewRateLimiter(2, time.Second, stop)
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("1.2.3.4") {
		t.Error("third request inside the interval should be limited")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other IPs have their own bucket")
	}
	now = now.Add(time.Second)
	if !rl.Allow("1.2.3.4") {
		t.Error("bucket should refill after the interval")
	}
}

// TestRateLimiter_SteadyTrafficBelowLimit verifies that requests spaced closer
// than one interval still accumulate refills.
// PRE: 20 requests/second allowed, client sends one every 900ms
// POST: every request passes
func TestRateLimiter_SteadyTrafficBelowLimit(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)
	rl := NewRateLimiter(20, time.Second, stop)
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 60; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d at %s rejected", i+1, now.Format(time.TimeOnly))
		}
		now = now.Add(900 * time.Millisecond)
	}
}

// TestRateLimiter_BurstThenRecover verifies a drained bucket refills by whole
// intervals measured from the last refill, not the last request.
func TestRateLimiter_BurstThenRecover(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)
	rl := NewRateLimiter(3, time.Second, stop)
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		rl.Allow("ip")
	}
	for i := 0; i < 3; i++ {
		now = now.Add(400 * time.Millisecond)
		rl.Allow("ip")
	}
	// 1.2s since the first request: one refill has landed and been partly spent.
	now = now.Add(900 * time.Millisecond)
	allowed := 0
	for i := 0; i < 5; i++ {
		if rl.Allow("ip") {
			allowed++
		}
	}
	if allowed != 3 {
		t.Errorf("allowed after second refill = %d, want 3", allowed)
	}
}

func TestRateLimit_Returns429(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)
	h := RateLimit(NewRateLimiter(1, time.Hour, stop))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := []int{}
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func TestCSRF_ExemptsJSON(t *testing.T) {
	key := make([]byte, 32)
	h := CSRF(key, false, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/schedules", nil)
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Errorf("JSON post status = %d, want 204", rr.Code)
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/schedules", nil)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("form post without token status = %d, want 403", rr.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Header().Get("X-Frame-Options") != "DENY" || rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("headers = %v", rr.Header())
	}
}
