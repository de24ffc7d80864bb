package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiter_Allow(t *testing.T) {
	limiter := NewIPRateLimiter(6, 2)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if !limiter.Allow("10.0.0.1") || !limiter.Allow("10.0.0.1") {
		t.Fatalf("burst of 2 must be allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatalf("third request must be limited")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatalf("other IPs have their own bucket")
	}

	now = now.Add(10 * time.Second)
	if !limiter.Allow("10.0.0.1") {
		t.Fatalf("token must refill after 10s at 6/min")
	}

	now = now.Add(time.Hour)
	limiter.Allow("10.0.0.3")
	if _, ok := limiter.visitors["10.0.0.1"]; ok {
		t.Fatalf("idle visitor must be evicted")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimit(NewIPRateLimiter(1, 1))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cycles/run", nil)
		req.RemoteAddr = "192.0.2.10:5555"
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.1:80", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.6"}, "10.0.0.1:80", "203.0.113.6"},
		{"remote addr", nil, "198.51.100.7:4242", "198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Fatalf("ClientIP() = %s, want %s", got, tt.want)
			}
		})
	}
}
