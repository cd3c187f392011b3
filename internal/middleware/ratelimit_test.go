package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func limitedRequest(addr string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	r.RemoteAddr = addr
	return r
}

func TestRateLimiter_BurstThenThrottles(t *testing.T) {
	rl := NewRateLimiter(0.001, 2) // refill slow enough to be irrelevant
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, limitedRequest("203.0.113.7:1234"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: got %d, want 200", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, limitedRequest("203.0.113.7:1234"))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("over-burst request: got %d, want 429", rec.Code)
	}
}

func TestRateLimiter_TracksClientsSeparately(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, limitedRequest("203.0.113.7:1234"))
	if rec.Code != http.StatusOK {
		t.Fatalf("first client: got %d, want 200", rec.Code)
	}

	// A different source port is the same client; a different IP is not.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, limitedRequest("203.0.113.7:9999"))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("same IP, new port: got %d, want 429", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, limitedRequest("198.51.100.9:1234"))
	if rec.Code != http.StatusOK {
		t.Errorf("second client: got %d, want 200", rec.Code)
	}
}
