package ratelimit

import (
	"net/http"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	// 5 requests per minute, burst of 5.
	l := NewLimiter(5, time.Minute, 5)
	defer l.Close()

	key := "10.0.0.1"
	for i := range 5 {
		result := l.Allow(key)
		if !result.Allowed {
			t.Errorf("request %d should be allowed", i+1)
		}
		if result.Limit != 5 {
			t.Errorf("expected Limit=5, got %d", result.Limit)
		}
	}

	result := l.Allow(key)
	if result.Allowed {
		t.Error("6th request should be rate limited")
	}
	if result.RetryAfter < time.Second {
		t.Errorf("expected RetryAfter >= 1s, got %v", result.RetryAfter)
	}
}

func TestLimiter_DifferentKeys(t *testing.T) {
	l := NewLimiter(5, time.Minute, 5)
	defer l.Close()

	for range 5 {
		l.Allow("10.0.0.1")
	}
	if result := l.Allow("10.0.0.1"); result.Allowed {
		t.Error("first key should be rate limited")
	}

	// The second key still has its full quota.
	for range 5 {
		if result := l.Allow("10.0.0.2"); !result.Allowed {
			t.Error("second key should not be rate limited")
		}
	}
}

func TestLimiter_Result(t *testing.T) {
	l := NewLimiter(10, time.Minute, 10)
	defer l.Close()

	result := l.Allow("10.0.0.1")
	if !result.Allowed {
		t.Error("first request should be allowed")
	}
	if result.Limit != 10 {
		t.Errorf("expected Limit=10, got %d", result.Limit)
	}
	if result.Remaining < 0 || result.Remaining > 10 {
		t.Errorf("Remaining out of range: %d", result.Remaining)
	}
	if result.ResetAt.IsZero() {
		t.Error("ResetAt should not be zero")
	}
	if result.RetryAfter != 0 {
		t.Errorf("RetryAfter should be 0 for allowed requests, got %v", result.RetryAfter)
	}
}

func TestLimiters_Match(t *testing.T) {
	l := NewLimiters(600, 60)
	defer l.Close()

	if got := l.Match(http.MethodGet, "/api/tree"); got != l.Read {
		t.Error("GET should use the read tier")
	}
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		if got := l.Match(method, "/api/items"); got != l.Write {
			t.Errorf("%s should use the write tier", method)
		}
	}
	if got := l.Match(http.MethodGet, "/api/health"); got != nil {
		t.Error("health check should never be limited")
	}
}

func TestLimiters_DisabledTiers(t *testing.T) {
	l := NewLimiters(0, 0)
	defer l.Close()

	if got := l.Match(http.MethodGet, "/api/tree"); got != nil {
		t.Error("zero budget should disable the read tier")
	}
	if got := l.Match(http.MethodPost, "/api/items"); got != nil {
		t.Error("zero budget should disable the write tier")
	}
}
