package authapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPLimiter_BurstThenRefill(t *testing.T) {
	l := newIPLimiter(1, 2, time.Minute)
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		if ok, _ := l.allow("10.0.0.1", now); !ok {
			t.Fatalf("attempt %d: expected allow within burst", i)
		}
	}
	ok, retry := l.allow("10.0.0.1", now)
	if ok {
		t.Fatalf("expected block after burst")
	}
	if retry <= 0 || retry > time.Second {
		t.Fatalf("expected retry in (0,1s], got %v", retry)
	}

	// A different key has its own bucket.
	if ok, _ := l.allow("10.0.0.2", now); !ok {
		t.Fatalf("expected independent bucket per ip")
	}

	if ok, _ := l.allow("10.0.0.1", now.Add(time.Second)); !ok {
		t.Fatalf("expected allow after refill")
	}
}

func TestIPLimiter_NilAllows(t *testing.T) {
	l := newIPLimiter(0, 1, time.Minute)
	if l != nil {
		t.Fatalf("expected nil limiter for non-positive rate")
	}
	if ok, _ := l.allow("10.0.0.1", time.Now()); !ok {
		t.Fatalf("nil limiter must allow")
	}
}

func TestIPLimiter_SweepsIdleBuckets(t *testing.T) {
	l := newIPLimiter(1, 1, time.Minute)
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)

	l.allow("10.0.0.1", now)
	l.allow("10.0.0.2", now.Add(2*time.Minute))

	if _, ok := l.buckets["10.0.0.1"]; ok {
		t.Fatalf("expected idle bucket to be swept")
	}
	if len(l.buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(l.buckets))
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	r.RemoteAddr = "192.0.2.10:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	if got := clientIP(r, false).String(); got != "192.0.2.10" {
		t.Fatalf("untrusted proxy: got %s", got)
	}
	if got := clientIP(r, true).String(); got != "203.0.113.7" {
		t.Fatalf("trusted proxy: got %s", got)
	}
}

func TestWriteRateLimited_RoundsUp(t *testing.T) {
	rr := httptest.NewRecorder()
	writeRateLimited(rr, 1500*time.Millisecond)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After=%q, want 2", got)
	}
}
