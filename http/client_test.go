package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"releasetracker/retry"
)

func newTestClient(retries int) *Client {
	cfg := DefaultConfig()
	cfg.Retry = retry.Config{
		MaxRetries:     retries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
	// Tests hammer a local httptest server; don't throttle it.
	cfg.RateLimiter.CustomRates = map[string]float64{"127.0.0.1": 0}
	return New(cfg)
}

func TestClientGet_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := newTestClient(0)
	defer c.Close()

	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if string(resp.Body) != "hello" {
		t.Errorf("Body = %q, want %q", resp.Body, "hello")
	}
}

func TestClientDo_RetriesServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := newTestClient(3)
	defer c.Close()

	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("server saw %d calls, want 3", calls)
	}
	if string(resp.Body) != "ok" {
		t.Errorf("Body = %q, want %q", resp.Body, "ok")
	}
}

func TestClientDo_PermanentClientError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(3)
	defer c.Close()

	_, err := c.Get(context.Background(), srv.URL)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Get() error = %v, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", httpErr.StatusCode)
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want 1 (no retry on 4xx)", calls)
	}
}

func TestClientPostJSON_SendsBodyEveryAttempt(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		bodies = append(bodies, string(buf))
		if len(bodies) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(2)
	defer c.Close()

	_, err := c.PostJSON(context.Background(), srv.URL, []byte(`{"q":1}`))
	if err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}
	if len(bodies) != 2 {
		t.Fatalf("server saw %d attempts, want 2", len(bodies))
	}
	for i, b := range bodies {
		if b != `{"q":1}` {
			t.Errorf("attempt %d body = %q, want full body resent", i+1, b)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	h := http.Header{}
	if got := parseRetryAfter(h); got != 0 {
		t.Errorf("parseRetryAfter(empty) = %v, want 0", got)
	}

	h.Set("Retry-After", "7")
	if got := parseRetryAfter(h); got != 7*time.Second {
		t.Errorf("parseRetryAfter(7) = %v, want 7s", got)
	}

	h.Set("Retry-After", "not a number or date")
	if got := parseRetryAfter(h); got != 0 {
		t.Errorf("parseRetryAfter(garbage) = %v, want 0", got)
	}
}

func TestRateLimiterDomainRates(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		DataAPIRPS:   1.0,
		FeedRPS:      10.0,
		GeneratorRPS: 2.0,
	})

	tests := []struct {
		url  string
		want float64
	}{
		{"https://www.googleapis.com/youtube/v3/channels", 1.0},
		{"https://www.youtube.com/feeds/videos.xml?channel_id=x", 10.0},
		{"http://localhost:11434/api/generate", 2.0},
	}
	for _, tt := range tests {
		domain := rl.extractDomain(tt.url)
		if got := rl.getRPS(domain); got != tt.want {
			t.Errorf("getRPS(%s) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestRateLimiterBackoffGrowsAndRecovers(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	url := "https://www.googleapis.com/youtube/v3/search"

	first := rl.RecordRateLimitError(url, 0)
	second := rl.RecordRateLimitError(url, 0)
	if second <= first {
		t.Errorf("backoff did not grow: first %v, second %v", first, second)
	}

	state := rl.GetBackoffState(url)
	if state == nil || state.ConsecutiveErrors != 2 {
		t.Fatalf("backoff state = %+v, want 2 consecutive errors", state)
	}

	rl.RecordSuccess(url)
	rl.RecordSuccess(url)
	state = rl.GetBackoffState(url)
	if state == nil || state.ConsecutiveErrors != 0 {
		t.Errorf("after successes state = %+v, want 0 consecutive errors", state)
	}
}

func TestRateLimiterHonorsServerRetryAfter(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())

	got := rl.RecordRateLimitError("https://www.youtube.com/feed", 45*time.Second)
	if got != 45*time.Second {
		t.Errorf("RecordRateLimitError() = %v, want server-specified 45s", got)
	}
}
