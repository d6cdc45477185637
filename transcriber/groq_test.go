package transcriber

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestIsRateLimited(t *testing.T) {
	for _, tt := range []struct {
		msg  string
		want bool
	}{
		{"Rate limit reached for model", true},
		{"groq API error 429: slow down", true},
		{"quota exceeded", true},
		{"too many requests", true},
		{"server overloaded", true},
		{"connection refused", false},
		{"groq API error 500: internal", false},
	} {
		t.Run(tt.msg, func(t *testing.T) {
			if got := isRateLimited(tt.msg); got != tt.want {
				t.Errorf("isRateLimited(%q) = %v, want %v", tt.msg, got, tt.want)
			}
		})
	}
}

func newTestGroq(t *testing.T, server *httptest.Server, keys ...string) *Groq {
	t.Helper()
	ring, err := NewKeyRing(keys, DefaultCooldown)
	if err != nil {
		t.Fatalf("NewKeyRing: %v", err)
	}
	g := &Groq{
		client:        NewTracedClient(),
		ring:          ring,
		transcribeURL: server.URL,
		completeURL:   server.URL,
	}
	return g
}

func TestTranscribeSuccess(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{"text":"  hello world  "}`))
	}))
	defer server.Close()

	g := newTestGroq(t, server, "key-1")
	text, err := g.Transcribe([]byte("fLaC...."), "flac")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}
	if auth != "Bearer key-1" {
		t.Errorf("auth = %q, want Bearer key-1", auth)
	}
}

func TestTranscribeExhaustsKeysOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limit exceeded"))
	}))
	defer server.Close()

	g := newTestGroq(t, server, "key-1", "key-2")

	_, err := g.Transcribe([]byte("audio"), "flac")
	if !IsRateLimited(err) {
		t.Fatalf("err = %v, want keys-exhausted", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("network attempts = %d, want 2 (one sweep)", n)
	}
	for _, key := range []string{"key-1", "key-2"} {
		if !g.ring.CoolingDown(key) {
			t.Errorf("%s not in cooldown", key)
		}
	}

	// Every key is cooling down: the next call fails without touching the
	// network.
	_, err = g.Transcribe([]byte("audio"), "flac")
	if !IsRateLimited(err) {
		t.Fatalf("second call err = %v, want keys-exhausted", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("network attempts after cooldown = %d, want 2", n)
	}
}

func TestTranscribeAdvancesOnTransientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("internal error"))
			return
		}
		w.Write([]byte(`{"text":"second key wins"}`))
	}))
	defer server.Close()

	g := newTestGroq(t, server, "key-1", "key-2")

	text, err := g.Transcribe([]byte("audio"), "flac")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "second key wins" {
		t.Errorf("text = %q", text)
	}
	// A transient failure rotates but must not start a cooldown.
	if g.ring.CoolingDown("key-1") {
		t.Error("key-1 cooled down after non-rate-limit failure")
	}
}

func TestComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"Cleaned text."}}]}`))
	}))
	defer server.Close()

	g := newTestGroq(t, server, "key-1")
	text, err := g.Complete("system prompt", "raw text")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "Cleaned text." {
		t.Errorf("text = %q", text)
	}
}
