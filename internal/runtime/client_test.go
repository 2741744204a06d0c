package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"modelgate/internal/breaker"
)

// newTestClient wires a client with instant backoff sleeps.
func newTestClient(t *testing.T, url string, cfg Config) *Client {
	t.Helper()
	cfg.BaseURL = url
	c := New(cfg)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestDoRetriesTransientStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{})
	if _, err := c.do(context.Background(), http.MethodGet, "/api/ps", nil, time.Second); err != nil {
		t.Fatalf("expected success after retries: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{MaxAttempts: 2})
	if _, err := c.do(context.Background(), http.MethodGet, "/api/ps", nil, time.Second); err == nil {
		t.Fatalf("expected error after exhausted retries")
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected 2 attempts, got %d", n)
	}
}

func TestDoNonRetryableStatusFailsImmediately(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{})
	_, err := c.do(context.Background(), http.MethodGet, "/api/ps", nil, time.Second)
	if err == nil {
		t.Fatalf("expected error on 404")
	}
	if StatusCode(err) != http.StatusNotFound {
		t.Fatalf("expected status 404 carried, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("404 must not be retried, got %d attempts", n)
	}
}

func TestDoPropagatesCircuitOpenWithoutCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	br := breaker.New(breaker.Config{FailThreshold: 1, ResetTimeout: time.Minute})
	br.RecordFailure() // open the circuit
	c := newTestClient(t, srv.URL, Config{Breaker: br})

	_, err := c.do(context.Background(), http.MethodGet, "/api/ps", nil, time.Second)
	if !breaker.IsCircuitOpen(err) {
		t.Fatalf("expected circuit open, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("open circuit must short-circuit the HTTP call, got %d", n)
	}
	// The rejection path refreshes the state gauge too.
	if v := testutil.ToFloat64(breakerState); v != 2 {
		t.Fatalf("expected breaker_state gauge=2 after open rejection, got %v", v)
	}
}

func TestDoRecordsBreakerOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	br := breaker.New(breaker.Config{FailThreshold: 3, ResetTimeout: time.Minute})
	c := newTestClient(t, srv.URL, Config{Breaker: br, MaxAttempts: 3})
	if _, err := c.do(context.Background(), http.MethodGet, "/api/ps", nil, time.Second); err == nil {
		t.Fatalf("expected failure")
	}
	if snap := br.Snapshot(); snap.State != "open" {
		t.Fatalf("expected breaker open after 3 failures, got %+v", snap)
	}
}

func TestTriggerLoadWirePayload(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte(`{"done":true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{})
	if err := c.TriggerLoad(context.Background(), "phi3:mini"); err != nil {
		t.Fatalf("trigger load: %v", err)
	}
	if got.Model != "phi3:mini" {
		t.Fatalf("expected model phi3:mini, got %q", got.Model)
	}
	if np, ok := got.Options["num_predict"]; !ok || np != float64(1) {
		t.Fatalf("expected num_predict=1, got %v", got.Options)
	}
}

func TestTriggerUnloadWirePayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte(`{"done":true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{})
	if err := c.TriggerUnload(context.Background(), "phi3:mini"); err != nil {
		t.Fatalf("trigger unload: %v", err)
	}
	if ka, ok := got["keep_alive"]; !ok || ka != float64(0) {
		t.Fatalf("expected keep_alive=0, got %v", got)
	}
}

func TestListLoadedParsesPS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ps" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"llama3.2:3b","size":2048000000},{"name":"phi3:mini","size":1024000000}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{})
	got, err := c.ListLoaded(context.Background())
	if err != nil {
		t.Fatalf("list loaded: %v", err)
	}
	if len(got) != 2 || got[0].Name != "llama3.2:3b" || got[1].SizeBytes != 1024000000 {
		t.Fatalf("unexpected resident models: %+v", got)
	}
}

func TestListTagsAndHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"llama3.2:3b"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Config{})
	tags, err := c.ListTags(context.Background())
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	if len(tags) != 1 || tags[0] != "llama3.2:3b" {
		t.Fatalf("unexpected tags: %v", tags)
	}
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestBackoffBoundsAndFloor(t *testing.T) {
	c := New(Config{BaseURL: "http://localhost:0", BackoffBase: 100 * time.Millisecond, BackoffFactor: 2})
	for attempt := 0; attempt < 3; attempt++ {
		want := 100 * time.Millisecond
		for i := 0; i < attempt; i++ {
			want *= 2
		}
		for i := 0; i < 50; i++ {
			d := c.backoff(attempt)
			lo := time.Duration(float64(want) * 0.8)
			hi := time.Duration(float64(want) * 1.2)
			if d < lo || d > hi {
				t.Fatalf("attempt %d: backoff %v outside [%v,%v]", attempt, d, lo, hi)
			}
		}
	}
	// Tiny base gets floored.
	c2 := New(Config{BaseURL: "http://localhost:0", BackoffBase: time.Millisecond, BackoffFactor: 2})
	for i := 0; i < 20; i++ {
		if d := c2.backoff(0); d < minBackoff {
			t.Fatalf("backoff %v below floor", d)
		}
	}
}
