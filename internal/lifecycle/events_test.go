package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// A load, an explicit unload and a fallback each publish one event, in
// that order, with their identifying fields.
func TestMemoryPublisherRecordsLifecycleEvents(t *testing.T) {
	pub := NewMemoryPublisher()
	rt := &fakeRuntime{loadErr: map[string]error{"model-d": errors.New("down")}}
	m, _ := newTestManager(t, rt, func(cfg *ManagerConfig) { cfg.Publisher = pub })
	ctx := context.Background()

	if !m.EnsureLoaded(ctx, "model-c") {
		t.Fatalf("ensure model-c failed")
	}
	if err := m.Unload(ctx, "model-c"); err != nil {
		t.Fatalf("unload: %v", err)
	}
	// model-d fails to load and its chain lands on base-a.
	if got, primary := m.EnsureLoadedWithFallback(ctx, "model-d"); got != "base-a" || primary {
		t.Fatalf("expected baseline fallback, got (%s,%v)", got, primary)
	}

	events := pub.Events()
	want := []struct{ name, model string }{
		{"model_loaded", "model-c"},
		{"model_unloaded", "model-c"},
		{"model_loaded", "base-a"},
		{"fallback", "base-a"},
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(events), events)
	}
	for i, w := range want {
		if events[i].Name != w.name || events[i].Model != w.model {
			t.Fatalf("event %d: expected %s/%s got %s/%s", i, w.name, w.model, events[i].Name, events[i].Model)
		}
	}
	if reason := events[1].Fields["reason"]; reason != "explicit" {
		t.Fatalf("expected explicit unload reason, got %v", reason)
	}
	if wanted := events[3].Fields["wanted"]; wanted != "model-d" {
		t.Fatalf("expected fallback wanted=model-d, got %v", wanted)
	}
}

// Idle eviction publishes model_unloaded with the idle reason.
func TestPublisherObservesIdleEviction(t *testing.T) {
	pub := NewMemoryPublisher()
	rt := &fakeRuntime{}
	m, clk := newTestManager(t, rt, func(cfg *ManagerConfig) { cfg.Publisher = pub })
	ctx := context.Background()
	if !m.EnsureLoaded(ctx, "model-d") {
		t.Fatalf("ensure failed")
	}
	clk.advance(6 * time.Minute)
	m.evictIdle(ctx)

	events := pub.Events()
	last := events[len(events)-1]
	if last.Name != "model_unloaded" || last.Model != "model-d" {
		t.Fatalf("expected idle unload event, got %+v", last)
	}
	if reason := last.Fields["reason"]; reason != "idle" {
		t.Fatalf("expected idle reason, got %v", reason)
	}
}

func TestLogPublisherDoesNotPanic(t *testing.T) {
	p := NewLogPublisher(zerolog.Nop())
	p.Publish(Event{Name: "model_loaded", Model: "base-a", Fields: map[string]any{"ram_mb": 3000}})
	p.Publish(Event{Name: "fallback"})
}
