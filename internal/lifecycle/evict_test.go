package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"modelgate/pkg/types"
)

func TestEvictIdleRemovesExpired(t *testing.T) {
	rt := &fakeRuntime{}
	m, clk := newTestManager(t, rt, nil)
	ctx := context.Background()
	if !m.EnsureLoaded(ctx, "model-c") { // timeout 10m
		t.Fatalf("ensure model-c failed")
	}
	if !m.EnsureLoaded(ctx, "model-d") { // timeout 5m
		t.Fatalf("ensure model-d failed")
	}

	clk.advance(6 * time.Minute)
	m.evictIdle(ctx)

	if _, ok := m.loaded["model-d"]; ok {
		t.Fatalf("model-d idle 6m > 5m timeout, should be evicted")
	}
	if _, ok := m.loaded["model-c"]; !ok {
		t.Fatalf("model-c idle 6m < 10m timeout, should stay")
	}
	unloads := rt.unloadCalls()
	if len(unloads) != 1 || unloads[0] != "model-d" {
		t.Fatalf("expected unload of model-d only, got %v", unloads)
	}
	if m.usedMB != 5000 {
		t.Fatalf("expected used=5000 after eviction, got %d", m.usedMB)
	}
}

func TestEvictIdleNeverTouchesPinned(t *testing.T) {
	rt := &fakeRuntime{}
	m, clk := newTestManager(t, rt, nil)
	ctx := context.Background()
	if !m.EnsureLoaded(ctx, "base-a") {
		t.Fatalf("ensure base-a failed")
	}
	clk.advance(24 * time.Hour)
	m.evictIdle(ctx)
	if _, ok := m.loaded["base-a"]; !ok {
		t.Fatalf("pinned model evicted by idle pass")
	}
	if len(rt.unloadCalls()) != 0 {
		t.Fatalf("no unload expected, got %v", rt.unloadCalls())
	}
}

func TestEvictIdleZeroTimeoutNeverEvicts(t *testing.T) {
	rt := &fakeRuntime{}
	m, clk := newTestManager(t, rt, func(cfg *ManagerConfig) {
		cfg.Catalog = append(cfg.Catalog, typesModelNoTimeout())
	})
	ctx := context.Background()
	if !m.EnsureLoaded(ctx, "model-z") {
		t.Fatalf("ensure model-z failed")
	}
	clk.advance(24 * time.Hour)
	m.evictIdle(ctx)
	if _, ok := m.loaded["model-z"]; !ok {
		t.Fatalf("zero idle timeout means never evicted")
	}
}

// Eviction is fail-open: a failed unload trigger still drops the entry so
// a phantom resident model cannot block admission forever.
func TestEvictIdleFailOpenOnUnloadError(t *testing.T) {
	rt := &fakeRuntime{unloadErr: map[string]error{"model-d": errors.New("timeout")}}
	m, clk := newTestManager(t, rt, nil)
	ctx := context.Background()
	if !m.EnsureLoaded(ctx, "model-d") {
		t.Fatalf("ensure model-d failed")
	}
	clk.advance(6 * time.Minute)
	m.evictIdle(ctx)
	if _, ok := m.loaded["model-d"]; ok {
		t.Fatalf("entry must be dropped even when the unload call fails")
	}
	// Freed capacity is immediately reusable.
	if !m.EnsureLoaded(ctx, "model-e") {
		t.Fatalf("admission should succeed after fail-open eviction")
	}
}

func TestEvictLoopRunsAndStops(t *testing.T) {
	rt := &fakeRuntime{}
	m, _ := newTestManager(t, rt, func(cfg *ManagerConfig) {
		cfg.EvictInterval = 10 * time.Millisecond
	})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	m.Stop()
	// Stop blocks until the loop goroutine is done; a second Stop is safe.
	m.Stop()
}

func typesModelNoTimeout() types.ModelDescriptor {
	return types.ModelDescriptor{Name: "model-z", RAMEstimateMB: 1000}
}
