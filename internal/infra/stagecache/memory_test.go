package stagecache

import (
	"context"
	"testing"
	"time"

	"agritrace/internal/domain"
)

func TestMemoryPutGet(t *testing.T) {
	cache := NewMemory()
	ctx := context.Background()

	status := domain.StageStatus{
		WorkflowID: "wf-1",
		Stage:      domain.StageGeolocationVerification,
		Order:      3,
		Progress:   50,
		CanAdvance: false,
		Blockers:   []string{"1 production units missing coordinates"},
	}
	if err := cache.Put(ctx, "wf-1", status, time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := cache.Get(ctx, "wf-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if got.Stage != domain.StageGeolocationVerification || got.Progress != 50 {
		t.Fatalf("unexpected cached status: %+v", got)
	}

	// The cached copy must not alias the caller's value.
	got.Progress = 99
	again, ok, err := cache.Get(ctx, "wf-1")
	if err != nil || !ok {
		t.Fatalf("second get: ok=%v err=%v", ok, err)
	}
	if again.Progress != 50 {
		t.Fatalf("cache entry mutated through returned pointer")
	}
}

func TestMemoryExpiry(t *testing.T) {
	cache := NewMemory()
	ctx := context.Background()

	if err := cache.Put(ctx, "wf-1", domain.StageStatus{WorkflowID: "wf-1"}, time.Nanosecond); err != nil {
		t.Fatalf("put: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, ok, _ := cache.Get(ctx, "wf-1"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestMemoryInvalidate(t *testing.T) {
	cache := NewMemory()
	ctx := context.Background()

	if err := cache.Put(ctx, "wf-1", domain.StageStatus{WorkflowID: "wf-1"}, 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := cache.Invalidate(ctx, "wf-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "wf-1"); ok {
		t.Fatalf("expected invalidated entry to miss")
	}
}
