package selection

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), 5*time.Minute)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return store, s
}

func TestSetAndGetSelection(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	sel := Selection{Start: 13, End: 16, SelectedText: "12%"}

	if err := store.Set(ctx, "sec-1", "usr-1", sel); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, "sec-1", "usr-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a selection, got nil")
	}
	if got.Start != 13 || got.End != 16 || got.SelectedText != "12%" {
		t.Errorf("unexpected selection: %+v", got)
	}
}

func TestGetMissingSelectionReturnsNil(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	got, err := store.Get(context.Background(), "sec-1", "usr-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing selection, got %+v", got)
	}
}

func TestSelectionExpires(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "sec-1", "usr-1", Selection{Start: 0, End: 5, SelectedText: "hello"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	s.FastForward(6 * time.Minute)

	got, err := store.Get(ctx, "sec-1", "usr-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected selection to expire, got %+v", got)
	}
}

func TestClearSelection(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "sec-1", "usr-1", Selection{Start: 0, End: 5, SelectedText: "hello"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Clear(ctx, "sec-1", "usr-1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	got, err := store.Get(ctx, "sec-1", "usr-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after clear, got %+v", got)
	}

	// Clearing again is a no-op.
	if err := store.Clear(ctx, "sec-1", "usr-1"); err != nil {
		t.Errorf("Clear of missing key failed: %v", err)
	}
}

func TestSelectionsIsolatedByUserAndSection(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "sec-1", "usr-1", Selection{Start: 1, End: 2, SelectedText: "a"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, "sec-1", "usr-2", Selection{Start: 3, End: 4, SelectedText: "b"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, "sec-2", "usr-1", Selection{Start: 5, End: 6, SelectedText: "c"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, "sec-1", "usr-1")
	if err != nil || got == nil || got.SelectedText != "a" {
		t.Fatalf("sec-1/usr-1 = %+v, err %v", got, err)
	}
	got, err = store.Get(ctx, "sec-1", "usr-2")
	if err != nil || got == nil || got.SelectedText != "b" {
		t.Fatalf("sec-1/usr-2 = %+v, err %v", got, err)
	}

	if err := store.Clear(ctx, "sec-1", "usr-1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	got, err = store.Get(ctx, "sec-2", "usr-1")
	if err != nil || got == nil || got.SelectedText != "c" {
		t.Fatalf("sec-2/usr-1 after clear = %+v, err %v", got, err)
	}
}
