package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcher_DebouncesWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restaurant_log.csv")
	if err := os.WriteFile(path, []byte("Timestamp,Tables\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(100 * time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	var calls atomic.Int32
	fired := make(chan struct{}, 4)
	w.OnChange = func(ctx context.Context, p string) error {
		calls.Add(1)
		fired <- struct{}{}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		f.WriteString("2025-05-01 12:00:00,Group 1\n")
		time.Sleep(10 * time.Millisecond)
	}
	f.Close()

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("OnChange was not called")
	}

	// Give a stray second timer time to fire.
	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("Expected 1 debounced call, got %d", n)
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Run did not return after cancel")
	}
}

func TestWatcher_MissingFile(t *testing.T) {
	w, err := NewWatcher(0)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	if w.debounce != DefaultDebounce {
		t.Errorf("Expected default debounce, got %v", w.debounce)
	}
	if err := w.Watch(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("Expected error for missing file")
	}
}
