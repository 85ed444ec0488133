package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func startWatcher(t *testing.T, path string, debounce time.Duration) (*atomic.Int32, context.CancelFunc) {
	t.Helper()
	w, err := New(path, debounce, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, func(context.Context) { calls.Add(1) })
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = w.Close()
	})
	// Give the event loop a moment to start.
	time.Sleep(20 * time.Millisecond)
	return &calls, cancel
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}

	calls, _ := startWatcher(t, path, 100*time.Millisecond)

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte(`{"n":`+string(rune('0'+i))+`}`), 0o600); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	waitFor(t, func() bool { return calls.Load() >= 1 })
	time.Sleep(250 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("expected one callback for the burst, got %d", got)
	}
}

func TestIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}

	calls, _ := startWatcher(t, path, 30*time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "config.json.enc"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("unrelated file triggered %d callbacks", got)
	}
}

func TestRenameOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}

	calls, _ := startWatcher(t, path, 30*time.Millisecond)

	tmp := filepath.Join(dir, ".config.json.tmp")
	if err := os.WriteFile(tmp, []byte(`{"saved":true}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return calls.Load() == 1 })
}

func TestRunStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	w, err := New(path, 0, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx, func(context.Context) {}); err != nil {
		t.Errorf("Run() = %v, want nil", err)
	}
}
