package seqid

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

func newGenerator(t *testing.T, now func() time.Time) *Generator {
	t.Helper()
	g, err := New(Options{Dir: t.TempDir(), Now: now})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestNextFormat(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 1, 15, 10, 0, 0, 0, time.Local)
	g := newGenerator(t, func() time.Time { return fixed })

	id, err := g.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if id != "0001_150126" {
		t.Errorf("first id = %q, want 0001_150126", id)
	}

	id, err = g.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if id != "0002_150126" {
		t.Errorf("second id = %q, want 0002_150126", id)
	}
}

func TestNextDayBoundaryReset(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 1, 15, 23, 59, 0, 0, time.Local)
	g := newGenerator(t, func() time.Time { return day })

	for i := 0; i < 3; i++ {
		if _, err := g.Next(context.Background()); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}

	day = day.Add(2 * time.Minute) // crosses midnight
	id, err := g.Next(context.Background())
	if err != nil {
		t.Fatalf("Next after midnight: %v", err)
	}
	if id != "0001_160126" {
		t.Errorf("id after day boundary = %q, want 0001_160126", id)
	}
}

func TestNextConcurrent(t *testing.T) {
	t.Parallel()

	g := newGenerator(t, time.Now)
	const n = 20

	var (
		mu  sync.Mutex
		ids []string
		wg  sync.WaitGroup
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			id, err := g.Next(context.Background())
			if err != nil {
				t.Errorf("Next: %v", err)
				return
			}
			mu.Lock()
			ids = append(ids, id)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(ids) != n {
		t.Fatalf("got %d ids, want %d", len(ids), n)
	}

	seen := make(map[string]struct{}, n)
	suffix := ""
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id issued: %s", id)
		}
		seen[id] = struct{}{}
		parts := strings.SplitN(id, "_", 2)
		if suffix == "" {
			suffix = parts[1]
		} else if parts[1] != suffix {
			t.Fatalf("mixed date suffixes: %s vs %s", parts[1], suffix)
		}
	}

	sort.Strings(ids)
	for i, id := range ids {
		want := fmt.Sprintf("%04d_%s", i+1, suffix)
		if id != want {
			t.Fatalf("ids not a dense sequence: got %s at position %d, want %s", id, i, want)
		}
	}
}

func TestNextStaleLockReclaimed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.Local)
	g, err := New(Options{Dir: dir, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Simulate a crashed holder: a lock file whose mtime is past the
	// staleness threshold relative to the generator's clock.
	lock := filepath.Join(dir, "case_counter.lock")
	if err := os.WriteFile(lock, []byte("999 crashed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := now.Add(-2 * staleAfter)
	if err := os.Chtimes(lock, old, old); err != nil {
		t.Fatal(err)
	}

	id, err := g.Next(context.Background())
	if err != nil {
		t.Fatalf("Next with stale lock: %v", err)
	}
	if id != "0001_150126" {
		t.Errorf("id = %q, want 0001_150126", id)
	}
}

func TestNextLockTimeout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	g, err := New(Options{Dir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// A fresh foreign lock that never goes away exhausts the retry budget.
	lock := filepath.Join(dir, "case_counter.lock")
	if err := os.WriteFile(lock, []byte("1 held\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	refresh := make(chan struct{})
	go func() {
		// Keep the lock fresh so staleness reclamation cannot fire.
		tick := time.NewTicker(5 * time.Second)
		defer tick.Stop()
		for {
			select {
			case <-refresh:
				return
			case <-tick.C:
				now := time.Now()
				_ = os.Chtimes(lock, now, now)
			}
		}
	}()
	defer close(refresh)

	_, err = g.Next(context.Background())
	var lte *LockTimeoutError
	if !errors.As(err, &lte) {
		t.Fatalf("err = %v, want LockTimeoutError", err)
	}
	if lte.Attempts != maxAttempts {
		t.Errorf("attempts = %d, want %d", lte.Attempts, maxAttempts)
	}
}

func TestNextContextCancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	g, err := New(Options{Dir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "case_counter.lock"), []byte("1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
