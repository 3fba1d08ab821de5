package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/navigator/internal/triage"
)

func TestStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	c := &triage.CaseState{ID: "0001_150126", Path: triage.PathStandard, Phase: triage.PhaseLocation}
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := s.Load(ctx, "0001_150126")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("expected case to be found")
	}
	if got.ID != c.ID || got.Path != c.Path || got.Phase != c.Phase {
		t.Errorf("Load = %+v, want %+v", got, c)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	t.Parallel()

	s := New()
	_, ok, err := s.Load(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing ID")
	}
}

func TestStore_LoadReturnsCopy(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	c := &triage.CaseState{ID: "c-1", Clinical: triage.ClinicalData{RedFlags: []string{"Dispnea grave"}}}
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, _, _ := s.Load(ctx, "c-1")
	got.Clinical.RedFlags[0] = "mutated"
	got.Meta.Urgency = 5

	again, _, _ := s.Load(ctx, "c-1")
	if again.Clinical.RedFlags[0] != "Dispnea grave" {
		t.Error("mutation of a loaded copy leaked into the store")
	}
	if again.Meta.Urgency != 0 {
		t.Error("urgency mutation leaked into the store")
	}
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	if err := s.Save(ctx, &triage.CaseState{ID: "c-2"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(ctx, "c-2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Load(ctx, "c-2"); ok {
		t.Fatal("case still present after Delete")
	}
	// Absent IDs are fine.
	if err := s.Delete(ctx, "c-2"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
}

func TestStore_ListActive(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	if err := s.Save(ctx, &triage.CaseState{ID: "open-1"}); err != nil {
		t.Fatal(err)
	}
	resolved := &triage.CaseState{ID: "done-1", Disposition: &triage.Disposition{FacilityKind: "CAU"}}
	if err := s.Save(ctx, resolved); err != nil {
		t.Fatal(err)
	}

	active, err := s.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 || active[0].ID != "open-1" {
		t.Errorf("ListActive = %+v, want only open-1", active)
	}
}

func TestStore_DeleteOlderThan(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	now := time.Now()

	if err := s.Save(ctx, &triage.CaseState{ID: "old", UpdatedAt: now.Add(-48 * time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, &triage.CaseState{ID: "fresh", UpdatedAt: now}); err != nil {
		t.Fatal(err)
	}

	n, err := s.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}
	if _, ok, _ := s.Load(ctx, "old"); ok {
		t.Error("stale case survived cleanup")
	}
	if _, ok, _ := s.Load(ctx, "fresh"); !ok {
		t.Error("fresh case was removed")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	const n = 100

	var wg sync.WaitGroup
	wg.Add(n * 2)

	for i := range n {
		id := fmt.Sprintf("id-%d", i)

		go func() {
			defer wg.Done()
			_ = s.Save(ctx, &triage.CaseState{ID: id})
		}()

		go func() {
			defer wg.Done()
			_, _, _ = s.Load(ctx, id)
			_, _ = s.ListActive(ctx)
		}()
	}

	wg.Wait()
}
