package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"voxelsort.ai/internal/persistence/snapshot"
	"voxelsort.ai/internal/sim/grid"
	"voxelsort.ai/internal/sim/inventory"
	"voxelsort.ai/internal/sim/tick"
	"voxelsort.ai/internal/sim/tuning"
)

func TestLoadStore_FallsBackToEmptyWorld(t *testing.T) {
	store, start, err := loadStore(filepath.Join(t.TempDir(), "missing.yaml"), "", tuning.Defaults(), zap.NewNop())
	if err != nil {
		t.Fatalf("loadStore: %v", err)
	}
	if start != 0 {
		t.Fatalf("start tick=%d, want 0", start)
	}
	if len(store.Containers()) != 0 {
		t.Fatalf("expected empty store")
	}
}

func TestLoadStore_RejectsBrokenLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	if err := os.WriteFile(path, []byte("containers: [{x: 1}]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := loadStore(path, "", tuning.Defaults(), zap.NewNop()); err == nil {
		t.Fatalf("expected layout error")
	}
}

func TestRequestSnapshot_ResumesStore(t *testing.T) {
	store := grid.NewStore(27, 64)
	c := store.PlaceContainer(grid.At("OVERWORLD", 1, 64, 1), "CHEST")
	c.Mutate(func(inv *inventory.Inventory) { inv.Add("COAL", 12) })

	sched := tick.New(20)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200 && sched.Pending() == 0; i++ {
			time.Sleep(5 * time.Millisecond)
		}
		sched.Step()
	}()

	dir := t.TempDir()
	path, tk, err := requestSnapshot(context.Background(), sched, store, dir)
	<-done
	if err != nil {
		t.Fatalf("requestSnapshot: %v", err)
	}
	if tk != 0 || path != snapshot.Path(dir, 0) {
		t.Fatalf("tick=%d path=%s", tk, path)
	}

	resumed, start, err := loadStore("", snapshot.Latest(dir), tuning.Defaults(), zap.NewNop())
	if err != nil {
		t.Fatalf("loadStore: %v", err)
	}
	if start != 1 {
		t.Fatalf("start tick=%d, want 1", start)
	}
	rc, ok := resumed.ResolveContainer(grid.At("OVERWORLD", 1, 64, 1))
	if !ok || rc.Count("COAL") != 12 {
		t.Fatalf("container not resumed")
	}
}

func TestRequestSnapshot_StoppedScheduler(t *testing.T) {
	sched := tick.New(20)
	sched.Stop()
	if _, _, err := requestSnapshot(context.Background(), sched, grid.NewStore(27, 64), t.TempDir()); err != errSchedulerStopped {
		t.Fatalf("err=%v", err)
	}
}

func TestRestartChain_KeepsLatestWorld(t *testing.T) {
	dir := t.TempDir()
	at := grid.At("OVERWORLD", 1, 64, 1)

	// First run: fresh world, five ticks, shutdown snapshot.
	store := grid.NewStore(27, 64)
	c := store.PlaceContainer(at, "CHEST")
	c.Mutate(func(inv *inventory.Inventory) { inv.Add("COAL", 12) })
	sched := tick.New(20)
	for i := 0; i < 5; i++ {
		sched.Step()
	}
	if _, err := writeFinalSnapshot(sched, store, dir); err != nil {
		t.Fatalf("run1 snapshot: %v", err)
	}

	// Second run resumes and adds stock over a couple of ticks.
	store, start, err := loadStore("", snapshot.Latest(dir), tuning.Defaults(), zap.NewNop())
	if err != nil {
		t.Fatalf("run2 loadStore: %v", err)
	}
	if start != 6 {
		t.Fatalf("run2 start tick=%d, want 6", start)
	}
	sched = tick.NewAt(20, start)
	rc, ok := store.ResolveContainer(at)
	if !ok {
		t.Fatalf("run2: container missing")
	}
	for i := 0; i < 2; i++ {
		sched.Defer(func(uint64) {
			rc.Mutate(func(inv *inventory.Inventory) { inv.Add("COAL", 15) })
		})
		sched.Step()
	}
	path2, err := writeFinalSnapshot(sched, store, dir)
	if err != nil {
		t.Fatalf("run2 snapshot: %v", err)
	}

	// Third run must pick the second run's snapshot.
	latest := snapshot.Latest(dir)
	if latest != path2 {
		t.Fatalf("Latest=%s, want %s", filepath.Base(latest), filepath.Base(path2))
	}
	store, start, err = loadStore("", latest, tuning.Defaults(), zap.NewNop())
	if err != nil {
		t.Fatalf("run3 loadStore: %v", err)
	}
	if start != 9 {
		t.Fatalf("run3 start tick=%d, want 9", start)
	}
	rc, ok = store.ResolveContainer(at)
	if !ok {
		t.Fatalf("run3: container missing")
	}
	if rc.Count("COAL") != 42 {
		t.Fatalf("run3 COAL=%d, want 42", rc.Count("COAL"))
	}
}
