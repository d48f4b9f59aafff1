package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"voxelsort.ai/internal/persistence/snapshot"
	"voxelsort.ai/internal/sim/grid"
	"voxelsort.ai/internal/sim/tick"
	"voxelsort.ai/internal/sim/tuning"
)

var errSchedulerStopped = errors.New("scheduler stopped")

// loadStore resumes from a snapshot when one is given, else builds the
// layout file, else starts with an empty world. The returned tick is where
// the scheduler should start: one past the snapshot's tick, so snapshots
// written by this run sort after the one it resumed from.
func loadStore(layoutPath, snapPath string, tune tuning.Tuning, logger *zap.Logger) (*grid.Store, uint64, error) {
	if snapPath != "" {
		snap, err := snapshot.ReadSnapshot(snapPath)
		if err != nil {
			return nil, 0, err
		}
		store, err := snap.World.Build(tune.DefaultSlots, tune.MaxStackSize)
		if err != nil {
			return nil, 0, err
		}
		logger.Info("resumed from snapshot",
			zap.String("snapshot", filepath.Base(snapPath)),
			zap.Uint64("tick", snap.Header.Tick))
		return store, snap.Header.Tick + 1, nil
	}

	store, err := grid.LoadLayout(layoutPath, tune.DefaultSlots, tune.MaxStackSize)
	if err == nil {
		return store, 0, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, 0, err
	}
	logger.Info("layout not found; starting empty", zap.String("path", layoutPath))
	return grid.NewStore(tune.DefaultSlots, tune.MaxStackSize), 0, nil
}

// writeFinalSnapshot saves the store once the scheduler has drained.
func writeFinalSnapshot(sched *tick.Scheduler, store *grid.Store, dir string) (string, error) {
	tk := sched.CurrentTick()
	path := snapshot.Path(dir, tk)
	return path, snapshot.WriteSnapshot(path, snapshot.Capture(tk, store))
}

// requestSnapshot captures the store between moves and writes it outside the
// tick.
func requestSnapshot(ctx context.Context, sched *tick.Scheduler, store *grid.Store, dir string) (string, uint64, error) {
	ch := make(chan snapshot.SnapshotV1, 1)
	if !sched.Defer(func(tk uint64) { ch <- snapshot.Capture(tk, store) }) {
		return "", sched.CurrentTick(), errSchedulerStopped
	}
	select {
	case snap := <-ch:
		path := snapshot.Path(dir, snap.Header.Tick)
		return path, snap.Header.Tick, snapshot.WriteSnapshot(path, snap)
	case <-ctx.Done():
		return "", sched.CurrentTick(), ctx.Err()
	}
}
