package tick

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestStep_RunsInSubmissionOrder(t *testing.T) {
	s := New(20)
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		if !s.Defer(func(uint64) { got = append(got, i) }) {
			t.Fatalf("Defer rejected task %d", i)
		}
	}
	if tk := s.Step(); tk != 0 {
		t.Fatalf("first step tick=%d, want 0", tk)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("order=%v", got)
		}
	}
	if len(got) != 5 || s.CurrentTick() != 1 {
		t.Fatalf("ran=%d tick=%d", len(got), s.CurrentTick())
	}
}

func TestStep_TasksDeferredDuringStepWaitForNextTick(t *testing.T) {
	s := New(20)
	var ticks []uint64
	s.Defer(func(tk uint64) {
		ticks = append(ticks, tk)
		s.Defer(func(tk uint64) { ticks = append(ticks, tk) })
	})
	s.Step()
	if len(ticks) != 1 || s.Pending() != 1 {
		t.Fatalf("nested task ran early: ticks=%v pending=%d", ticks, s.Pending())
	}
	s.Step()
	if len(ticks) != 2 || ticks[1] != 1 {
		t.Fatalf("ticks=%v", ticks)
	}
}

func TestRun_ExecutesEachTaskOnceAndDrainsOnStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(200)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	var (
		mu    sync.Mutex
		count = map[int]int{}
	)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := g*100 + i
				s.Defer(func(uint64) {
					mu.Lock()
					count[id]++
					mu.Unlock()
				})
			}
		}(g)
	}
	wg.Wait()
	s.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop")
	}
	if len(count) != 200 {
		t.Fatalf("ran %d distinct tasks, want 200", len(count))
	}
	for id, n := range count {
		if n != 1 {
			t.Fatalf("task %d ran %d times", id, n)
		}
	}
	if s.Defer(func(uint64) {}) {
		t.Fatalf("Defer after stop should be rejected")
	}
}

func TestRun_ContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(50)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run err=%v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestNewAt_StartsFromGivenTick(t *testing.T) {
	s := NewAt(20, 41)
	var got uint64
	s.Defer(func(tk uint64) { got = tk })
	if tk := s.Step(); tk != 41 || got != 41 {
		t.Fatalf("step tick=%d task tick=%d, want 41", tk, got)
	}
	if s.CurrentTick() != 42 {
		t.Fatalf("current=%d, want 42", s.CurrentTick())
	}
}
