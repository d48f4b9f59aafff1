package tick

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Task runs on the scheduler goroutine with the tick it executes in.
type Task func(tick uint64)

// Scheduler is the single authoritative mutation context. Deferred tasks run
// one at a time, in submission order, on the next tick.
type Scheduler struct {
	rateHz int

	mu      sync.Mutex
	pending []Task
	stopped bool

	tick    atomic.Uint64
	stop    chan struct{}
	stopOne sync.Once
}

func New(rateHz int) *Scheduler {
	if rateHz <= 0 {
		rateHz = 20
	}
	return &Scheduler{rateHz: rateHz, stop: make(chan struct{})}
}

// NewAt is New with the first tick set to start, so a resumed world keeps
// counting from where its snapshot left off.
func NewAt(rateHz int, start uint64) *Scheduler {
	s := New(rateHz)
	s.tick.Store(start)
	return s
}

// Defer queues t for the next tick. It reports false when the scheduler has
// been stopped; the task will then never run.
func (s *Scheduler) Defer(t Task) bool {
	if t == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.pending = append(s.pending, t)
	return true
}

func (s *Scheduler) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(s.rateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.halt()
			return ctx.Err()
		case <-s.stop:
			s.halt()
			return nil
		case <-ticker.C:
			s.Step()
		}
	}
}

// Step runs every task queued so far and advances the tick. Tasks deferred
// while stepping wait for the next tick. It is primarily intended for tests
// and for hosts that drive ticks themselves.
func (s *Scheduler) Step() uint64 {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	t := s.tick.Load()
	for _, task := range batch {
		task(t)
	}
	s.tick.Add(1)
	return t
}

// Stop refuses new tasks at once; a running loop drains what was accepted
// and returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.stopOne.Do(func() { close(s.stop) })
}

func (s *Scheduler) CurrentTick() uint64 { return s.tick.Load() }

func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) TickRateHz() int { return s.rateHz }

// halt refuses new work and drains what was already accepted so every
// accepted task runs exactly once.
func (s *Scheduler) halt() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.Step()
}
