// Package routing moves deposits out of collector containers into the
// nearest container that already stocks the same item.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"voxelsort.ai/internal/sim/grid"
	"voxelsort.ai/internal/sim/inventory"
	"voxelsort.ai/internal/sim/tick"
)

var (
	ErrNoWorld     = errors.New("routing: world is required")
	ErrNoScheduler = errors.New("routing: scheduler is required")
)

// Deferrer hands work to the serialized tick context.
type Deferrer interface {
	Defer(t tick.Task) bool
}

type Options struct {
	World     World
	Scheduler Deferrer

	Activators Activators

	// RangeHorizontal defaults to RangeHorizontal. RangeVertical defaults to 0,
	// which keeps the scan on the collector's own layer.
	RangeHorizontal int
	RangeVertical   int

	// CacheTTL <= 0 keeps receivers until a read proves them invalid.
	CacheTTL time.Duration
	Now      func() time.Time

	Sink   Sink
	Logger *zap.Logger
	Meter  metric.Meter
}

// Deposit is one stack put into a container by a player.
type Deposit struct {
	Origin *grid.Container
	Item   string
	Count  int
}

type OutcomeKind int

const (
	OutcomeInvalid OutcomeKind = iota + 1
	OutcomeNotCollector
	OutcomeNoReceiver
	OutcomeRejected
	OutcomeScheduled
	OutcomeMoved
	// OutcomeReceiverFull: the receiver filled up between lookup and move, so
	// nothing changed hands.
	OutcomeReceiverFull
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeInvalid:
		return "INVALID"
	case OutcomeNotCollector:
		return "NOT_COLLECTOR"
	case OutcomeNoReceiver:
		return "NO_RECEIVER"
	case OutcomeRejected:
		return "REJECTED"
	case OutcomeScheduled:
		return "SCHEDULED"
	case OutcomeMoved:
		return "MOVED"
	case OutcomeReceiverFull:
		return "RECEIVER_FULL"
	}
	return "UNKNOWN"
}

// Final reports whether no further outcome will follow for the deposit.
func (k OutcomeKind) Final() bool { return k != OutcomeScheduled }

type Outcome struct {
	Kind      OutcomeKind
	Origin    grid.Pos
	Receiver  grid.Pos
	Item      string
	Requested int
	Moved     int
	Shortfall int
	Tick      uint64
	EventID   string
}

// Engine routes deposits from collectors to receivers. The decision runs on
// the caller's goroutine; the inventory move runs on the scheduler.
type Engine struct {
	classifier *Classifier
	cache      *Cache
	locator    *Locator
	sched      Deferrer

	sink    Sink
	log     *zap.Logger
	now     func() time.Time
	metrics *metrics
}

func New(opts Options) (*Engine, error) {
	if opts.World == nil {
		return nil, ErrNoWorld
	}
	if opts.Scheduler == nil {
		return nil, ErrNoScheduler
	}
	if opts.Activators.Materials == nil && opts.Activators.Containers == nil {
		opts.Activators = DefaultActivators()
	}
	if opts.RangeHorizontal <= 0 {
		opts.RangeHorizontal = RangeHorizontal
	}
	if opts.RangeVertical < 0 {
		opts.RangeVertical = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Meter == nil {
		opts.Meter = noop.NewMeterProvider().Meter("voxelsort.ai/internal/sim/routing")
	}
	m, err := newMetrics(opts.Meter)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		classifier: NewClassifier(opts.World, opts.Activators),
		cache:      NewCache(opts.CacheTTL, opts.Now),
		sched:      opts.Scheduler,
		sink:       opts.Sink,
		log:        opts.Logger,
		now:        opts.Now,
		metrics:    m,
	}
	e.locator = &Locator{
		world:   opts.World,
		cache:   e.cache,
		rangeH:  opts.RangeHorizontal,
		rangeV:  opts.RangeVertical,
		log:     opts.Logger,
		metrics: m,
	}
	return e, nil
}

func (e *Engine) Classifier() *Classifier { return e.classifier }
func (e *Engine) Cache() *Cache           { return e.cache }
func (e *Engine) Locator() *Locator       { return e.locator }

// SetActivators swaps the collector activation sets at runtime.
func (e *Engine) SetActivators(a Activators) { e.classifier.SetActivators(a) }

// Forget drops cached receivers of a collector that went away.
func (e *Engine) Forget(origin grid.Pos) { e.cache.Forget(origin) }

func (e *Engine) Stats() Stats {
	s := e.metrics.snapshot()
	s.CacheEntries = e.cache.Len()
	return s
}

// Submit gates the deposit and picks a receiver right away. When the result
// is OutcomeScheduled the move is queued and done receives the OutcomeMoved
// (or OutcomeReceiverFull) result on the scheduler goroutine; otherwise the
// returned outcome is final and done is not called. Each deposit is counted
// once, under its final outcome.
func (e *Engine) Submit(d Deposit, done func(Outcome)) Outcome {
	e.metrics.deposits.Add(1)
	out, receiver := e.decide(d)
	if out.Kind != OutcomeScheduled {
		e.metrics.outcome(out.Kind)
		return out
	}

	origin := d.Origin
	accepted := e.sched.Defer(func(tk uint64) {
		final := e.settle(tk, origin, receiver, d.Item, d.Count)
		if done != nil {
			done(final)
		}
	})
	if !accepted {
		out.Kind = OutcomeRejected
		e.metrics.rejected.Add(1)
		e.metrics.outcome(out.Kind)
	}
	return out
}

// Deposit is Submit followed by a wait for the move. It must not be called
// from the scheduler goroutine. The error is non-nil only when ctx ends first;
// the queued move still happens.
func (e *Engine) Deposit(ctx context.Context, d Deposit) (Outcome, error) {
	ch := make(chan Outcome, 1)
	out := e.Submit(d, func(o Outcome) { ch <- o })
	if out.Kind.Final() {
		return out, nil
	}
	select {
	case o := <-ch:
		return o, nil
	case <-ctx.Done():
		return out, ctx.Err()
	}
}

func (e *Engine) decide(d Deposit) (Outcome, *grid.Container) {
	out := Outcome{Item: d.Item, Requested: d.Count}
	if d.Origin == nil || d.Item == "" || d.Count <= 0 {
		out.Kind = OutcomeInvalid
		e.metrics.invalid.Add(1)
		return out, nil
	}
	out.Origin = d.Origin.Pos()
	if !e.classifier.IsCollector(d.Origin) {
		out.Kind = OutcomeNotCollector
		e.metrics.notCollector.Add(1)
		return out, nil
	}
	c, ok := e.locator.FindSuitable(out.Origin, d.Item)
	if !ok {
		out.Kind = OutcomeNoReceiver
		e.metrics.noReceiver.Add(1)
		return out, nil
	}
	out.Kind = OutcomeScheduled
	out.Receiver = c.Pos()
	return out, c
}

func (e *Engine) settle(tk uint64, origin, receiver *grid.Container, item string, n int) Outcome {
	var st Settlement
	grid.MutatePair(origin, receiver, func(oi, ri *inventory.Inventory) {
		st = Settle(oi, ri, item, n)
	})
	if st.Added == 0 {
		e.metrics.receiverFull.Add(1)
		e.metrics.outcome(OutcomeReceiverFull)
		return Outcome{
			Kind:      OutcomeReceiverFull,
			Origin:    origin.Pos(),
			Receiver:  receiver.Pos(),
			Item:      item,
			Requested: n,
			Tick:      tk,
		}
	}
	e.metrics.settlement(st)
	e.metrics.outcome(OutcomeMoved)

	ev := Event{
		ID:          uuid.NewString(),
		Kind:        EventMoved,
		Tick:        tk,
		Time:        e.now().UTC(),
		Space:       origin.Pos().Space,
		Origin:      origin.ID(),
		OriginPos:   origin.Pos().ToArray(),
		Receiver:    receiver.ID(),
		ReceiverPos: receiver.Pos().ToArray(),
		Item:        item,
		Requested:   n,
		Moved:       st.Added,
		Shortfall:   st.Shortfall,
	}
	e.sink.Record(ev)
	if st.Shortfall > 0 {
		warn := ev
		warn.ID = uuid.NewString()
		warn.Kind = EventShortfall
		e.sink.Record(warn)
	}

	return Outcome{
		Kind:      OutcomeMoved,
		Origin:    origin.Pos(),
		Receiver:  receiver.Pos(),
		Item:      item,
		Requested: n,
		Moved:     st.Added,
		Shortfall: st.Shortfall,
		Tick:      tk,
		EventID:   ev.ID,
	}
}
