package routing

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Stats is a read-only view of engine counters.
type Stats struct {
	Deposits     uint64 `json:"deposits"`
	Invalid      uint64 `json:"invalid"`
	NotCollector uint64 `json:"not_collector"`
	NoReceiver   uint64 `json:"no_receiver"`
	Rejected     uint64 `json:"rejected"`
	ReceiverFull uint64 `json:"receiver_full"`
	Settled      uint64 `json:"settled"`
	Shortfalls   uint64 `json:"shortfalls"`
	ItemsMoved   uint64 `json:"items_moved"`
	ItemsShort   uint64 `json:"items_short"`

	CacheHits      uint64 `json:"cache_hits"`
	CacheMisses    uint64 `json:"cache_misses"`
	CacheEvictions uint64 `json:"cache_evictions"`
	CacheEntries   int    `json:"cache_entries"`
}

type metrics struct {
	deposits, invalid, notCollector, noReceiver, rejected atomic.Uint64
	receiverFull, settled, shortfalls, itemsMoved         atomic.Uint64
	itemsShort                                            atomic.Uint64
	cacheHits, cacheMisses, cacheEvictions                atomic.Uint64

	outcomes metric.Int64Counter
	items    metric.Int64Counter
	lookups  metric.Int64Counter
}

func newMetrics(m metric.Meter) (*metrics, error) {
	out := &metrics{}
	var err error
	if out.outcomes, err = m.Int64Counter("voxelsort.routing.deposits",
		metric.WithDescription("Deposits by final routing outcome.")); err != nil {
		return nil, err
	}
	if out.items, err = m.Int64Counter("voxelsort.routing.items",
		metric.WithDescription("Items moved or left short by settlement.")); err != nil {
		return nil, err
	}
	if out.lookups, err = m.Int64Counter("voxelsort.routing.cache_lookups",
		metric.WithDescription("Receiver cache lookups by result.")); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *metrics) outcome(k OutcomeKind) {
	m.outcomes.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", k.String())))
}

func (m *metrics) lookup(result string) {
	m.lookups.Add(context.Background(), 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *metrics) cacheHit() {
	m.cacheHits.Add(1)
	m.lookup("hit")
}

func (m *metrics) cacheMiss() {
	m.cacheMisses.Add(1)
	m.lookup("miss")
}

func (m *metrics) cacheEvict() {
	m.cacheEvictions.Add(1)
	m.lookup("stale")
}

func (m *metrics) settlement(s Settlement) {
	m.settled.Add(1)
	m.itemsMoved.Add(uint64(s.Added))
	m.items.Add(context.Background(), int64(s.Added), metric.WithAttributes(attribute.String("state", "moved")))
	if s.Shortfall > 0 {
		m.shortfalls.Add(1)
		m.itemsShort.Add(uint64(s.Shortfall))
		m.items.Add(context.Background(), int64(s.Shortfall), metric.WithAttributes(attribute.String("state", "short")))
	}
}

func (m *metrics) snapshot() Stats {
	return Stats{
		Deposits:       m.deposits.Load(),
		Invalid:        m.invalid.Load(),
		NotCollector:   m.notCollector.Load(),
		NoReceiver:     m.noReceiver.Load(),
		Rejected:       m.rejected.Load(),
		ReceiverFull:   m.receiverFull.Load(),
		Settled:        m.settled.Load(),
		Shortfalls:     m.shortfalls.Load(),
		ItemsMoved:     m.itemsMoved.Load(),
		ItemsShort:     m.itemsShort.Load(),
		CacheHits:      m.cacheHits.Load(),
		CacheMisses:    m.cacheMisses.Load(),
		CacheEvictions: m.cacheEvictions.Load(),
	}
}
