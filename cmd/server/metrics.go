package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"voxelsort.ai/internal/persistence/indexdb"
	"voxelsort.ai/internal/sim/routing"
	"voxelsort.ai/internal/sim/tick"
	"voxelsort.ai/internal/transport/observer"
)

// writeMetrics renders the minimal Prometheus exposition format.
func writeMetrics(w io.Writer, sched *tick.Scheduler, st routing.Stats, hub observer.Stats, idx *indexdb.SQLiteIndex) {
	gauge := func(name, help string, v any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s gauge\n", name)
		fmt.Fprintf(w, "%s %v\n", name, v)
	}
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s counter\n", name)
		fmt.Fprintf(w, "%s %d\n", name, v)
	}

	gauge("voxelsort_tick", "Current scheduler tick.", sched.CurrentTick())
	gauge("voxelsort_tick_pending", "Tasks waiting for the next tick.", sched.Pending())
	gauge("voxelsort_cache_entries", "Remembered receivers.", st.CacheEntries)

	fmt.Fprintf(w, "# HELP voxelsort_deposits_total Deposits by outcome.\n")
	fmt.Fprintf(w, "# TYPE voxelsort_deposits_total counter\n")
	fmt.Fprintf(w, "voxelsort_deposits_total{outcome=%q} %d\n", "all", st.Deposits)
	fmt.Fprintf(w, "voxelsort_deposits_total{outcome=%q} %d\n", "invalid", st.Invalid)
	fmt.Fprintf(w, "voxelsort_deposits_total{outcome=%q} %d\n", "not_collector", st.NotCollector)
	fmt.Fprintf(w, "voxelsort_deposits_total{outcome=%q} %d\n", "no_receiver", st.NoReceiver)
	fmt.Fprintf(w, "voxelsort_deposits_total{outcome=%q} %d\n", "rejected", st.Rejected)
	fmt.Fprintf(w, "voxelsort_deposits_total{outcome=%q} %d\n", "receiver_full", st.ReceiverFull)
	fmt.Fprintf(w, "voxelsort_deposits_total{outcome=%q} %d\n", "settled", st.Settled)

	counter("voxelsort_shortfalls_total", "Settlements that could not withdraw everything they added.", st.Shortfalls)
	counter("voxelsort_items_moved_total", "Items added to receivers.", st.ItemsMoved)
	counter("voxelsort_items_short_total", "Items added but missing from collectors.", st.ItemsShort)

	fmt.Fprintf(w, "# HELP voxelsort_cache_lookups_total Receiver cache lookups by result.\n")
	fmt.Fprintf(w, "# TYPE voxelsort_cache_lookups_total counter\n")
	fmt.Fprintf(w, "voxelsort_cache_lookups_total{result=%q} %d\n", "hit", st.CacheHits)
	fmt.Fprintf(w, "voxelsort_cache_lookups_total{result=%q} %d\n", "miss", st.CacheMisses)
	fmt.Fprintf(w, "voxelsort_cache_lookups_total{result=%q} %d\n", "evict", st.CacheEvictions)

	gauge("voxelsort_observers", "Connected route observers.", hub.Subscribers)
	counter("voxelsort_observer_dropped_total", "Route events dropped for slow observers.", hub.Dropped)

	if idx != nil {
		is := idx.Stats()
		gauge("voxelsort_index_queue_depth", "Route index writer backlog.", is.QueueDepth)
		counter("voxelsort_index_written_total", "Route events committed to the index.", is.WrittenTotal)
		counter("voxelsort_index_dropped_total", "Route events the index could not store.", is.DropTotal)
	}
}

// writeOTelMetrics appends the engine's OpenTelemetry counters.
func writeOTelMetrics(ctx context.Context, w io.Writer, reader *sdkmetric.ManualReader) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			name := strings.ReplaceAll(m.Name, ".", "_") + "_total"
			fmt.Fprintf(w, "# HELP %s %s\n", name, m.Description)
			fmt.Fprintf(w, "# TYPE %s counter\n", name)
			for _, dp := range sum.DataPoints {
				labels := make([]string, 0, dp.Attributes.Len())
				for _, kv := range dp.Attributes.ToSlice() {
					labels = append(labels, fmt.Sprintf("%s=%q", kv.Key, kv.Value.Emit()))
				}
				sort.Strings(labels)
				fmt.Fprintf(w, "%s{%s} %d\n", name, strings.Join(labels, ","), dp.Value)
			}
		}
	}
}
