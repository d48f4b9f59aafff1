package main

import (
	"context"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"voxelsort.ai/internal/sim/grid"
	"voxelsort.ai/internal/sim/inventory"
	"voxelsort.ai/internal/sim/routing"
	"voxelsort.ai/internal/sim/tick"
	"voxelsort.ai/internal/transport/observer"
)

func TestWriteMetrics_ExposesEngineAndOTelCounters(t *testing.T) {
	store := grid.NewStore(27, 64)
	store.PlaceBlock(grid.At("OVERWORLD", 0, 63, 0), "REDSTONE_BLOCK")
	collector := store.PlaceContainer(grid.At("OVERWORLD", 0, 64, 0), "CHEST")
	recv := store.PlaceContainer(grid.At("OVERWORLD", 2, 64, 0), "CHEST")
	recv.Mutate(func(inv *inventory.Inventory) { inv.Add("COAL", 1) })
	collector.Mutate(func(inv *inventory.Inventory) { inv.Add("COAL", 5) })

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	sched := tick.New(20)
	eng, err := routing.New(routing.Options{World: store, Scheduler: sched, Meter: provider.Meter("test")})
	if err != nil {
		t.Fatalf("routing.New: %v", err)
	}
	if out := eng.Submit(routing.Deposit{Origin: collector, Item: "COAL", Count: 5}, nil); out.Kind != routing.OutcomeScheduled {
		t.Fatalf("outcome=%v", out.Kind)
	}
	sched.Step()

	var b strings.Builder
	writeMetrics(&b, sched, eng.Stats(), observer.Stats{}, nil)
	writeOTelMetrics(context.Background(), &b, reader)
	text := b.String()

	for _, want := range []string{
		`voxelsort_tick 1`,
		`voxelsort_deposits_total{outcome="settled"} 1`,
		`voxelsort_items_moved_total 5`,
		`voxelsort_routing_deposits_total{outcome="MOVED"} 1`,
		`voxelsort_routing_items_total{state="moved"} 5`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in:\n%s", want, text)
		}
	}
	if strings.Contains(text, "voxelsort_index_") {
		t.Fatalf("index metrics without an index:\n%s", text)
	}
}
