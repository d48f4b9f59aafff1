package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	persistlog "voxelsort.ai/internal/persistence/log"
	"voxelsort.ai/internal/sim/routing"
)

func main() {
	var (
		dir           = flag.String("dir", "./data/routes", "directory containing routes-*.jsonl.zst")
		shortfallOnly = flag.Bool("shortfall_only", false, "print SHORTFALL events only")
		origin        = flag.String("origin", "", "only events from this collector id (KIND@space:x,y,z)")
		fromTick      = flag.Uint64("from_tick", 0, "skip events before tick (inclusive, optional)")
		toTick        = flag.Uint64("to_tick", 0, "stop after tick (inclusive, optional)")
		quiet         = flag.Bool("quiet", false, "print the summary only")
	)
	flag.Parse()

	files, err := persistlog.ListRouteFiles(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list routes:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no route files found in", *dir)
		os.Exit(1)
	}

	f := filter{shortfallOnly: *shortfallOnly, origin: *origin, fromTick: *fromTick, toTick: *toTick}
	var out io.Writer = os.Stdout
	if *quiet {
		out = io.Discard
	}
	sum := newSummary()
	for _, path := range files {
		err := persistlog.ReadRouteFile(path, func(ev routing.Event) error {
			if !f.match(ev) {
				return nil
			}
			sum.add(ev)
			printEvent(out, ev)
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
	}
	sum.print(os.Stdout)
}

type filter struct {
	shortfallOnly    bool
	origin           string
	fromTick, toTick uint64
}

func (f filter) match(ev routing.Event) bool {
	if f.shortfallOnly && ev.Kind != routing.EventShortfall {
		return false
	}
	if f.origin != "" && ev.Origin != f.origin {
		return false
	}
	if ev.Tick < f.fromTick {
		return false
	}
	if f.toTick != 0 && ev.Tick > f.toTick {
		return false
	}
	return true
}

func printEvent(w io.Writer, ev routing.Event) {
	switch ev.Kind {
	case routing.EventShortfall:
		fmt.Fprintf(w, "tick=%d SHORTFALL %s -> %s item=%s moved=%d short=%d\n",
			ev.Tick, ev.Origin, ev.Receiver, ev.Item, ev.Moved, ev.Shortfall)
	default:
		fmt.Fprintf(w, "tick=%d MOVED %s -> %s item=%s %d/%d\n",
			ev.Tick, ev.Origin, ev.Receiver, ev.Item, ev.Moved, ev.Requested)
	}
}

type itemTotal struct {
	moved, short int
}

type summary struct {
	moves, shortfalls int
	items             map[string]*itemTotal
}

func newSummary() *summary { return &summary{items: map[string]*itemTotal{}} }

func (s *summary) add(ev routing.Event) {
	t := s.items[ev.Item]
	if t == nil {
		t = &itemTotal{}
		s.items[ev.Item] = t
	}
	// The SHORTFALL event repeats its MOVED twin; count units once.
	switch ev.Kind {
	case routing.EventShortfall:
		s.shortfalls++
	default:
		s.moves++
		t.moved += ev.Moved
		t.short += ev.Shortfall
	}
}

func (s *summary) print(w io.Writer) {
	fmt.Fprintf(w, "events: moved=%d shortfall=%d\n", s.moves, s.shortfalls)
	names := make([]string, 0, len(s.items))
	for name := range s.items {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := s.items[name]
		fmt.Fprintf(w, "  %-24s moved=%d short=%d\n", name, t.moved, t.short)
	}
}
