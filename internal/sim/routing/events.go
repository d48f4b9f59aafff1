package routing

import (
	"time"

	"go.uber.org/zap"
)

type EventKind string

const (
	EventMoved     EventKind = "MOVED"
	EventShortfall EventKind = "SHORTFALL"
)

// Event is the diagnostic record of a settlement.
type Event struct {
	ID   string    `json:"id"`
	Kind EventKind `json:"kind"`
	Tick uint64    `json:"tick"`
	Time time.Time `json:"time"`

	Space       string `json:"space"`
	Origin      string `json:"origin"`
	OriginPos   [3]int `json:"origin_pos"`
	Receiver    string `json:"receiver"`
	ReceiverPos [3]int `json:"receiver_pos"`

	Item      string `json:"item"`
	Requested int    `json:"requested"`
	Moved     int    `json:"moved"`
	Shortfall int    `json:"shortfall"`
}

type Sink interface {
	Record(ev Event)
}

type SinkFunc func(ev Event)

func (f SinkFunc) Record(ev Event) { f(ev) }

// MultiSink fans an event out in order. Nil members are skipped.
type MultiSink []Sink

func (m MultiSink) Record(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Record(ev)
		}
	}
}

type nopSink struct{}

func (nopSink) Record(Event) {}

// LogSink writes moves at info level and shortfalls as warnings.
type LogSink struct{ Log *zap.Logger }

func (s LogSink) Record(ev Event) {
	if s.Log == nil {
		return
	}
	fields := []zap.Field{
		zap.String("event_id", ev.ID),
		zap.Uint64("tick", ev.Tick),
		zap.String("origin", ev.Origin),
		zap.String("receiver", ev.Receiver),
		zap.String("item", ev.Item),
	}
	switch ev.Kind {
	case EventShortfall:
		s.Log.Warn("could not withdraw from collector",
			append(fields, zap.Int("moved", ev.Moved), zap.Int("shortfall", ev.Shortfall))...)
	default:
		s.Log.Info("moved",
			append(fields, zap.Int("requested", ev.Requested), zap.Int("moved", ev.Moved))...)
	}
}
