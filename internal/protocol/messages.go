package protocol

import "voxelsort.ai/internal/sim/routing"

type Pos struct {
	Space string `json:"space"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
}

// DEPOSIT (client -> server): a player put a stack into a container.
type DepositMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	PlayerID        string `json:"player_id,omitempty"`
	Origin          Pos    `json:"origin"`
	Item            string `json:"item"`
	Count           int    `json:"count"`
	// Action defaults to PLACE_ALL.
	Action string `json:"action,omitempty"`
}

// SET_LOCK (client -> server)
type SetLockMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Target          Pos    `json:"target"`
	Locked          bool   `json:"locked"`
}

// Outcome statuses.
const (
	StatusMoved        = "MOVED"
	StatusReceiverFull = "RECEIVER_FULL"
	StatusScheduled    = "SCHEDULED"
	StatusNoReceiver   = "NO_RECEIVER"
	StatusNotCollector = "NOT_COLLECTOR"
	StatusIgnored      = "IGNORED"
	StatusRejected     = "REJECTED"
	StatusOK           = "OK"
)

// OUTCOME (server -> client)
type OutcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Status          string `json:"status"`
	Origin          *Pos   `json:"origin,omitempty"`
	Receiver        *Pos   `json:"receiver,omitempty"`
	Item            string `json:"item,omitempty"`
	Requested       int    `json:"requested,omitempty"`
	Moved           int    `json:"moved"`
	Shortfall       int    `json:"shortfall"`
	Tick            uint64 `json:"tick,omitempty"`
	EventID         string `json:"event_id,omitempty"`
	Code            string `json:"code,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

// SUBSCRIBE (observer -> server)
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// ShortfallOnly limits the stream to SHORTFALL events.
	ShortfallOnly bool `json:"shortfall_only,omitempty"`
}

// ROUTE_EVENT (server -> observer)
type RouteEventMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Event           routing.Event `json:"event"`
}

func NewOutcome(id string, o routing.Outcome) OutcomeMsg {
	msg := OutcomeMsg{
		Type:            TypeOutcome,
		ProtocolVersion: Version,
		ID:              id,
		Item:            o.Item,
		Requested:       o.Requested,
		Moved:           o.Moved,
		Shortfall:       o.Shortfall,
		Tick:            o.Tick,
		EventID:         o.EventID,
	}
	switch o.Kind {
	case routing.OutcomeMoved:
		msg.Status = StatusMoved
	case routing.OutcomeReceiverFull:
		msg.Status = StatusReceiverFull
		msg.Code = ErrReceiverFull
	case routing.OutcomeScheduled:
		msg.Status = StatusScheduled
	case routing.OutcomeNoReceiver:
		msg.Status = StatusNoReceiver
		msg.Code = ErrNoReceiver
	case routing.OutcomeNotCollector:
		msg.Status = StatusNotCollector
		msg.Code = ErrNotCollector
	case routing.OutcomeRejected:
		msg.Status = StatusRejected
		msg.Code = ErrWorldBusy
	default:
		msg.Status = StatusIgnored
		msg.Code = ErrBadRequest
	}
	if o.Kind != routing.OutcomeInvalid {
		p := Pos{Space: o.Origin.Space, X: o.Origin.X, Y: o.Origin.Y, Z: o.Origin.Z}
		msg.Origin = &p
	}
	switch o.Kind {
	case routing.OutcomeMoved, routing.OutcomeScheduled, routing.OutcomeReceiverFull:
		p := Pos{Space: o.Receiver.Space, X: o.Receiver.X, Y: o.Receiver.Y, Z: o.Receiver.Z}
		msg.Receiver = &p
	}
	return msg
}

func NewError(id, code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, ID: id, Code: code, Message: message}
}
