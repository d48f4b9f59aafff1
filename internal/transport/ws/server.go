package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voxelsort.ai/internal/protocol"
	"voxelsort.ai/internal/sim/grid"
	"voxelsort.ai/internal/sim/inventory"
	"voxelsort.ai/internal/sim/routing"
)

// Server accepts DEPOSIT and SET_LOCK messages from game hosts and replies
// with OUTCOME or ERROR messages.
type Server struct {
	store  *grid.Store
	sched  routing.Deferrer
	engine *routing.Engine
	log    *zap.Logger

	upgrader websocket.Upgrader
}

func NewServer(store *grid.Store, sched routing.Deferrer, engine *routing.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:  store,
		sched:  sched,
		engine: engine,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, 64)
		writerDone := make(chan struct{})

		// Writer goroutine.
		go func() {
			defer close(writerDone)
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		sess := &session{srv: s, out: out, remote: r.RemoteAddr}

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			sess.handle(msg)
		}

		cancel()
		<-writerDone
	}
}

type session struct {
	srv    *Server
	out    chan []byte
	remote string
}

// send never blocks: replies are dropped when the client stops reading.
// Outcomes of scheduled moves are sent from the tick goroutine.
func (c *session) send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.out <- b:
	default:
		c.srv.log.Debug("dropping reply to slow client", zap.String("remote", c.remote))
	}
}

func (c *session) fail(id, code, message string) {
	c.send(protocol.NewError(id, code, message))
}

func (c *session) handle(msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		c.fail("", protocol.ErrProtoBadRequest, "malformed json")
		return
	}
	if base.ProtocolVersion != protocol.Version {
		c.fail("", protocol.ErrProtoVersion, "unsupported protocol_version")
		return
	}
	switch base.Type {
	case protocol.TypeDeposit, protocol.TypeSetLock:
	default:
		c.fail("", protocol.ErrProtoBadRequest, "unsupported message type")
		return
	}
	if err := protocol.Validate(base.Type, msg); err != nil {
		c.fail("", protocol.ErrProtoBadRequest, err.Error())
		return
	}

	switch base.Type {
	case protocol.TypeDeposit:
		var m protocol.DepositMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			c.fail("", protocol.ErrProtoBadRequest, "bad DEPOSIT")
			return
		}
		c.deposit(m)
	case protocol.TypeSetLock:
		var m protocol.SetLockMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			c.fail("", protocol.ErrProtoBadRequest, "bad SET_LOCK")
			return
		}
		c.setLock(m)
	}
}

func toPos(p protocol.Pos) grid.Pos {
	return grid.At(strings.ToUpper(strings.TrimSpace(p.Space)), p.X, p.Y, p.Z)
}

// deposit performs the host side of a player deposit: the stack lands in the
// container on the next tick, then the engine decides where it goes. Both
// tasks share the scheduler, so placement always precedes the move.
func (c *session) deposit(m protocol.DepositMsg) {
	pos := toPos(m.Origin)
	origin, ok := c.srv.store.ResolveContainer(pos)
	if !ok {
		c.fail(m.ID, protocol.ErrNoContainer, "no container at "+pos.String())
		return
	}

	action := routing.ClickAction(m.Action)
	if action == "" {
		action = routing.ActionPlaceAll
	}
	stack := &routing.ItemStack{Item: strings.ToUpper(m.Item), Count: m.Count}
	cl := routing.Click{
		Open:    routing.ContainerHolder{Container: origin},
		Clicked: routing.ContainerHolder{Container: origin},
		Action:  action,
		Cursor:  stack,
	}
	if action == routing.ActionMoveToOtherInventory {
		cl.Clicked = routing.PlayerHolder{PlayerID: m.PlayerID}
		cl.Cursor = nil
		cl.Current = stack
	}

	placed := stack.Count
	if action == routing.ActionPlaceOne {
		placed = 1
	}
	item := stack.Item
	if !c.srv.sched.Defer(func(uint64) {
		origin.Mutate(func(inv *inventory.Inventory) { inv.Add(item, placed) })
	}) {
		c.fail(m.ID, protocol.ErrWorldBusy, "server is shutting down")
		return
	}

	// The final outcome waits for the immediate one so the client sees
	// SCHEDULED before MOVED.
	replied := make(chan struct{})
	defer close(replied)
	out, routed := c.srv.engine.HandleClick(cl, func(o routing.Outcome) {
		go func() {
			<-replied
			c.send(protocol.NewOutcome(m.ID, o))
		}()
	})
	if !routed {
		kind := routing.OutcomeInvalid
		if !c.srv.engine.Classifier().IsCollector(origin) {
			kind = routing.OutcomeNotCollector
		}
		out = routing.Outcome{Kind: kind, Origin: pos, Item: item, Requested: placed}
	}
	c.send(protocol.NewOutcome(m.ID, out))
}

func (c *session) setLock(m protocol.SetLockMsg) {
	pos := toPos(m.Target)
	if _, ok := c.srv.store.ResolveContainer(pos); !ok {
		c.fail(m.ID, protocol.ErrNoContainer, "no container at "+pos.String())
		return
	}
	if !c.srv.sched.Defer(func(tick uint64) {
		if !c.srv.store.SetLocked(pos, m.Locked) {
			c.fail(m.ID, protocol.ErrNoContainer, "container removed")
			return
		}
		c.send(protocol.OutcomeMsg{
			Type:            protocol.TypeOutcome,
			ProtocolVersion: protocol.Version,
			ID:              m.ID,
			Status:          protocol.StatusOK,
			Tick:            tick,
		})
	}) {
		c.fail(m.ID, protocol.ErrWorldBusy, "server is shutting down")
	}
}
