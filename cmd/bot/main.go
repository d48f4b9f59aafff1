package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voxelsort.ai/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		origin   = flag.String("origin", "OVERWORLD:0,64,0", "container to deposit into (space:x,y,z)")
		item     = flag.String("item", "COBBLESTONE", "item to deposit")
		count    = flag.Int("count", 16, "stack size per deposit")
		action   = flag.String("action", "PLACE_ALL", "click action")
		player   = flag.String("player", "bot", "player id")
		n        = flag.Int("n", 1, "number of deposits")
		interval = flag.Duration("interval", 500*time.Millisecond, "delay between deposits")
	)
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	logger = logger.Named("bot")
	defer func() { _ = logger.Sync() }()

	pos, err := parsePos(*origin)
	if err != nil {
		logger.Fatal("bad -origin", zap.Error(err))
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatal("dial", zap.Error(err))
	}
	defer conn.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	replies := make(chan []byte, 16)
	go func() {
		defer close(replies)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			replies <- msg
		}
	}()

	for i := 0; i < *n; i++ {
		msg := protocol.DepositMsg{
			Type:            protocol.TypeDeposit,
			ProtocolVersion: protocol.Version,
			ID:              uuid.NewString(),
			PlayerID:        *player,
			Origin:          pos,
			Item:            strings.ToUpper(*item),
			Count:           *count,
			Action:          strings.ToUpper(*action),
		}
		if err := conn.WriteJSON(msg); err != nil {
			logger.Fatal("send DEPOSIT", zap.Error(err))
		}
		if !awaitFinal(logger, replies, stop, msg.ID) {
			return
		}
		if i+1 < *n {
			time.Sleep(*interval)
		}
	}
}

// awaitFinal logs replies for id until one that ends the deposit arrives.
func awaitFinal(logger *zap.Logger, replies <-chan []byte, stop <-chan os.Signal, id string) bool {
	timeout := time.After(10 * time.Second)
	for {
		select {
		case <-stop:
			return false
		case <-timeout:
			logger.Warn("no final outcome", zap.String("id", id))
			return true
		case raw, ok := <-replies:
			if !ok {
				logger.Warn("connection closed")
				return false
			}
			base, err := protocol.DecodeBase(raw)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeError:
				var e protocol.ErrorMsg
				if err := json.Unmarshal(raw, &e); err != nil {
					continue
				}
				logger.Warn("ERROR", zap.String("id", e.ID), zap.String("code", e.Code), zap.String("message", e.Message))
				if e.ID == id || e.ID == "" {
					return true
				}
			case protocol.TypeOutcome:
				var o protocol.OutcomeMsg
				if err := json.Unmarshal(raw, &o); err != nil || o.ID != id {
					continue
				}
				fields := []zap.Field{
					zap.String("id", o.ID),
					zap.String("status", o.Status),
					zap.Int("moved", o.Moved),
					zap.Int("shortfall", o.Shortfall),
				}
				if o.Receiver != nil {
					fields = append(fields, zap.String("receiver", fmt.Sprintf("%s:%d,%d,%d", o.Receiver.Space, o.Receiver.X, o.Receiver.Y, o.Receiver.Z)))
				}
				logger.Info("OUTCOME", fields...)
				if o.Status != protocol.StatusScheduled {
					return true
				}
			}
		}
	}
}

func parsePos(s string) (protocol.Pos, error) {
	space, coords, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || space == "" {
		return protocol.Pos{}, fmt.Errorf("want space:x,y,z, got %q", s)
	}
	parts := strings.Split(coords, ",")
	if len(parts) != 3 {
		return protocol.Pos{}, fmt.Errorf("want space:x,y,z, got %q", s)
	}
	var xyz [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return protocol.Pos{}, fmt.Errorf("coordinate %q: %w", p, err)
		}
		xyz[i] = v
	}
	return protocol.Pos{Space: strings.ToUpper(space), X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}
