package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/goleak"

	"voxelsort.ai/internal/protocol"
	"voxelsort.ai/internal/sim/routing"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func dial(t *testing.T, srv *httptest.Server, shortfallOnly bool) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err := conn.WriteJSON(protocol.SubscribeMsg{
		Type:            protocol.TypeSubscribe,
		ProtocolVersion: protocol.Version,
		ShortfallOnly:   shortfallOnly,
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	return conn
}

func waitSubscribers(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Stats().Subscribers != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers=%d, want %d", h.Stats().Subscribers, n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) routing.Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg protocol.RouteEventMsg
	if err := json.Unmarshal(b, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != protocol.TypeRouteEvent {
		t.Fatalf("type=%q", msg.Type)
	}
	return msg.Event
}

func TestHub_StreamsRouteEvents(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h.WSHandler())
	defer srv.Close()

	all := dial(t, srv, false)
	warn := dial(t, srv, true)
	waitSubscribers(t, h, 2)

	h.Record(routing.Event{ID: "m1", Kind: routing.EventMoved, Item: "COAL", Moved: 4})
	h.Record(routing.Event{ID: "s1", Kind: routing.EventShortfall, Item: "COAL", Moved: 4, Shortfall: 2})

	if ev := readEvent(t, all); ev.ID != "m1" {
		t.Fatalf("all first=%+v", ev)
	}
	if ev := readEvent(t, all); ev.ID != "s1" {
		t.Fatalf("all second=%+v", ev)
	}
	if ev := readEvent(t, warn); ev.ID != "s1" || ev.Shortfall != 2 {
		t.Fatalf("shortfall-only=%+v", ev)
	}

	_ = all.Close()
	_ = warn.Close()
	waitSubscribers(t, h, 0)
}

func TestHub_DropsForSlowSubscriber(t *testing.T) {
	h := NewHub(nil)
	s := &subscriber{out: make(chan []byte, 1)}
	h.join(s)

	h.Record(routing.Event{ID: "a", Kind: routing.EventMoved})
	h.Record(routing.Event{ID: "b", Kind: routing.EventMoved})

	st := h.Stats()
	if st.Sent != 1 || st.Dropped != 1 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestHub_RejectsBadHandshake(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h.WSHandler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.WriteJSON(map[string]any{"type": "DEPOSIT", "protocol_version": protocol.Version})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("err=%v, want policy violation close", err)
	}
}

func TestStatsHandler_LoopbackOnly(t *testing.T) {
	h := NewHub(nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/observe/stats", nil)
	req.RemoteAddr = "203.0.113.9:5000"
	rec := httptest.NewRecorder()
	h.StatsHandler()(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("code=%d", rec.Code)
	}

	req.RemoteAddr = "127.0.0.1:5000"
	rec = httptest.NewRecorder()
	h.StatsHandler()(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"subscribers":0`) {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body.String())
	}
}
