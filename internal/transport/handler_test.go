package transport

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-arena/internal/session"
	"github.com/park285/cheese-arena/pkg/arenadto"
)

// echoEngine answers create_room through the hub and records every event.
type echoEngine struct {
	hub *Hub

	mu     sync.Mutex
	events []session.Event
	gone   chan string
}

func (e *echoEngine) Submit(_ context.Context, ev session.Event) error {
	e.mu.Lock()
	e.events = append(e.events, ev)
	e.mu.Unlock()
	switch ev := ev.(type) {
	case session.CreateRoom:
		e.hub.Notify(ev.ConnID, arenadto.Notification{Type: arenadto.TypeRoomCreated, Payload: arenadto.RoomCreated{RoomID: "ABC123"}})
	case session.Disconnect:
		e.gone <- ev.ConnID
	}
	return nil
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) arenadto.Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var env arenadto.Envelope
	if err := wsjson.Read(ctx, conn, &env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func TestHandler_RoundTripAndDisconnect(t *testing.T) {
	hub := NewHub()
	eng := &echoEngine{hub: hub, gone: make(chan string, 1)}
	srv := httptest.NewServer(Handler(eng, hub, Options{}))
	defer srv.Close()

	conn := dial(t, srv)
	ctx := context.Background()

	if err := wsjson.Write(ctx, conn, map[string]any{"type": "create_room", "payload": map[string]any{"identity": "alice"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	env := readFrame(t, conn)
	var rc arenadto.RoomCreated
	if env.Type != arenadto.TypeRoomCreated || env.Decode(&rc) != nil || rc.RoomID != "ABC123" {
		t.Fatalf("frame=%+v", env)
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	env = readFrame(t, conn)
	var em arenadto.ErrorMessage
	if env.Type != arenadto.TypeErrorMessage || env.Decode(&em) != nil || em.Code != "bad_request" {
		t.Fatalf("frame=%+v", env)
	}

	if err := wsjson.Write(ctx, conn, map[string]any{"type": "warp"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if env = readFrame(t, conn); env.Type != arenadto.TypeErrorMessage {
		t.Fatalf("unknown type not rejected: %+v", env)
	}

	_ = conn.Close(websocket.StatusNormalClosure, "done")
	select {
	case id := <-eng.gone:
		if id == "" {
			t.Fatalf("empty conn id on disconnect")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("disconnect not submitted")
	}

	eng.mu.Lock()
	defer eng.mu.Unlock()
	if len(eng.events) != 2 {
		t.Fatalf("events=%d", len(eng.events))
	}
	if _, ok := eng.events[0].(session.CreateRoom); !ok {
		t.Fatalf("first event=%T", eng.events[0])
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub()
	c := hub.register("c1")
	for i := 0; i < sendBuffer+1; i++ {
		hub.Notify("c1", arenadto.Notification{Type: arenadto.TypeTimeUpdate, Payload: arenadto.Timers{W: i}})
	}
	if hub.Len() != 0 || hub.Dropped() != 1 {
		t.Fatalf("len=%d dropped=%d", hub.Len(), hub.Dropped())
	}
	n := 0
	for range c.send {
		n++
	}
	if n != sendBuffer {
		t.Fatalf("buffered=%d", n)
	}
	hub.Notify("unknown", arenadto.Notification{Type: arenadto.TypeTimeUpdate})
}
