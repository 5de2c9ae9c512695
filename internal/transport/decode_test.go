package transport

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/park285/cheese-arena/internal/session"
	"github.com/park285/cheese-arena/pkg/arenadto"
)

func envelope(t *testing.T, raw string) arenadto.Envelope {
	t.Helper()
	var env arenadto.Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return env
}

func TestDecode_Events(t *testing.T) {
	ev, err := Decode("c1", envelope(t, `{"type":"create_room","payload":{"identity":"alice","timeConfig":{"minutes":5,"increment":3}}}`))
	if err != nil {
		t.Fatalf("create_room: %v", err)
	}
	cr, ok := ev.(session.CreateRoom)
	if !ok || cr.ConnID != "c1" || cr.TimeConfig == nil || cr.TimeConfig.Minutes != 5 || cr.TimeConfig.Increment != 3 {
		t.Fatalf("create_room=%+v", ev)
	}

	ev, _ = Decode("c1", envelope(t, `{"type":"make_move","payload":{"roomId":"ABC123","move":{"from":"e2","to":"e4"}}}`))
	if mm, ok := ev.(session.MakeMove); !ok || mm.Move != "e2e4" || mm.RoomID != "ABC123" {
		t.Fatalf("make_move=%+v", ev)
	}

	ev, _ = Decode("c1", envelope(t, `{"type":"respond_draw","payload":{"roomId":"ABC123","accepted":true}}`))
	if rd, ok := ev.(session.RespondDraw); !ok || !rd.Accepted {
		t.Fatalf("respond_draw=%+v", ev)
	}

	ev, _ = Decode("c1", envelope(t, `{"type":"resign","payload":{"roomId":"ABC123"}}`))
	if _, ok := ev.(session.Resign); !ok {
		t.Fatalf("resign=%T", ev)
	}

	ev, _ = Decode("c1", envelope(t, `{"type":"cancel_find_match"}`))
	if cf, ok := ev.(session.CancelFindMatch); !ok || cf.Identity != "" {
		t.Fatalf("cancel_find_match=%+v", ev)
	}
}

func TestDecode_Rejects(t *testing.T) {
	if _, err := Decode("c1", envelope(t, `{"type":"teleport"}`)); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected unknown type, got %v", err)
	}
	if _, err := Decode("c1", envelope(t, `{"type":"join_room","payload":{"roomId":42}}`)); err == nil {
		t.Fatalf("expected payload error")
	}
}
