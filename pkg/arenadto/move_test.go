package arenadto

import (
	"encoding/json"
	"testing"
)

func TestMove_UnmarshalForms(t *testing.T) {
	cases := map[string]Move{
		`{"roomId":"A","move":"e2e4"}`:                                  "e2e4",
		`{"roomId":"A","move":" Nf3 "}`:                                 "Nf3",
		`{"roomId":"A","move":{"from":"e7","to":"e8","promotion":"q"}}`: "e7e8q",
		`{"roomId":"A","move":{"from":"G1","to":"F3"}}`:                 "g1f3",
		`{"roomId":"A"}`: "",
	}
	for raw, want := range cases {
		var mm MakeMove
		if err := json.Unmarshal([]byte(raw), &mm); err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if mm.Move != want {
			t.Fatalf("%s: got %q want %q", raw, mm.Move, want)
		}
	}
	var mm MakeMove
	if err := json.Unmarshal([]byte(`{"move":{"from":"e2"}}`), &mm); err == nil {
		t.Fatalf("expected error for incomplete move object")
	}
}

func TestEnvelope_DecodeAndEncode(t *testing.T) {
	var env Envelope
	if err := json.Unmarshal([]byte(`{"type":"join_room","payload":{"roomId":"ABC123","identity":"bob"}}`), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var jr JoinRoom
	if err := env.Decode(&jr); err != nil || jr.RoomID != "ABC123" || jr.Identity != "bob" {
		t.Fatalf("decode: %+v %v", jr, err)
	}
	if err := (Envelope{Type: TypeResign}).Decode(&jr); err != nil {
		t.Fatalf("empty payload: %v", err)
	}

	b, err := Notification{Type: TypeTimeUpdate, Payload: Timers{W: 10, B: 9}}.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(b) != `{"type":"time_update","payload":{"w":10,"b":9}}` {
		t.Fatalf("frame=%s", b)
	}
	b, _ = Notification{Type: TypeDrawDeclined}.Encode()
	if string(b) != `{"type":"draw_declined"}` {
		t.Fatalf("frame=%s", b)
	}
}
