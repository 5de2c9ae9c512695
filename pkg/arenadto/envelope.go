package arenadto

import (
	"encoding/json"
	"fmt"
)

// Inbound event types.
const (
	TypeCreateRoom      = "create_room"
	TypeJoinRoom        = "join_room"
	TypeMakeMove        = "make_move"
	TypeResign          = "resign"
	TypeOfferDraw       = "offer_draw"
	TypeRespondDraw     = "respond_draw"
	TypeFindMatch       = "find_match"
	TypeCancelFindMatch = "cancel_find_match"
	TypeSendChat        = "send_chat"
)

// Outbound notification types.
const (
	TypeRoomCreated          = "room_created"
	TypePlayerColor          = "player_color"
	TypeGameStart            = "game_start"
	TypeMoveMade             = "move_made"
	TypeTimeUpdate           = "time_update"
	TypeDrawOffered          = "draw_offered"
	TypeDrawDeclined         = "draw_declined"
	TypeOpponentDisconnected = "opponent_disconnected"
	TypeOpponentReconnected  = "opponent_reconnected"
	TypeGameOver             = "game_over"
	TypeRatingUpdate         = "rating_update"
	TypeReceiveChat          = "receive_chat"
	TypeQueueJoined          = "queue_joined"
	TypeErrorMessage         = "error_message"
)

// Envelope is the JSON frame exchanged over the socket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Notification is an outbound frame before encoding.
type Notification struct {
	Type    string
	Payload any
}

// Encode renders the notification as an Envelope frame.
func (n Notification) Encode() ([]byte, error) {
	var raw json.RawMessage
	if n.Payload != nil {
		b, err := json.Marshal(n.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", n.Type, err)
		}
		raw = b
	}
	return json.Marshal(Envelope{Type: n.Type, Payload: raw})
}

// Decode unmarshals the envelope payload into v. An empty payload leaves v untouched.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
