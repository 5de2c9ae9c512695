package transport

import (
	"errors"
	"fmt"

	"github.com/park285/cheese-arena/internal/domain"
	"github.com/park285/cheese-arena/internal/session"
	"github.com/park285/cheese-arena/pkg/arenadto"
)

var ErrUnknownType = errors.New("unknown event type")

// Decode maps a client envelope onto a session event for connID.
func Decode(connID string, env arenadto.Envelope) (session.Event, error) {
	switch env.Type {
	case arenadto.TypeCreateRoom:
		var p arenadto.CreateRoom
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		ev := session.CreateRoom{ConnID: connID, Identity: p.Identity}
		if p.TimeConfig != nil {
			ev.TimeConfig = &domain.TimeConfig{Minutes: p.TimeConfig.Minutes, Increment: p.TimeConfig.Increment}
		}
		return ev, nil
	case arenadto.TypeJoinRoom:
		var p arenadto.JoinRoom
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		return session.JoinRoom{ConnID: connID, RoomID: p.RoomID, Identity: p.Identity}, nil
	case arenadto.TypeMakeMove:
		var p arenadto.MakeMove
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		return session.MakeMove{ConnID: connID, RoomID: p.RoomID, Move: string(p.Move)}, nil
	case arenadto.TypeResign:
		var p arenadto.RoomRef
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		return session.Resign{ConnID: connID, RoomID: p.RoomID}, nil
	case arenadto.TypeOfferDraw:
		var p arenadto.RoomRef
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		return session.OfferDraw{ConnID: connID, RoomID: p.RoomID}, nil
	case arenadto.TypeRespondDraw:
		var p arenadto.RespondDraw
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		return session.RespondDraw{ConnID: connID, RoomID: p.RoomID, Accepted: p.Accepted}, nil
	case arenadto.TypeFindMatch:
		var p arenadto.FindMatch
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		return session.FindMatch{ConnID: connID, Identity: p.Identity}, nil
	case arenadto.TypeCancelFindMatch:
		var p arenadto.FindMatch
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		return session.CancelFindMatch{ConnID: connID, Identity: p.Identity}, nil
	case arenadto.TypeSendChat:
		var p arenadto.SendChat
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		return session.SendChat{ConnID: connID, RoomID: p.RoomID, Message: p.Message}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}
