package session

import (
	"github.com/park285/cheese-arena/internal/domain"
)

// Event is anything the engine loop processes. The set is closed.
type Event interface{ isEvent() }

type CreateRoom struct {
	ConnID     string
	Identity   string
	TimeConfig *domain.TimeConfig
}

type JoinRoom struct {
	ConnID   string
	RoomID   string
	Identity string
}

type MakeMove struct {
	ConnID string
	RoomID string
	Move   string
}

type Resign struct {
	ConnID string
	RoomID string
}

type OfferDraw struct {
	ConnID string
	RoomID string
}

type RespondDraw struct {
	ConnID   string
	RoomID   string
	Accepted bool
}

type FindMatch struct {
	ConnID   string
	Identity string
}

type CancelFindMatch struct {
	ConnID   string
	Identity string
}

type SendChat struct {
	ConnID  string
	RoomID  string
	Message string
}

// Disconnect is posted by the transport when a connection closes.
type Disconnect struct {
	ConnID string
}

// internal events

type clockTick struct {
	roomID string
	token  uint64
}

type graceExpired struct {
	connID string
	roomID string
	token  uint64
}

type roomExpired struct {
	roomID string
	token  uint64
}

type resultPersisted struct {
	rec *domain.MatchRecord
}

type syncBarrier struct {
	done chan struct{}
}

type inspectRoom struct {
	roomID string
	reply  chan *domain.RoomSnapshot
}

type statsRequest struct {
	reply chan Stats
}

func (CreateRoom) isEvent()      {}
func (JoinRoom) isEvent()        {}
func (MakeMove) isEvent()        {}
func (Resign) isEvent()          {}
func (OfferDraw) isEvent()       {}
func (RespondDraw) isEvent()     {}
func (FindMatch) isEvent()       {}
func (CancelFindMatch) isEvent() {}
func (SendChat) isEvent()        {}
func (Disconnect) isEvent()      {}
func (clockTick) isEvent()       {}
func (graceExpired) isEvent()    {}
func (roomExpired) isEvent()     {}
func (resultPersisted) isEvent() {}
func (syncBarrier) isEvent()     {}
func (inspectRoom) isEvent()     {}
func (statsRequest) isEvent()    {}
