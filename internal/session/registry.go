package session

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-arena/internal/domain"
	"github.com/park285/cheese-arena/internal/rules"
)

// JoinOutcome classifies the result of a join request.
type JoinOutcome int

const (
	Rejected JoinOutcome = iota
	Joined
	Reconnected
)

func (o JoinOutcome) String() string {
	switch o {
	case Joined:
		return "joined"
	case Reconnected:
		return "reconnected"
	default:
		return "rejected"
	}
}

// JoinResult describes what a join did. PrevConnID is set on reconnects.
type JoinResult struct {
	Outcome    JoinOutcome
	Color      domain.Color
	PrevConnID string
	Err        error
}

// attachment is a seat bound to a connection.
type attachment struct {
	room  *Room
	color domain.Color
}

const roomIDAttempts = 10

// RoomRegistry owns every live room plus a connection index.
// It is owned by the engine goroutine and is not safe for concurrent use.
type RoomRegistry struct {
	rooms   map[string]*Room
	byConn  map[string]map[string]struct{}
	newID   func() (string, error)
	newGame rules.Factory
	now     func() time.Time
}

func NewRoomRegistry(newGame rules.Factory, now func() time.Time) *RoomRegistry {
	if newGame == nil {
		newGame = rules.NewGame
	}
	if now == nil {
		now = time.Now
	}
	return &RoomRegistry{
		rooms:   make(map[string]*Room),
		byConn:  make(map[string]map[string]struct{}),
		newID:   roomCode,
		newGame: newGame,
		now:     now,
	}
}

// roomCode returns 6 upper alnum characters.
func roomCode() (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b), nil
}

// Create seats the host as white in a new waiting room.
func (g *RoomRegistry) Create(hostConnID, hostIdentity string, tc domain.TimeConfig) (*Room, error) {
	if hostConnID == "" || hostIdentity == "" || !tc.Valid() {
		return nil, ErrInvalidArgs
	}
	id, err := g.allocateID()
	if err != nil {
		return nil, err
	}
	initial := tc.Initial()
	r := &Room{
		ID:         id,
		Status:     domain.StatusWaiting,
		TimeConfig: tc,
		Clock: Clock{
			Remaining: [2]time.Duration{initial, initial},
			Increment: tc.IncrementDuration(),
		},
		Game:      g.newGame(),
		CreatedAt: g.now(),
	}
	r.Seats[0] = Seat{Identity: hostIdentity, ConnID: hostConnID, Connected: true}
	g.rooms[id] = r
	g.bind(hostConnID, id)
	return r, nil
}

func (g *RoomRegistry) allocateID() (string, error) {
	for i := 0; i < roomIDAttempts; i++ {
		id, err := g.newID()
		if err != nil {
			return "", fmt.Errorf("room id: %w", err)
		}
		if _, taken := g.rooms[id]; !taken {
			return id, nil
		}
	}
	return "", ErrRoomIDExhausted
}

// Join seats a second player, rebinds a returning identity, or rejects.
func (g *RoomRegistry) Join(connID, roomID, identity string) (JoinResult, *Room) {
	if connID == "" || identity == "" {
		return JoinResult{Outcome: Rejected, Err: ErrInvalidArgs}, nil
	}
	r, err := g.Get(roomID)
	if err != nil {
		return JoinResult{Outcome: Rejected, Err: err}, nil
	}

	if color, ok := r.ColorOfIdentity(identity); ok {
		seat := r.Seat(color)
		switch {
		case r.Status == domain.StatusFinished:
			return JoinResult{Outcome: Rejected, Err: ErrRoomFinished}, r
		case seat.Connected:
			return JoinResult{Outcome: Rejected, Err: ErrDuplicateSession}, r
		}
		prev := seat.ConnID
		g.unbind(prev, r.ID)
		seat.ConnID = connID
		seat.Connected = true
		g.bind(connID, r.ID)
		return JoinResult{Outcome: Reconnected, Color: color, PrevConnID: prev}, r
	}

	switch {
	case r.Status == domain.StatusFinished:
		return JoinResult{Outcome: Rejected, Err: ErrRoomFinished}, r
	case r.Status != domain.StatusWaiting || !r.Seat(domain.Black).Empty():
		return JoinResult{Outcome: Rejected, Err: ErrRoomFull}, r
	}
	*r.Seat(domain.Black) = Seat{Identity: identity, ConnID: connID, Connected: true}
	r.Status = domain.StatusPlaying
	r.StartedAt = g.now()
	g.bind(connID, r.ID)
	return JoinResult{Outcome: Joined, Color: domain.Black}, r
}

// Get normalizes the id before lookup.
func (g *RoomRegistry) Get(roomID string) (*Room, error) {
	r, ok := g.rooms[strings.ToUpper(strings.TrimSpace(roomID))]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// RoomsOfConn returns every seat bound to connID.
func (g *RoomRegistry) RoomsOfConn(connID string) []attachment {
	var out []attachment
	for id := range g.byConn[connID] {
		r, ok := g.rooms[id]
		if !ok {
			continue
		}
		if c, ok := r.ColorOf(connID); ok {
			out = append(out, attachment{room: r, color: c})
		}
	}
	return out
}

// Detach marks every seat held by connID as disconnected. The seat keeps
// its ConnID so a grace timer can be keyed on it.
func (g *RoomRegistry) Detach(connID string) []attachment {
	out := g.RoomsOfConn(connID)
	for _, a := range out {
		a.room.Seat(a.color).Connected = false
	}
	delete(g.byConn, connID)
	return out
}

// Drop removes a room and its connection bindings.
func (g *RoomRegistry) Drop(roomID string) {
	r, ok := g.rooms[roomID]
	if !ok {
		return
	}
	for _, s := range r.Seats {
		if s.ConnID != "" {
			g.unbind(s.ConnID, roomID)
		}
	}
	delete(g.rooms, roomID)
}

func (g *RoomRegistry) Len() int { return len(g.rooms) }

// Playing counts rooms in the playing state.
func (g *RoomRegistry) Playing() int {
	n := 0
	for _, r := range g.rooms {
		if r.Status == domain.StatusPlaying {
			n++
		}
	}
	return n
}

func (g *RoomRegistry) bind(connID, roomID string) {
	set, ok := g.byConn[connID]
	if !ok {
		set = make(map[string]struct{})
		g.byConn[connID] = set
	}
	set[roomID] = struct{}{}
}

func (g *RoomRegistry) unbind(connID, roomID string) {
	set, ok := g.byConn[connID]
	if !ok {
		return
	}
	delete(set, roomID)
	if len(set) == 0 {
		delete(g.byConn, connID)
	}
}
