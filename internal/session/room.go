package session

import (
	"time"

	"github.com/park285/cheese-arena/internal/domain"
	"github.com/park285/cheese-arena/internal/rules"
	"github.com/park285/cheese-arena/pkg/arenadto"
)

// Seat binds a stable identity to its current connection.
type Seat struct {
	Identity  string
	ConnID    string
	Connected bool
}

func (s Seat) Empty() bool { return s.Identity == "" }

// Clock holds the remaining budget per side. Remaining is indexed by Color.Index().
type Clock struct {
	Remaining [2]time.Duration
	Increment time.Duration

	lastDebit time.Time
	token     uint64
	timer     Timer
}

// running reports whether a tick is armed.
func (c *Clock) running() bool { return c.token != 0 }

// Timers reports the remaining time in whole seconds, rounded up so that
// zero only appears once a side has flagged.
func (c *Clock) Timers() arenadto.Timers {
	return arenadto.Timers{W: ceilSeconds(c.Remaining[0]), B: ceilSeconds(c.Remaining[1])}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// Room is one live two-player session. It is owned by the engine goroutine.
type Room struct {
	ID         string
	Seats      [2]Seat
	Status     domain.Status
	TimeConfig domain.TimeConfig
	Clock      Clock
	Game       rules.Game
	DrawOffer  domain.Color

	CreatedAt time.Time
	StartedAt time.Time
	EndedAt   time.Time
	Result    *domain.MatchRecord

	purgeToken uint64
	purge      Timer
}

func (r *Room) Seat(c domain.Color) *Seat { return &r.Seats[c.Index()] }

// ColorOf returns the seat currently bound to a live connection.
func (r *Room) ColorOf(connID string) (domain.Color, bool) {
	for _, c := range []domain.Color{domain.White, domain.Black} {
		s := r.Seat(c)
		if s.Connected && s.ConnID == connID {
			return c, true
		}
	}
	return "", false
}

// ColorOfIdentity returns the seat held by identity.
func (r *Room) ColorOfIdentity(identity string) (domain.Color, bool) {
	for _, c := range []domain.Color{domain.White, domain.Black} {
		if s := r.Seat(c); !s.Empty() && s.Identity == identity {
			return c, true
		}
	}
	return "", false
}

// abandoned reports whether no seat has a live connection.
func (r *Room) abandoned() bool {
	return !r.Seats[0].Connected && !r.Seats[1].Connected
}

// finish is the only place a room becomes finished.
func (r *Room) finish(rec *domain.MatchRecord, now time.Time) {
	r.Status = domain.StatusFinished
	r.EndedAt = now
	r.Result = rec
	r.DrawOffer = ""
}

func (r *Room) names() arenadto.Names {
	return arenadto.Names{W: r.Seats[0].Identity, B: r.Seats[1].Identity}
}

func (r *Room) gameStart() arenadto.GameStart {
	return arenadto.GameStart{
		RoomID:     r.ID,
		FEN:        r.Game.FEN(),
		PGN:        r.Game.PGN(),
		Timers:     r.Clock.Timers(),
		Names:      r.names(),
		TimeConfig: arenadto.TimeConfig{Minutes: r.TimeConfig.Minutes, Increment: r.TimeConfig.Increment},
		Status:     string(r.Status),
	}
}

// Snapshot captures the room for diagnostics.
func (r *Room) Snapshot(now time.Time) *domain.RoomSnapshot {
	timers := r.Clock.Timers()
	snap := &domain.RoomSnapshot{
		ID:           r.ID,
		Status:       r.Status,
		White:        domain.SeatSnapshot{Identity: r.Seats[0].Identity, Connected: r.Seats[0].Connected},
		Black:        domain.SeatSnapshot{Identity: r.Seats[1].Identity, Connected: r.Seats[1].Connected},
		Turn:         r.Game.Turn(),
		WhiteSeconds: timers.W,
		BlackSeconds: timers.B,
		TimeControl:  r.TimeConfig,
		FEN:          r.Game.FEN(),
		PGN:          r.Game.PGN(),
		MovesSAN:     r.Game.MovesSAN(),
		DrawOffer:    r.DrawOffer,
		CreatedAt:    r.CreatedAt,
		StartedAt:    r.StartedAt,
		EndedAt:      r.EndedAt,
		UpdatedAt:    now,
	}
	if r.Result != nil {
		snap.Winner = r.Result.Winner
		snap.Reason = r.Result.Reason
	}
	return snap
}
