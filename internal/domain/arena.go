package domain

import (
	"strings"
	"time"
)

// Color identifies a seat in a room.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other color.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Index maps a color onto the seat array.
func (c Color) Index() int {
	if c == Black {
		return 1
	}
	return 0
}

// Short is the single letter form used in clock payloads ("w"/"b").
func (c Color) Short() string {
	if c == Black {
		return "b"
	}
	return "w"
}

func (c Color) Valid() bool { return c == White || c == Black }

// ParseColor accepts "white"/"w" and "black"/"b".
func ParseColor(s string) (Color, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	default:
		return "", false
	}
}

// Status is the room lifecycle state.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// TimeConfig is a time control in minutes plus increment seconds.
type TimeConfig struct {
	Minutes   int `json:"minutes"`
	Increment int `json:"increment"`
}

func (t TimeConfig) Initial() time.Duration {
	return time.Duration(t.Minutes) * time.Minute
}

func (t TimeConfig) IncrementDuration() time.Duration {
	return time.Duration(t.Increment) * time.Second
}

// Valid rejects non-positive budgets and negative increments.
func (t TimeConfig) Valid() bool { return t.Minutes > 0 && t.Increment >= 0 }

// Result reasons recorded on match records and game_over notifications.
const (
	ReasonTimeout              = "timeout"
	ReasonDisconnect           = "opponent disconnected"
	ReasonResignation          = "resignation"
	ReasonDrawAgreement        = "draw by agreement"
	ReasonCheckmate            = "checkmate"
	ReasonStalemate            = "stalemate"
	ReasonInsufficientMaterial = "insufficient material"
)

// MatchRecord is the immutable result of one finished room.
type MatchRecord struct {
	ID          string     `json:"id"`
	RoomID      string     `json:"room_id"`
	White       string     `json:"white"`
	Black       string     `json:"black"`
	Winner      *Color     `json:"winner"`
	Reason      string     `json:"reason"`
	MovesSAN    []string   `json:"moves_san"`
	PGN         string     `json:"pgn"`
	ECOCode     string     `json:"eco_code,omitempty"`
	ECOTitle    string     `json:"eco_title,omitempty"`
	TimeControl TimeConfig `json:"time_control"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     time.Time  `json:"ended_at"`

	WhiteRatingBefore int `json:"white_rating_before"`
	WhiteRatingAfter  int `json:"white_rating_after"`
	BlackRatingBefore int `json:"black_rating_before"`
	BlackRatingAfter  int `json:"black_rating_after"`
}

// WinnerString returns "white", "black" or "draw".
func (r *MatchRecord) WinnerString() string {
	if r == nil || r.Winner == nil {
		return "draw"
	}
	return string(*r.Winner)
}

// Duration is the wall time between start and end.
func (r *MatchRecord) Duration() time.Duration {
	if r == nil || r.StartedAt.IsZero() || r.EndedAt.Before(r.StartedAt) {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Profile holds the rating and counters of one identity.
type Profile struct {
	Identity    string    `json:"identity"`
	Rating      int       `json:"rating"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	Draws       int       `json:"draws"`
	GamesPlayed int       `json:"games_played"`
	UpdatedAt   time.Time `json:"updated_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewProfile returns a fresh profile seeded with the given rating.
func NewProfile(identity string, rating int, now time.Time) *Profile {
	return &Profile{Identity: identity, Rating: rating, CreatedAt: now, UpdatedAt: now}
}

// SeatSnapshot is the public view of one seat.
type SeatSnapshot struct {
	Identity  string `json:"identity"`
	Connected bool   `json:"connected"`
}

// RoomSnapshot is a point-in-time view of a room, used for diagnostics and
// the Redis room mirror.
type RoomSnapshot struct {
	ID           string       `json:"id"`
	Status       Status       `json:"status"`
	White        SeatSnapshot `json:"white"`
	Black        SeatSnapshot `json:"black"`
	Turn         Color        `json:"turn"`
	WhiteSeconds int          `json:"white_seconds"`
	BlackSeconds int          `json:"black_seconds"`
	TimeControl  TimeConfig   `json:"time_control"`
	FEN          string       `json:"fen"`
	PGN          string       `json:"pgn"`
	MovesSAN     []string     `json:"moves_san"`
	DrawOffer    Color        `json:"draw_offer,omitempty"`
	Winner       *Color       `json:"winner,omitempty"`
	Reason       string       `json:"reason,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	StartedAt    time.Time    `json:"started_at,omitempty"`
	EndedAt      time.Time    `json:"ended_at,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
