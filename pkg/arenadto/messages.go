package arenadto

// TimeConfig mirrors domain.TimeConfig on the wire.
type TimeConfig struct {
	Minutes   int `json:"minutes"`
	Increment int `json:"increment"`
}

type CreateRoom struct {
	Identity   string      `json:"identity"`
	TimeConfig *TimeConfig `json:"timeConfig,omitempty"`
}

type JoinRoom struct {
	RoomID   string `json:"roomId"`
	Identity string `json:"identity"`
}

type MakeMove struct {
	RoomID string `json:"roomId"`
	Move   Move   `json:"move"`
}

// RoomRef carries only a room id (resign, offer_draw).
type RoomRef struct {
	RoomID string `json:"roomId"`
}

type RespondDraw struct {
	RoomID   string `json:"roomId"`
	Accepted bool   `json:"accepted"`
}

type FindMatch struct {
	Identity string `json:"identity"`
}

type SendChat struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

type RoomCreated struct {
	RoomID string `json:"roomId"`
}

type PlayerColor struct {
	Color string `json:"color"`
}

// Timers is the remaining time per side in whole seconds.
type Timers struct {
	W int `json:"w"`
	B int `json:"b"`
}

type Names struct {
	W string `json:"w"`
	B string `json:"b"`
}

type GameStart struct {
	RoomID     string     `json:"roomId"`
	FEN        string     `json:"fen"`
	PGN        string     `json:"pgn"`
	Timers     Timers     `json:"timers"`
	Names      Names      `json:"names"`
	TimeConfig TimeConfig `json:"timeConfig"`
	Status     string     `json:"status"`
}

type MoveMade struct {
	FEN string `json:"fen"`
	PGN string `json:"pgn"`
	SAN string `json:"san"`
}

type OpponentDisconnected struct {
	Identity     string `json:"identity"`
	GraceSeconds int    `json:"graceSeconds"`
	Message      string `json:"msg"`
}

type OpponentReconnected struct {
	Identity string `json:"identity"`
}

// GameOver carries a nil winner for draws.
type GameOver struct {
	Winner  *string `json:"winner"`
	Reason  string  `json:"reason"`
	Message string  `json:"message,omitempty"`
}

type RatingChange struct {
	Identity string `json:"identity"`
	Before   int    `json:"before"`
	After    int    `json:"after"`
}

type RatingUpdate struct {
	White RatingChange `json:"white"`
	Black RatingChange `json:"black"`
}

type ReceiveChat struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

type QueueJoined struct {
	Position int `json:"position"`
}

type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type DrawOffered struct {
	From string `json:"from"`
}
