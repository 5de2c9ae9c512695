// Package rules adapts the corentings chess engine to the session core. The
// core only asks for the side to move, applies moves and reads outcomes.
package rules

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
	"github.com/park285/cheese-arena/internal/domain"
)

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrGameOver    = errors.New("game already over")
)

// Game is the per-room rules handle.
type Game interface {
	Turn() domain.Color
	Apply(move string) (san string, err error)
	Outcome() Outcome
	FEN() string
	PGN() string
	MovesSAN() []string
	Opening() (code, title string)
}

// Outcome reports game-over state detected by the rules engine. Winner is nil for draws.
type Outcome struct {
	Over   bool
	Winner *domain.Color
	Reason string
}

// Factory builds a fresh game for a new room.
type Factory func() Game

type chessGame struct {
	game *nchess.Game
	san  []string
}

// NewGame returns a game at the standard start position.
func NewGame() Game {
	return &chessGame{game: nchess.NewGame()}
}

func (c *chessGame) Turn() domain.Color {
	return colorFrom(c.game.Position().Turn())
}

// Apply accepts UCI first and falls back to SAN.
func (c *chessGame) Apply(move string) (string, error) {
	raw := strings.TrimSpace(move)
	if raw == "" {
		return "", ErrIllegalMove
	}
	if c.game.Outcome() != nchess.NoOutcome {
		return "", ErrGameOver
	}
	pos := c.game.Position()
	if err := c.game.PushNotationMove(strings.ToLower(raw), nchess.UCINotation{}, nil); err != nil {
		if err := c.game.PushNotationMove(raw, nchess.AlgebraicNotation{}, nil); err != nil {
			return "", fmt.Errorf("%w: %s", ErrIllegalMove, raw)
		}
	}
	last := lastMove(c.game)
	if last == nil {
		return "", fmt.Errorf("%w: %s", ErrIllegalMove, raw)
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, last)
	c.san = append(c.san, san)
	return san, nil
}

func (c *chessGame) Outcome() Outcome {
	var winner domain.Color
	switch c.game.Outcome() {
	case nchess.WhiteWon:
		winner = domain.White
	case nchess.BlackWon:
		winner = domain.Black
	case nchess.Draw:
		return Outcome{Over: true, Reason: methodReason(c.game.Method())}
	default:
		return Outcome{}
	}
	return Outcome{Over: true, Winner: &winner, Reason: methodReason(c.game.Method())}
}

func (c *chessGame) FEN() string { return c.game.FEN() }

func (c *chessGame) PGN() string { return c.game.String() }

func (c *chessGame) MovesSAN() []string { return append([]string(nil), c.san...) }

// Opening returns the ECO classification of the moves played so far.
func (c *chessGame) Opening() (string, string) {
	book := ecoBook()
	if book == nil {
		return "", ""
	}
	if eco := book.Find(c.game.Moves()); eco != nil {
		return eco.Code(), eco.Title()
	}
	return "", ""
}

var (
	bookOnce sync.Once
	book     *opening.BookECO
)

func ecoBook() *opening.BookECO {
	bookOnce.Do(func() { book = opening.NewBookECO() })
	return book
}

func lastMove(game *nchess.Game) *nchess.Move {
	moves := game.Moves()
	if len(moves) == 0 {
		return nil
	}
	return moves[len(moves)-1]
}

func colorFrom(c nchess.Color) domain.Color {
	if c == nchess.Black {
		return domain.Black
	}
	return domain.White
}

func methodReason(m nchess.Method) string {
	switch m {
	case nchess.Checkmate:
		return domain.ReasonCheckmate
	case nchess.Stalemate:
		return domain.ReasonStalemate
	case nchess.InsufficientMaterial:
		return domain.ReasonInsufficientMaterial
	default:
		return strings.ToLower(m.String())
	}
}
