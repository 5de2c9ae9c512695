package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/cheese-arena/internal/arenaclient"
	"github.com/park285/cheese-arena/pkg/arenadto"
)

func main() {
	baseURL := os.Getenv("ARENA_BASE_URL")
	if baseURL == "" {
		log.Fatal("ARENA_BASE_URL is required")
	}
	wsURL := os.Getenv("ARENA_WS_URL")
	if wsURL == "" {
		wsURL = "ws" + strings.TrimPrefix(strings.TrimRight(baseURL, "/"), "http") + "/ws"
	}

	client := arenaclient.NewClient(baseURL, arenaclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	h, err := client.Health(ctx)
	if err != nil {
		log.Printf("/healthz error: %v", err)
	} else {
		log.Printf("/healthz ok: status=%s stats=%s", h.Status, string(h.Stats))
		if h.Sockets != nil {
			log.Printf("  sockets open=%d dropped=%d", h.Sockets.Open, h.Sockets.Dropped)
		}
	}
	if board, err := client.Leaderboard(ctx, 5); err != nil {
		log.Printf("/api/leaderboard error: %v", err)
	} else {
		for i, p := range board {
			log.Printf("  #%d %s %d (%d games)", i+1, p.Identity, p.Rating, p.GamesPlayed)
		}
	}

	white := open(ctx, "white", wsURL)
	defer white.close()
	black := open(ctx, "black", wsURL)
	defer black.close()

	white.send(ctx, arenadto.TypeCreateRoom, arenadto.CreateRoom{
		Identity:   "arenacheck-white",
		TimeConfig: &arenadto.TimeConfig{Minutes: 1},
	})
	var created arenadto.RoomCreated
	white.await(ctx, arenadto.TypeRoomCreated, &created)
	log.Printf("room created: %s", created.RoomID)

	black.send(ctx, arenadto.TypeJoinRoom, arenadto.JoinRoom{RoomID: created.RoomID, Identity: "arenacheck-black"})
	black.await(ctx, arenadto.TypeGameStart, nil)
	white.await(ctx, arenadto.TypeGameStart, nil)

	white.send(ctx, arenadto.TypeMakeMove, map[string]string{"roomId": created.RoomID, "move": "e2e4"})
	var moved arenadto.MoveMade
	black.await(ctx, arenadto.TypeMoveMade, &moved)
	log.Printf("move_made: san=%s fen=%s", moved.SAN, moved.FEN)

	black.send(ctx, arenadto.TypeResign, arenadto.RoomRef{RoomID: created.RoomID})
	var over arenadto.GameOver
	white.await(ctx, arenadto.TypeGameOver, &over)
	winner := "draw"
	if over.Winner != nil {
		winner = *over.Winner
	}
	log.Printf("game_over: winner=%s reason=%s message=%q", winner, over.Reason, over.Message)

	if snap, err := client.Room(ctx, created.RoomID); err != nil {
		log.Printf("/api/rooms/%s error: %v", created.RoomID, err)
	} else {
		log.Printf("/api/rooms/%s ok: status=%s moves=%v", created.RoomID, snap.Status, snap.MovesSAN)
	}
	if recs, next, err := client.Results(ctx, "", 5); err != nil {
		log.Printf("/api/results error: %v", err)
	} else {
		log.Printf("/api/results ok: %d records next=%q", len(recs), next)
	}
}

type peer struct {
	name   string
	s      *arenaclient.Session
	frames chan arenadto.Envelope
}

func open(ctx context.Context, name, url string) *peer {
	p := &peer{name: name, s: arenaclient.NewSession(url, 0), frames: make(chan arenadto.Envelope, 64)}
	p.s.OnStateChange(func(state arenaclient.State) {
		log.Printf("[%s] WS state: %s", name, state)
	})
	p.s.OnMessage(func(env arenadto.Envelope) {
		select {
		case p.frames <- env:
		default:
		}
	})
	if err := p.s.Connect(ctx); err != nil {
		log.Fatalf("[%s] ws connect error: %v", name, err)
	}
	return p
}

func (p *peer) send(ctx context.Context, typ string, payload any) {
	if err := p.s.Send(ctx, typ, payload); err != nil {
		log.Fatalf("[%s] %s send error: %v", p.name, typ, err)
	}
}

// await skips frames until typ arrives and decodes it into out.
func (p *peer) await(ctx context.Context, typ string, out any) {
	for {
		select {
		case env := <-p.frames:
			if env.Type == arenadto.TypeErrorMessage {
				log.Fatalf("[%s] error_message: %s", p.name, string(env.Payload))
			}
			if env.Type != typ {
				continue
			}
			if out != nil {
				if err := env.Decode(out); err != nil {
					log.Fatalf("[%s] %v", p.name, err)
				}
			}
			return
		case <-ctx.Done():
			log.Fatalf("[%s] no %s before deadline", p.name, typ)
		}
	}
}

func (p *peer) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = p.s.Close(ctx)
}
