// Package httpapi serves the websocket endpoint and the read-only REST API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/domain"
	"github.com/park285/cheese-arena/internal/obslog"
	"github.com/park285/cheese-arena/internal/session"
	"github.com/park285/cheese-arena/internal/store"
)

// Engine is the live-state view the API reads from.
type Engine interface {
	Room(ctx context.Context, roomID string) (*domain.RoomSnapshot, error)
	Stats(ctx context.Context) (session.Stats, error)
}

// RoomMirror serves snapshots of rooms the engine no longer holds.
type RoomMirror interface {
	LoadRoom(ctx context.Context, roomID string) (*domain.RoomSnapshot, error)
}

// Leaderboard is satisfied by every store.
type Leaderboard interface {
	Leaderboard(ctx context.Context, limit int) ([]domain.Profile, error)
}

// ResultFeed pages through published match results.
type ResultFeed interface {
	Results(ctx context.Context, after string, count int64) ([]domain.MatchRecord, string, error)
}

// Sockets reports the websocket hub's counters.
type Sockets interface {
	Len() int
	Dropped() uint64
}

type Deps struct {
	Engine      Engine
	Results     store.Reader
	Leaderboard Leaderboard
	Rooms       RoomMirror
	Feed        ResultFeed
	Sockets     Sockets
	WS          http.Handler

	LeaderboardLimit int
	HistoryLimit     int
}

func SetupRoutes(d Deps) http.Handler {
	if d.Leaderboard == nil && d.Results != nil {
		d.Leaderboard = d.Results
	}
	if d.LeaderboardLimit <= 0 {
		d.LeaderboardLimit = 10
	}
	if d.HistoryLimit <= 0 {
		d.HistoryLimit = 20
	}
	a := &api{d: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog)

	r.Get("/healthz", a.healthz)
	if d.WS != nil {
		r.Handle("/ws", d.WS)
	}
	r.Route("/api", func(r chi.Router) {
		r.Get("/leaderboard", a.leaderboard)
		r.Get("/history/{identity}", a.history)
		r.Get("/profiles/{identity}", a.profile)
		r.Get("/rooms/{roomID}", a.room)
		r.Get("/results", a.results)
	})
	return r
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		obslog.L().Debug("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
