package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/domain"
	"github.com/park285/cheese-arena/internal/obslog"
	"github.com/park285/cheese-arena/internal/session"
)

const maxLimit = 100

type api struct {
	d Deps
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// limitParam reads ?limit= clamped to [1, maxLimit].
func limitParam(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

type socketStats struct {
	Open    int    `json:"open"`
	Dropped uint64 `json:"dropped"`
}

func (a *api) healthz(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if a.d.Sockets != nil {
		body["sockets"] = socketStats{Open: a.d.Sockets.Len(), Dropped: a.d.Sockets.Dropped()}
	}
	if a.d.Engine != nil {
		stats, err := a.d.Engine.Stats(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		body["stats"] = stats
	}
	writeJSON(w, http.StatusOK, body)
}

// ResultPage is one page of the published result feed. Next is passed back
// as ?after= to continue.
type ResultPage struct {
	Results []domain.MatchRecord `json:"results"`
	Next    string               `json:"next"`
}

func (a *api) results(w http.ResponseWriter, r *http.Request) {
	after := strings.TrimSpace(r.URL.Query().Get("after"))
	if a.d.Feed == nil {
		writeJSON(w, http.StatusOK, ResultPage{Results: []domain.MatchRecord{}, Next: after})
		return
	}
	recs, next, err := a.d.Feed.Results(r.Context(), after, int64(limitParam(r, a.d.HistoryLimit)))
	if err != nil {
		obslog.L().Error("results_feed_error", zap.String("after", after), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "results unavailable")
		return
	}
	if recs == nil {
		recs = []domain.MatchRecord{}
	}
	writeJSON(w, http.StatusOK, ResultPage{Results: recs, Next: next})
}

func (a *api) leaderboard(w http.ResponseWriter, r *http.Request) {
	if a.d.Leaderboard == nil {
		writeJSON(w, http.StatusOK, []domain.Profile{})
		return
	}
	board, err := a.d.Leaderboard.Leaderboard(r.Context(), limitParam(r, a.d.LeaderboardLimit))
	if err != nil {
		obslog.L().Error("leaderboard_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "leaderboard unavailable")
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (a *api) history(w http.ResponseWriter, r *http.Request) {
	identity := strings.TrimSpace(chi.URLParam(r, "identity"))
	if identity == "" {
		writeError(w, http.StatusBadRequest, "missing identity")
		return
	}
	if a.d.Results == nil {
		writeJSON(w, http.StatusOK, []domain.MatchRecord{})
		return
	}
	hist, err := a.d.Results.History(r.Context(), identity, limitParam(r, a.d.HistoryLimit))
	if err != nil {
		obslog.L().Error("history_error", zap.String("identity", identity), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func (a *api) profile(w http.ResponseWriter, r *http.Request) {
	identity := strings.TrimSpace(chi.URLParam(r, "identity"))
	if a.d.Results == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	prof, err := a.d.Results.Profile(r.Context(), identity)
	if err != nil {
		obslog.L().Error("profile_error", zap.String("identity", identity), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "profile unavailable")
		return
	}
	if prof == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

// room prefers the live engine and falls back to the Redis mirror.
func (a *api) room(w http.ResponseWriter, r *http.Request) {
	id := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "roomID")))
	if a.d.Engine != nil {
		snap, err := a.d.Engine.Room(r.Context(), id)
		if err == nil {
			writeJSON(w, http.StatusOK, snap)
			return
		}
		if !errors.Is(err, session.ErrRoomNotFound) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	if a.d.Rooms != nil {
		snap, err := a.d.Rooms.LoadRoom(r.Context(), id)
		if err != nil {
			obslog.L().Warn("room_mirror_error", zap.String("room_id", id), zap.Error(err))
		} else if snap != nil {
			writeJSON(w, http.StatusOK, snap)
			return
		}
	}
	writeError(w, http.StatusNotFound, "room not found")
}
