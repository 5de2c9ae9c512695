package store

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/cheese-arena/internal/domain"
)

// Memory keeps results in process. It is used when no database is configured.
type Memory struct {
	mu       sync.RWMutex
	matches  []domain.MatchRecord
	byID     map[string]struct{}
	profiles map[string]domain.Profile
}

func NewMemory() *Memory {
	return &Memory{byID: make(map[string]struct{}), profiles: make(map[string]domain.Profile)}
}

func (m *Memory) LoadProfile(_ context.Context, identity string) (*domain.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[identity]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) Profile(ctx context.Context, identity string) (*domain.Profile, error) {
	return m.LoadProfile(ctx, identity)
}

// RecordResult stores the match and both profiles atomically. Replaying a
// match id is a no-op.
func (m *Memory) RecordResult(_ context.Context, rec *domain.MatchRecord, white, black *domain.Profile) error {
	if err := validate(rec, white, black); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byID[rec.ID]; dup {
		return nil
	}
	cp := *rec
	cp.MovesSAN = append([]string(nil), rec.MovesSAN...)
	m.matches = append(m.matches, cp)
	m.byID[rec.ID] = struct{}{}
	m.profiles[white.Identity] = *white
	m.profiles[black.Identity] = *black
	return nil
}

// Leaderboard orders by rating, then games played.
func (m *Memory) Leaderboard(_ context.Context, limit int) ([]domain.Profile, error) {
	m.mu.RLock()
	out := make([]domain.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		if out[i].GamesPlayed != out[j].GamesPlayed {
			return out[i].GamesPlayed > out[j].GamesPlayed
		}
		return out[i].Identity < out[j].Identity
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// History returns the identity's matches, newest first.
func (m *Memory) History(_ context.Context, identity string, limit int) ([]domain.MatchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.MatchRecord{}
	for i := len(m.matches) - 1; i >= 0; i-- {
		rec := m.matches[i]
		if rec.White != identity && rec.Black != identity {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
