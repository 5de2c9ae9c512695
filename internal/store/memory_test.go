package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/cheese-arena/internal/domain"
)

func sampleResult(id string, winner *domain.Color, ended time.Time) (*domain.MatchRecord, *domain.Profile, *domain.Profile) {
	rec := &domain.MatchRecord{
		ID:          id,
		RoomID:      "ABC123",
		White:       "alice",
		Black:       "bob",
		Winner:      winner,
		Reason:      domain.ReasonResignation,
		MovesSAN:    []string{"e4", "e5"},
		PGN:         "1. e4 e5 *",
		TimeControl: domain.TimeConfig{Minutes: 10},
		StartedAt:   ended.Add(-time.Minute),
		EndedAt:     ended,
	}
	w := domain.NewProfile("alice", 1216, ended)
	b := domain.NewProfile("bob", 1184, ended)
	return rec, w, b
}

func TestMemory_RecordAndRead(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	white := domain.White
	now := time.Now()

	rec, w, b := sampleResult("m1", &white, now)
	require.NoError(t, m.RecordResult(ctx, rec, w, b))
	require.NoError(t, m.RecordResult(ctx, rec, w, b))

	rec2, w2, b2 := sampleResult("m2", nil, now.Add(time.Minute))
	w2.Rating, b2.Rating = 1210, 1190
	require.NoError(t, m.RecordResult(ctx, rec2, w2, b2))

	hist, err := m.History(ctx, "bob", 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "m2", hist[0].ID)
	assert.Equal(t, "draw", hist[0].WinnerString())

	limited, err := m.History(ctx, "alice", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	board, err := m.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "alice", board[0].Identity)
	assert.Equal(t, 1210, board[0].Rating)

	p, err := m.LoadProfile(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestMemory_RejectsNil(t *testing.T) {
	err := NewMemory().RecordResult(context.Background(), nil, nil, nil)
	assert.ErrorIs(t, err, ErrNilRecord)
}
