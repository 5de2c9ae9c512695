// Package store persists match results, profiles and room snapshots.
package store

import (
	"context"
	"errors"

	"github.com/park285/cheese-arena/internal/domain"
)

var ErrNilRecord = errors.New("nil match record")

// Reader serves the read side of the HTTP API.
type Reader interface {
	Leaderboard(ctx context.Context, limit int) ([]domain.Profile, error)
	History(ctx context.Context, identity string, limit int) ([]domain.MatchRecord, error)
	Profile(ctx context.Context, identity string) (*domain.Profile, error)
}

func validate(rec *domain.MatchRecord, white, black *domain.Profile) error {
	if rec == nil || white == nil || black == nil {
		return ErrNilRecord
	}
	return nil
}
