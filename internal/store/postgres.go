package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/park285/cheese-arena/internal/domain"
)

// Schema creates the tables used by Postgres.
const Schema = `
CREATE TABLE IF NOT EXISTS arena_profiles (
	identity     TEXT PRIMARY KEY,
	rating       INTEGER NOT NULL,
	wins         INTEGER NOT NULL DEFAULT 0,
	losses       INTEGER NOT NULL DEFAULT 0,
	draws        INTEGER NOT NULL DEFAULT 0,
	games_played INTEGER NOT NULL DEFAULT 0,
	updated_at   TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS arena_matches (
	id                  UUID PRIMARY KEY,
	room_id             TEXT NOT NULL,
	white               TEXT NOT NULL,
	black               TEXT NOT NULL,
	winner              TEXT,
	reason              TEXT NOT NULL,
	moves_san           TEXT[] NOT NULL,
	pgn                 TEXT NOT NULL,
	eco_code            TEXT,
	eco_title           TEXT,
	time_minutes        INTEGER NOT NULL,
	time_increment      INTEGER NOT NULL,
	white_rating_before INTEGER NOT NULL,
	white_rating_after  INTEGER NOT NULL,
	black_rating_before INTEGER NOT NULL,
	black_rating_after  INTEGER NOT NULL,
	started_at          TIMESTAMPTZ NOT NULL,
	ended_at            TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS arena_matches_white_idx ON arena_matches (white, ended_at DESC);
CREATE INDEX IF NOT EXISTS arena_matches_black_idx ON arena_matches (black, ended_at DESC);
`

// Postgres stores results with lib/pq.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// OpenPostgres opens and pings a database handle.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) LoadProfile(ctx context.Context, identity string) (*domain.Profile, error) {
	const query = `
		SELECT identity, rating, wins, losses, draws, games_played, updated_at, created_at
		FROM arena_profiles
		WHERE identity = $1`

	var prof domain.Profile
	err := p.db.QueryRowContext(ctx, query, identity).Scan(
		&prof.Identity,
		&prof.Rating,
		&prof.Wins,
		&prof.Losses,
		&prof.Draws,
		&prof.GamesPlayed,
		&prof.UpdatedAt,
		&prof.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select profile: %w", err)
	}
	return &prof, nil
}

func (p *Postgres) Profile(ctx context.Context, identity string) (*domain.Profile, error) {
	return p.LoadProfile(ctx, identity)
}

// RecordResult inserts the match and upserts both profiles in one transaction.
func (p *Postgres) RecordResult(ctx context.Context, rec *domain.MatchRecord, white, black *domain.Profile) (err error) {
	if err := validate(rec, white, black); err != nil {
		return err
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertMatch = `
		INSERT INTO arena_matches (
			id, room_id, white, black, winner, reason, moves_san, pgn, eco_code, eco_title,
			time_minutes, time_increment,
			white_rating_before, white_rating_after, black_rating_before, black_rating_after,
			started_at, ended_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO NOTHING`

	var winner sql.NullString
	if rec.Winner != nil {
		winner = sql.NullString{String: string(*rec.Winner), Valid: true}
	}
	if _, err = tx.ExecContext(ctx, insertMatch,
		rec.ID,
		rec.RoomID,
		rec.White,
		rec.Black,
		winner,
		rec.Reason,
		pq.Array(rec.MovesSAN),
		rec.PGN,
		rec.ECOCode,
		rec.ECOTitle,
		rec.TimeControl.Minutes,
		rec.TimeControl.Increment,
		rec.WhiteRatingBefore,
		rec.WhiteRatingAfter,
		rec.BlackRatingBefore,
		rec.BlackRatingAfter,
		rec.StartedAt,
		rec.EndedAt,
	); err != nil {
		return fmt.Errorf("insert match: %w", err)
	}

	for _, prof := range []*domain.Profile{white, black} {
		if err = upsertProfile(ctx, tx, prof); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func upsertProfile(ctx context.Context, tx *sql.Tx, prof *domain.Profile) error {
	const query = `
		INSERT INTO arena_profiles (identity, rating, wins, losses, draws, games_played, updated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (identity)
		DO UPDATE SET
			rating = EXCLUDED.rating,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			draws = EXCLUDED.draws,
			games_played = EXCLUDED.games_played,
			updated_at = EXCLUDED.updated_at`

	if _, err := tx.ExecContext(ctx, query,
		prof.Identity,
		prof.Rating,
		prof.Wins,
		prof.Losses,
		prof.Draws,
		prof.GamesPlayed,
		prof.UpdatedAt,
		prof.CreatedAt,
	); err != nil {
		return fmt.Errorf("upsert profile %s: %w", prof.Identity, err)
	}
	return nil
}

func (p *Postgres) Leaderboard(ctx context.Context, limit int) ([]domain.Profile, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
		SELECT identity, rating, wins, losses, draws, games_played, updated_at, created_at
		FROM arena_profiles
		ORDER BY rating DESC, games_played DESC, identity ASC
		LIMIT $1`

	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Profile, 0, limit)
	for rows.Next() {
		var prof domain.Profile
		if err := rows.Scan(
			&prof.Identity,
			&prof.Rating,
			&prof.Wins,
			&prof.Losses,
			&prof.Draws,
			&prof.GamesPlayed,
			&prof.UpdatedAt,
			&prof.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, prof)
	}
	return out, rows.Err()
}

func (p *Postgres) History(ctx context.Context, identity string, limit int) ([]domain.MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT
			id, room_id, white, black, winner, reason, moves_san, pgn, eco_code, eco_title,
			time_minutes, time_increment,
			white_rating_before, white_rating_after, black_rating_before, black_rating_after,
			started_at, ended_at
		FROM arena_matches
		WHERE white = $1 OR black = $1
		ORDER BY ended_at DESC
		LIMIT $2`

	rows, err := p.db.QueryContext(ctx, query, identity, limit)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	out := make([]domain.MatchRecord, 0, limit)
	for rows.Next() {
		var (
			rec      domain.MatchRecord
			winner   sql.NullString
			ecoCode  sql.NullString
			ecoTitle sql.NullString
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.RoomID,
			&rec.White,
			&rec.Black,
			&winner,
			&rec.Reason,
			pq.Array(&rec.MovesSAN),
			&rec.PGN,
			&ecoCode,
			&ecoTitle,
			&rec.TimeControl.Minutes,
			&rec.TimeControl.Increment,
			&rec.WhiteRatingBefore,
			&rec.WhiteRatingAfter,
			&rec.BlackRatingBefore,
			&rec.BlackRatingAfter,
			&rec.StartedAt,
			&rec.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if c, ok := domain.ParseColor(winner.String); winner.Valid && ok {
			rec.Winner = &c
		}
		rec.ECOCode, rec.ECOTitle = ecoCode.String, ecoTitle.String
		out = append(out, rec)
	}
	return out, rows.Err()
}
