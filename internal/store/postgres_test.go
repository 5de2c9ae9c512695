package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/cheese-arena/internal/domain"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Postgres) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgres(db)
}

var profileColumns = []string{"identity", "rating", "wins", "losses", "draws", "games_played", "updated_at", "created_at"}

func TestPostgres_LoadProfile(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM arena_profiles`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(profileColumns).AddRow("alice", 1250, 3, 1, 0, 4, now, now))

	prof, err := repo.LoadProfile(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, prof)
	assert.Equal(t, 1250, prof.Rating)
	assert.Equal(t, 4, prof.GamesPlayed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LoadProfileMissing(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM arena_profiles`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	prof, err := repo.LoadProfile(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, prof)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordResultCommits(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	black := domain.Black
	rec, w, b := sampleResult("7f1c7a8e-0000-4000-8000-000000000001", &black, time.Now())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO arena_matches`).
		WithArgs(rec.ID, rec.RoomID, "alice", "bob", "black", rec.Reason, sqlmock.AnyArg(), rec.PGN,
			"", "", 10, 0, 0, 0, 0, 0, rec.StartedAt, rec.EndedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO arena_profiles`).
		WithArgs("alice", 1216, 0, 0, 0, 0, w.UpdatedAt, w.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO arena_profiles`).
		WithArgs("bob", 1184, 0, 0, 0, 0, b.UpdatedAt, b.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.RecordResult(context.Background(), rec, w, b))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordResultRollsBack(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	rec, w, b := sampleResult("7f1c7a8e-0000-4000-8000-000000000002", nil, time.Now())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO arena_matches`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO arena_profiles`).WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	err := repo.RecordResult(context.Background(), rec, w, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert profile alice")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_History(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	ended := time.Now()
	cols := []string{
		"id", "room_id", "white", "black", "winner", "reason", "moves_san", "pgn", "eco_code", "eco_title",
		"time_minutes", "time_increment",
		"white_rating_before", "white_rating_after", "black_rating_before", "black_rating_after",
		"started_at", "ended_at",
	}
	rows := sqlmock.NewRows(cols).
		AddRow("m2", "R2", "alice", "bob", nil, "draw by agreement", "{e4,e5}", "1. e4 e5 1/2-1/2", nil, nil,
			10, 0, 1200, 1200, 1200, 1200, ended.Add(-time.Minute), ended).
		AddRow("m1", "R1", "bob", "alice", "white", "checkmate", "{f3,e5,g4,Qh4#}", "...", "A00", "Barnes Opening",
			5, 3, 1200, 1216, 1200, 1184, ended.Add(-time.Hour), ended.Add(-50*time.Minute))

	mock.ExpectQuery(`FROM arena_matches`).
		WithArgs("alice", 20).
		WillReturnRows(rows)

	hist, err := repo.History(context.Background(), "alice", 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Nil(t, hist[0].Winner)
	assert.Equal(t, []string{"e4", "e5"}, hist[0].MovesSAN)
	require.NotNil(t, hist[1].Winner)
	assert.Equal(t, domain.White, *hist[1].Winner)
	assert.Equal(t, "A00", hist[1].ECOCode)
	assert.Equal(t, 3, hist[1].TimeControl.Increment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Leaderboard(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`ORDER BY rating DESC`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(profileColumns).
			AddRow("carol", 1300, 5, 0, 0, 5, now, now).
			AddRow("alice", 1216, 1, 0, 0, 1, now, now))

	board, err := repo.Leaderboard(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "carol", board[0].Identity)
	assert.NoError(t, mock.ExpectationsWereMet())
}
